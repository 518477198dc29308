package ukbtab

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when no .ukbtab.yaml is found.
var ErrConfigNotFound = errors.New("ukbtab: no .ukbtab.yaml found")

// Config represents the .ukbtab.yaml project configuration file.
type Config struct {
	// CodingPath is the coding file path template (one %s for the id).
	CodingPath string `yaml:"coding_path,omitempty"`

	// CodingURL is the showcase download URL template (one %s for the id).
	CodingURL string `yaml:"coding_url,omitempty"`

	// CacheSize bounds the in-memory coding table cache.
	CacheSize int `yaml:"cache_size,omitempty"`

	// MaxCategories is the cardinality cutoff for dictionary encoding.
	MaxCategories int `yaml:"max_categories,omitempty"`

	// CategoricalTypes overrides the semantic types treated as categorical.
	CategoricalTypes []string `yaml:"categorical_types,omitempty"`

	// Types overrides storage descriptors by semantic type, in the textual
	// form ParseStorage accepts (e.g. "float64", "date:2006-01-02").
	Types map[string]string `yaml:"types,omitempty"`

	// ValueKinds overrides storage descriptors by coding value kind.
	ValueKinds map[string]string `yaml:"value_kinds,omitempty"`

	// Convert holds defaults for the conversion pipeline.
	Convert ConvertConfig `yaml:"convert,omitempty"`
}

// ConvertConfig holds conversion pipeline defaults.
type ConvertConfig struct {
	// Encoding is the character encoding of the TSV export.
	Encoding string `yaml:"encoding,omitempty"`

	// Partitions is the number of Parquet part files to write.
	Partitions int `yaml:"partitions,omitempty"`

	// TabOffset compensates for stray tabs in data rows (positive: leading,
	// negative: trailing).
	TabOffset int `yaml:"tab_offset,omitempty"`
}

// Mapping builds the effective type mapping: the defaults with the config's
// overrides applied.
func (c *Config) Mapping() (TypeMapping, error) {
	mapping := DefaultMapping()

	for key, value := range c.Types {
		if err := mapping.SetSemanticType(key, value); err != nil {
			return TypeMapping{}, fmt.Errorf("types.%s: %w", key, err)
		}
	}

	for key, value := range c.ValueKinds {
		if err := mapping.SetValueKind(key, value); err != nil {
			return TypeMapping{}, fmt.Errorf("value_kinds.%s: %w", key, err)
		}
	}

	return mapping, nil
}

// Categorical returns the configured categorical semantic types, or the
// defaults when unset.
func (c *Config) Categorical() []SemanticType {
	if len(c.CategoricalTypes) == 0 {
		return DefaultCategoricalTypes()
	}

	out := make([]SemanticType, len(c.CategoricalTypes))
	for i, t := range c.CategoricalTypes {
		out[i] = SemanticType(t)
	}

	return out
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".ukbtab.yaml", ".ukbtab.yml", "ukbtab.yaml", "ukbtab.yml"}

// LoadConfig finds and loads the nearest .ukbtab.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
