package convert

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// manifest documents one conversion run; it is dumped into the output
// directory's README.txt so a directory of part files stays explainable.
type manifest struct {
	Source        string            `yaml:"source"`
	DataDict      string            `yaml:"data_dict"`
	Encoding      string            `yaml:"encoding"`
	Rows          int64             `yaml:"rows"`
	RowLimit      int               `yaml:"row_limit,omitempty"`
	Partitions    int               `yaml:"partitions"`
	MaxCategories int               `yaml:"max_categories"`
	TabOffset     int               `yaml:"tab_offset,omitempty"`
	CreatedAt     string            `yaml:"created_at"`
	Columns       map[string]string `yaml:"columns"`
}

func (c *Converter) writeManifest(outDir, tsvPath string, columns []*column, result *Result) error {
	m := manifest{
		Source:        tsvPath,
		DataDict:      c.dict.Path(),
		Encoding:      c.encoding,
		Rows:          result.Rows,
		RowLimit:      c.rowLimit,
		Partitions:    len(result.Files),
		MaxCategories: c.res.MaxCategories(),
		TabOffset:     c.offset,
		CreatedAt:     timestamp(),
		Columns:       make(map[string]string, len(columns)),
	}
	for _, col := range columns {
		m.Columns[col.name] = col.storage.String()
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}

	path := filepath.Join(outDir, "README.txt")

	content := fmt.Sprintf("Parquet files created by ukbtab convert.\n\nThe following configuration was used:\n\n%s", data)

	return os.WriteFile(path, []byte(content), 0o644)
}
