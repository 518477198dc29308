package ukbtab

import (
	"fmt"
	"strings"
)

// SemanticType is a value of the data dictionary's Type column.
type SemanticType string

// Semantic types as they appear in the data dictionary.
const (
	Sequence            SemanticType = "Sequence"
	Integer             SemanticType = "Integer"
	Continuous          SemanticType = "Continuous"
	Text                SemanticType = "Text"
	Date                SemanticType = "Date"
	Time                SemanticType = "Time"
	Compound            SemanticType = "Compound"
	Curve               SemanticType = "Curve"
	CategoricalSingle   SemanticType = "Categorical (single)"
	CategoricalMultiple SemanticType = "Categorical (multiple)"
)

// Categorical reports whether the type names a categorical column.
func (t SemanticType) Categorical() bool {
	return strings.HasPrefix(string(t), "Categorical")
}

// DefaultCategoricalTypes returns the semantic types treated as categorical
// unless overridden. Callers receive a fresh slice.
func DefaultCategoricalTypes() []SemanticType {
	return []SemanticType{CategoricalSingle, CategoricalMultiple}
}

// ValueKind is the value type of a data coding, scraped from the field
// description ("... comprises N <kind>-valued ...").
type ValueKind string

// Coding value kinds. KindDateError is the showcase's placeholder kind for
// codings whose values are dates.
const (
	KindInteger   ValueKind = "Integer"
	KindReal      ValueKind = "Real"
	KindString    ValueKind = "String"
	KindDateError ValueKind = "ERROR"
)

// Scalar is a storage value type tag.
type Scalar string

// Scalar storage types.
const (
	Int64     Scalar = "int64"
	Float64   Scalar = "float64"
	String    Scalar = "string"
	DateDay   Scalar = "date"
	Timestamp Scalar = "timestamp"
)

// Storage describes the concrete storage type a column converts to.
//
// A zero Index means the column is stored as a plain scalar. A non-zero
// Index means the column is dictionary-encoded: Scalar is the value type of
// the dictionary and Index is the bit width of the dictionary index.
// Format carries the reference layout for date and timestamp scalars.
type Storage struct {
	Scalar Scalar `yaml:"scalar"`
	Format string `yaml:"format,omitempty"`
	Index  int    `yaml:"index,omitempty"`
}

// IsDate reports whether the descriptor resolves to a date or timestamp.
func (s Storage) IsDate() bool {
	return s.Scalar == DateDay || s.Scalar == Timestamp
}

// IsDictionary reports whether the descriptor is dictionary-encoded.
func (s Storage) IsDictionary() bool {
	return s.Index != 0
}

func (s Storage) String() string {
	base := string(s.Scalar)
	if s.Format != "" {
		base = fmt.Sprintf("%s(%s)", s.Scalar, s.Format)
	}

	if s.IsDictionary() {
		return fmt.Sprintf("dictionary(uint%d, %s)", s.Index, base)
	}

	return base
}

// TypeMapping maps data dictionary types to storage descriptors.
// BySemanticType covers non-categorical columns; ByValueKind covers the value
// types of data codings (dictionary values and the exceeding-cardinality
// fallback).
type TypeMapping struct {
	BySemanticType map[SemanticType]Storage
	ByValueKind    map[ValueKind]Storage
}

// DefaultMapping returns the built-in type mapping. Every call returns an
// independent copy so callers can mutate their mapping freely.
func DefaultMapping() TypeMapping {
	return TypeMapping{
		BySemanticType: map[SemanticType]Storage{
			Sequence: {Scalar: Int64},
			// Integer columns hold missing values, so they widen to float.
			Integer:    {Scalar: Float64},
			Continuous: {Scalar: Float64},
			Text:       {Scalar: String},
			Date:       {Scalar: DateDay, Format: "2006-01-02"},
			Time:       {Scalar: Timestamp, Format: "2006-01-02 15:04:05"},
			Compound:   {Scalar: String},
			Curve:      {Scalar: String},
		},
		ByValueKind: map[ValueKind]Storage{
			KindInteger:   {Scalar: Float64},
			KindReal:      {Scalar: Float64},
			KindString:    {Scalar: String},
			KindDateError: {Scalar: DateDay, Format: "2006-01-02"},
		},
	}
}

// Clone returns a deep copy of the mapping.
func (m TypeMapping) Clone() TypeMapping {
	out := TypeMapping{
		BySemanticType: make(map[SemanticType]Storage, len(m.BySemanticType)),
		ByValueKind:    make(map[ValueKind]Storage, len(m.ByValueKind)),
	}
	for k, v := range m.BySemanticType {
		out.BySemanticType[k] = v
	}

	for k, v := range m.ByValueKind {
		out.ByValueKind[k] = v
	}

	return out
}

// SetSemanticType overrides the descriptor for a semantic type from its
// textual form (see ParseStorage).
func (m TypeMapping) SetSemanticType(key, value string) error {
	st, err := ParseStorage(value)
	if err != nil {
		return err
	}

	m.BySemanticType[SemanticType(key)] = st

	return nil
}

// SetValueKind overrides the descriptor for a coding value kind from its
// textual form (see ParseStorage).
func (m TypeMapping) SetValueKind(key, value string) error {
	st, err := ParseStorage(value)
	if err != nil {
		return err
	}

	m.ByValueKind[ValueKind(key)] = st

	return nil
}

// ParseStorage parses the textual form of a storage descriptor used in
// config files and CLI overrides: a scalar name ("int64", "float64",
// "string"), or a date descriptor carrying a reference layout after a colon
// ("date:2006-01-02", "timestamp:2006-01-02 15:04:05").
func ParseStorage(value string) (Storage, error) {
	name, layout, tagged := strings.Cut(value, ":")

	switch Scalar(name) {
	case Int64, Float64, String:
		if tagged {
			return Storage{}, fmt.Errorf("%w: scalar type %q takes no layout", ErrConfig, name)
		}

		return Storage{Scalar: Scalar(name)}, nil
	case DateDay, Timestamp:
		if !tagged || layout == "" {
			return Storage{}, fmt.Errorf("%w: %q needs a layout, e.g. %q", ErrConfig, name, name+":2006-01-02")
		}

		return Storage{Scalar: Scalar(name), Format: layout}, nil
	default:
		return Storage{}, fmt.Errorf("%w: unknown storage type %q", ErrConfig, value)
	}
}
