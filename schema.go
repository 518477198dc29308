package ukbtab

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ukb-tools/ukbtab/internal/htmltab"
)

// Field is one row of the data dictionary's main table: a single column of
// the wide dataset, identified by its UDI.
type Field struct {
	// UDI is the unique data identifier, "<field-id>-<instance>.<array>"
	// ("21-0.0") or the bare "eid" key column.
	UDI string

	// Column is the column index in the dataset.
	Column int

	// Type is the dictionary's semantic type for the column.
	Type SemanticType

	// Description is the free-text field description, possibly embedding a
	// data-coding reference.
	Description string

	// Count is the number of non-null cells, when the dictionary reports one.
	Count *int

	// CodingID is the referenced data coding, empty when the description
	// carries no coding reference.
	CodingID string

	// CodingMembers is the member count of the coding, when stated.
	CodingMembers *int

	// CodingKind is the value kind of the coding, when stated.
	CodingKind ValueKind

	// Hierarchical records whether the description mentions a hierarchy.
	Hierarchical bool
}

// Categorical reports whether the field's semantic type is categorical.
func (f *Field) Categorical() bool { return f.Type.Categorical() }

// HasCoding reports whether the description referenced a data coding.
func (f *Field) HasCoding() bool { return f.CodingID != "" }

// Name returns the human-readable field name: the description truncated at
// the coding reference.
func (f *Field) Name() string {
	name, _, _ := strings.Cut(f.Description, " Uses data-coding")

	return name
}

// Schema is the normalized main table of the data dictionary, one Field per
// dataset column, in document order.
type Schema struct {
	Fields []*Field

	byUDI map[string]*Field
}

// Field returns the field with the exact UDI.
func (s *Schema) Field(udi string) (*Field, bool) {
	f, ok := s.byUDI[udi]

	return f, ok
}

// Match returns all fields whose UDI's portion before the first "-" equals
// id, in document order.
func (s *Schema) Match(id string) []*Field {
	var out []*Field

	for _, f := range s.Fields {
		prefix, _, _ := strings.Cut(f.UDI, "-")
		if prefix == id {
			out = append(out, f)
		}
	}

	return out
}

// CodingField returns the first field referencing the coding id, or nil.
// Fields sharing a coding share its hierarchy flag, so the first match is
// authoritative.
func (s *Schema) CodingField(id string) *Field {
	for _, f := range s.Fields {
		if f.CodingID == id {
			return f
		}
	}

	return nil
}

// Main table column names as ukbconv emits them.
const (
	colColumn      = "Column"
	colUDI         = "UDI"
	colType        = "Type"
	colDescription = "Description"
	colCount       = "Count"
)

// parseSchema builds a Schema from the document's main table.
func parseSchema(table *htmltab.Table) (*Schema, error) {
	idx := map[string]int{}
	for _, name := range []string{colColumn, colUDI, colType, colDescription, colCount} {
		i := table.Column(name)
		if i < 0 {
			return nil, fmt.Errorf("%w: main table lacks %q column", ErrParse, name)
		}

		idx[name] = i
	}

	schema := &Schema{byUDI: make(map[string]*Field, len(table.Rows))}

	for n, row := range table.Rows {
		f, err := parseField(row, idx)
		if err != nil {
			return nil, fmt.Errorf("%w: main table row %d: %w", ErrParse, n, err)
		}

		if _, dup := schema.byUDI[f.UDI]; dup {
			return nil, fmt.Errorf("%w: duplicate UDI %q in main table", ErrParse, f.UDI)
		}

		schema.Fields = append(schema.Fields, f)
		schema.byUDI[f.UDI] = f
	}

	return schema, nil
}

func parseField(row []string, idx map[string]int) (*Field, error) {
	cell := func(name string) string {
		i := idx[name]
		if i >= len(row) {
			return ""
		}

		return row[i]
	}

	column, err := strconv.Atoi(cell(colColumn))
	if err != nil {
		return nil, fmt.Errorf("column index %q: %w", cell(colColumn), err)
	}

	f := &Field{
		UDI:         cell(colUDI),
		Column:      column,
		Type:        SemanticType(cell(colType)),
		Description: cell(colDescription),
	}
	if f.UDI == "" {
		return nil, fmt.Errorf("empty UDI")
	}

	if raw := cell(colCount); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("count %q: %w", raw, err)
		}

		f.Count = &count
	}

	if ref, ok := parseCodingRef(f.Description); ok {
		f.CodingID = ref.ID
		f.CodingMembers = ref.Members
		f.CodingKind = ref.Kind
	}

	f.Hierarchical = strings.Contains(f.Description, "hierarchical")

	return f, nil
}
