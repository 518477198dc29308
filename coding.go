package ukbtab

import (
	"fmt"
	"strings"

	"github.com/ukb-tools/ukbtab/internal/htmltab"
)

// CodingEntry is one value of a data coding.
type CodingEntry struct {
	// Code is the stored value, kept raw; its kind is the field's CodingKind.
	Code string

	// Meaning is the human-readable meaning of the code.
	Meaning string

	// Selectable reports whether the entry is a valid data value. Only
	// hierarchical codings distinguish selectable entries.
	Selectable bool

	// Parent is the parent node reference for hierarchical codings.
	Parent string
}

// CodingTable is the ordered value table of one data coding.
type CodingTable struct {
	ID string

	// Hierarchical records which source the table was loaded from: the
	// coding file store (true) or the document itself (false).
	Hierarchical bool

	Entries []CodingEntry
}

// Codes returns all codes in table order.
func (t *CodingTable) Codes() []string {
	out := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = e.Code
	}

	return out
}

// SelectableCodes returns the codes valid as data values: all codes for flat
// codings, selectable entries only for hierarchical ones.
func (t *CodingTable) SelectableCodes() []string {
	if !t.Hierarchical {
		return t.Codes()
	}

	var out []string

	for _, e := range t.Entries {
		if e.Selectable {
			out = append(out, e.Code)
		}
	}

	return out
}

// codingFileBoilerplate is the number of leading lines of a downloaded
// coding file that precede the header row.
const codingFileBoilerplate = 7

// remoteErrorMarker appears in place of table content when the showcase
// fails to serve a coding download.
const remoteErrorMarker = "internal error prevents download of coding"

// parseCodingFile parses the tab-delimited content of a coding file from the
// file store. The first seven lines are boilerplate; the next line is the
// header, whose primary value column is named "coding" and is surfaced as
// Code.
func parseCodingFile(id string, content string) (*CodingTable, error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) <= codingFileBoilerplate {
		return nil, fmt.Errorf("coding file for %s has no header after boilerplate", id)
	}

	lines = lines[codingFileBoilerplate:]
	header := strings.Split(lines[0], "\t")

	find := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}

		return -1
	}

	code := find("coding")
	if code < 0 {
		code = find("Code")
	}

	if code < 0 {
		return nil, fmt.Errorf("coding file for %s lacks a coding column", id)
	}

	meaning := find("meaning")
	selectable := find("selectable")
	parent := find("parent_id")

	table := &CodingTable{ID: id, Hierarchical: true}

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		cells := strings.Split(line, "\t")
		at := func(i int) string {
			if i < 0 || i >= len(cells) {
				return ""
			}

			return strings.TrimSpace(cells[i])
		}

		table.Entries = append(table.Entries, CodingEntry{
			Code:       at(code),
			Meaning:    at(meaning),
			Selectable: at(selectable) == "Y",
			Parent:     at(parent),
		})
	}

	return table, nil
}

// parseCodingTable parses a coding table embedded in the document.
func parseCodingTable(id string, table *htmltab.Table) (*CodingTable, error) {
	code := table.Column("Coding")
	if code < 0 {
		code = table.Column("Code")
	}

	if code < 0 {
		return nil, fmt.Errorf("embedded table for coding %s lacks a coding column", id)
	}

	meaning := table.Column("Meaning")

	out := &CodingTable{ID: id}

	for _, row := range table.Rows {
		at := func(i int) string {
			if i < 0 || i >= len(row) {
				return ""
			}

			return row[i]
		}

		out.Entries = append(out.Entries, CodingEntry{
			Code:    at(code),
			Meaning: at(meaning),
		})
	}

	return out, nil
}
