package convert

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/ukb-tools/ukbtab"
)

// Columns reads the TSV header row and verifies every column name appears
// exactly once in the data dictionary.
func Columns(tsvPath, encodingName string, dict *ukbtab.Dictionary) ([]string, error) {
	f, err := os.Open(tsvPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r, err := decodeReader(f, encodingName)
	if err != nil {
		return nil, err
	}

	header, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading header of %s: %w", tsvPath, err)
	}

	names := splitRow(header)

	schema, err := dict.Schema()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(names))

	for i, name := range names {
		if _, ok := schema.Field(name); !ok {
			return nil, fmt.Errorf("%w: column %d %q (check that the data dictionary matches the export)", ErrColumnUnknown, i, name)
		}

		if seen[name] {
			return nil, fmt.Errorf("%w: column %d %q", ErrColumnDuplicated, i, name)
		}

		seen[name] = true
	}

	return names, nil
}

// readRows reads and parses all data rows, honoring the tab offset and row
// limit.
func (c *Converter) readRows(tsvPath string, columns []*column) ([]map[string]any, error) {
	f, err := os.Open(tsvPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r, err := decodeReader(f, c.encoding)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var rows []map[string]any

	line := 0

	for scanner.Scan() {
		line++
		if line == 1 {
			// Header row.
			continue
		}

		if c.rowLimit > 0 && len(rows) >= c.rowLimit {
			break
		}

		cells := c.applyOffset(splitRow(scanner.Text()))

		row, err := parseRow(cells, columns)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line-1, err)
		}

		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", tsvPath, err)
	}

	return rows, nil
}

// applyOffset drops the stray cells a tab offset introduces: leading cells
// for a positive offset, trailing cells for a negative one.
func (c *Converter) applyOffset(cells []string) []string {
	switch {
	case c.offset > 0 && len(cells) > c.offset:
		return cells[c.offset:]
	case c.offset < 0 && len(cells) > -c.offset:
		return cells[:len(cells)+c.offset]
	default:
		return cells
	}
}

func parseRow(cells []string, columns []*column) (map[string]any, error) {
	row := make(map[string]any, len(columns))

	for i, col := range columns {
		raw := ""
		if i < len(cells) {
			raw = cells[i]
		}

		value, err := col.parse(raw)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.name, err)
		}

		row[col.pqName] = value
	}

	return row, nil
}

// splitRow splits a TSV line on tabs. Exports may contain unbalanced quote
// characters, so rows are split verbatim rather than CSV-parsed.
func splitRow(line string) []string {
	line = strings.TrimRight(line, "\r\n")

	return strings.Split(line, "\t")
}

// decodeReader wraps r with a decoder for the named character encoding.
// Any name the WHATWG encoding registry knows is accepted.
func decodeReader(r io.Reader, name string) (io.Reader, error) {
	if name == "" {
		name = DefaultEncoding
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}

	return transform.NewReader(r, enc.NewDecoder()), nil
}
