// Package htmltab extracts tables from an HTML document into plain header
// and row slices. It understands just enough HTML to read the documents the
// ukbconv utility generates: tables keyed by their summary attribute (or
// caption), one header row of th cells, and td data rows.
package htmltab

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Table is one extracted HTML table.
type Table struct {
	// Summary is the table's summary attribute, or its caption text when no
	// summary is present.
	Summary string

	// Header holds the cell texts of the header row, if any.
	Header []string

	// Rows holds the data rows.
	Rows [][]string
}

// Column returns the index of the named header column (case-insensitive),
// or -1 when absent.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(h, name) {
			return i
		}
	}

	return -1
}

// Parse reads an HTML document and returns its tables in document order.
func Parse(r io.Reader) ([]Table, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var tables []Table

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			tables = append(tables, extractTable(n))
			// ukbconv documents do not nest tables.
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return tables, nil
}

func extractTable(table *html.Node) Table {
	t := Table{Summary: attr(table, "summary")}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "caption":
				if t.Summary == "" {
					t.Summary = strings.TrimSpace(text(n))
				}

				return
			case "tr":
				cells, isHeader := extractRow(n)
				if isHeader && t.Header == nil && len(t.Rows) == 0 {
					t.Header = cells
				} else {
					t.Rows = append(t.Rows, cells)
				}

				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)

	return t
}

// extractRow returns the cell texts of a tr element and whether the row
// consists of th cells only.
func extractRow(tr *html.Node) (cells []string, isHeader bool) {
	isHeader = true

	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}

		switch c.Data {
		case "th":
			cells = append(cells, strings.TrimSpace(text(c)))
		case "td":
			isHeader = false

			cells = append(cells, strings.TrimSpace(text(c)))
		}
	}

	if len(cells) == 0 {
		isHeader = false
	}

	return cells, isHeader
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}

	return ""
}

// text concatenates the text nodes beneath n, collapsing inter-element
// whitespace to single spaces.
func text(n *html.Node) string {
	var sb strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(sb.String()), " ")
}
