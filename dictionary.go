// Package ukbtab models UK Biobank data dictionary documents as generated
// by the ukbconv utility: the document's summary block, its main field
// table, and the data codings referenced by categorical fields.
//
// A Dictionary is not safe for concurrent use; callers sharing one instance
// across goroutines must serialize access.
package ukbtab

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ukb-tools/ukbtab/internal/htmltab"
)

// DefaultCacheSize is the default capacity of the coding table cache.
const DefaultCacheSize = 100

// defaultCodingPath is the default coding file template, resolved under the
// user's home directory.
const defaultCodingPath = ".ukbtab/encodings/encoding_table_%s.txt"

// Fetcher deposits the raw content of a coding table at a local path.
// Implementations live outside the model; see the fetch package.
type Fetcher interface {
	Fetch(ctx context.Context, codingID, dest string) error
}

// DocumentInfo holds the key/value pairs of the document's leading summary
// block (extraction date, column count).
type DocumentInfo map[string]string

// Dictionary provides access to one data dictionary document. The document,
// its schema, and its coding tables are parsed lazily and cached; changing
// the source path discards all cached state.
type Dictionary struct {
	path       string
	codingPath string
	cacheSize  int
	fetcher    Fetcher

	tables  []htmltab.Table
	info    DocumentInfo
	schema  *Schema
	codings *lru.Cache[string, *CodingTable]
}

// Option configures a Dictionary.
type Option func(*Dictionary)

// WithCodingPath sets the coding file path template. The template must
// contain exactly one %s verb, substituted with the coding id.
func WithCodingPath(template string) Option {
	return func(d *Dictionary) {
		d.codingPath = template
	}
}

// WithCacheSize bounds the coding table cache.
func WithCacheSize(n int) Option {
	return func(d *Dictionary) {
		d.cacheSize = n
	}
}

// WithFetcher sets the collaborator that downloads missing coding files.
func WithFetcher(f Fetcher) Option {
	return func(d *Dictionary) {
		d.fetcher = f
	}
}

// New creates a Dictionary for the document at path.
func New(path string, opts ...Option) (*Dictionary, error) {
	d := &Dictionary{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(d)
	}

	if d.codingPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: resolving home directory: %w", ErrConfig, err)
		}

		d.codingPath = filepath.Join(home, defaultCodingPath)
	}

	if strings.Count(d.codingPath, "%s") != 1 {
		return nil, fmt.Errorf("%w: coding path template %q must contain exactly one %%s", ErrConfig, d.codingPath)
	}

	if d.cacheSize <= 0 {
		return nil, fmt.Errorf("%w: cache size must be positive, got %d", ErrConfig, d.cacheSize)
	}

	cache, err := lru.New[string, *CodingTable](d.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	d.codings = cache

	if err := d.SetPath(path); err != nil {
		return nil, err
	}

	return d, nil
}

// Path returns the current document path.
func (d *Dictionary) Path() string { return d.path }

// SetPath points the Dictionary at a different document. The path must name
// a readable .html file. Changing the path discards the cached document,
// schema, info, and coding tables; setting the same path is a no-op.
func (d *Dictionary) SetPath(path string) error {
	if !strings.HasSuffix(path, ".html") {
		return fmt.Errorf("%w: %q is not an .html file", ErrConfig, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %q is not readable: %w", ErrConfig, path, err)
	}

	_ = f.Close()

	if path == d.path {
		return nil
	}

	d.path = path
	d.tables = nil
	d.info = nil
	d.schema = nil
	d.codings.Purge()

	return nil
}

// SetCacheSize changes the coding cache capacity at runtime, evicting least
// recently used tables down to the new bound.
func (d *Dictionary) SetCacheSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: cache size must be positive, got %d", ErrConfig, n)
	}

	d.cacheSize = n
	d.codings.Resize(n)

	return nil
}

// CachedCodings returns the ids of the cached coding tables, least recently
// used first.
func (d *Dictionary) CachedCodings() []string {
	return d.codings.Keys()
}

// document parses the source file on first use.
func (d *Dictionary) document() ([]htmltab.Table, error) {
	if d.tables != nil {
		return d.tables, nil
	}

	f, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer func() { _ = f.Close() }()

	tables, err := htmltab.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	d.tables = tables

	return tables, nil
}

// Info parses the document's leading summary block. The result is cached
// until the path changes.
func (d *Dictionary) Info() (DocumentInfo, error) {
	if d.info != nil {
		return d.info, nil
	}

	tables, err := d.document()
	if err != nil {
		return nil, err
	}

	if len(tables) == 0 || len(tables[0].Rows) == 0 {
		return nil, fmt.Errorf("%w: document has no summary block", ErrParse)
	}

	info := make(DocumentInfo, len(tables[0].Rows))

	for _, row := range tables[0].Rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("%w: summary block row %q is not key/value", ErrParse, row)
		}

		info[row[0]] = row[1]
	}

	d.info = info

	return info, nil
}

// Schema parses the document's main table into the normalized field schema.
// The result is cached until the path changes.
func (d *Dictionary) Schema() (*Schema, error) {
	if d.schema != nil {
		return d.schema, nil
	}

	tables, err := d.document()
	if err != nil {
		return nil, err
	}

	if len(tables) < 2 {
		return nil, fmt.Errorf("%w: document has no main table", ErrParse)
	}

	schema, err := parseSchema(&tables[1])
	if err != nil {
		return nil, err
	}

	d.schema = schema

	return schema, nil
}

// Coding returns the coding table for a coding id, from the cache when
// possible. Hierarchical codings load from the coding file store (fetching
// the file when absent); flat codings load from the table embedded in the
// document. Retrieval failures are wrapped in ErrCodingRetrieval with the
// cause preserved.
func (d *Dictionary) Coding(ctx context.Context, id string) (*CodingTable, error) {
	if table, ok := d.codings.Get(id); ok {
		return table, nil
	}

	schema, err := d.Schema()
	if err != nil {
		return nil, err
	}

	owner := schema.CodingField(id)
	if owner == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCoding, id)
	}

	var table *CodingTable
	if owner.Hierarchical {
		table, err = d.codingFromStore(ctx, id)
	} else {
		table, err = d.codingFromDocument(id)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: coding %s: %w", ErrCodingRetrieval, id, err)
	}

	d.codings.Add(id, table)

	return table, nil
}

// codingFile resolves the local file path for a coding id.
func (d *Dictionary) codingFile(id string) string {
	return fmt.Sprintf(d.codingPath, id)
}

func (d *Dictionary) codingFromStore(ctx context.Context, id string) (*CodingTable, error) {
	path := d.codingFile(id)

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}

		if d.fetcher == nil {
			return nil, fmt.Errorf("coding file %s missing and no fetcher configured", path)
		}

		if err := d.fetcher.Fetch(ctx, id, path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.Contains(string(data), remoteErrorMarker) {
		_ = os.Remove(path)

		return nil, fmt.Errorf("%w: coding %s", ErrRemoteSource, id)
	}

	return parseCodingFile(id, string(data))
}

func (d *Dictionary) codingFromDocument(id string) (*CodingTable, error) {
	tables, err := d.document()
	if err != nil {
		return nil, err
	}

	caption := fmt.Sprintf("Coding %s", id)

	for i := range tables {
		if tables[i].Summary == caption {
			return parseCodingTable(id, &tables[i])
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrCodingNotFound, id)
}

// FieldCoding returns the coding table referenced by a field. In exact mode
// id must equal one UDI. In partial mode id is matched against the UDI
// portion before the first "-"; with several matches the first match's
// coding is used, since instances of one field share a coding.
func (d *Dictionary) FieldCoding(ctx context.Context, id string, partial bool) (*CodingTable, error) {
	field, err := d.findField(id, partial)
	if err != nil {
		return nil, err
	}

	if !field.HasCoding() {
		return nil, fmt.Errorf("%w: field %s references no coding", ErrUnknownCoding, id)
	}

	return d.Coding(ctx, field.CodingID)
}

// FieldName returns the human-readable name of a field: its description
// truncated at the coding reference. In partial mode all matched fields must
// share one description; differing descriptions fail with ErrAmbiguousField.
func (d *Dictionary) FieldName(id string, partial bool) (string, error) {
	if !partial {
		field, err := d.findField(id, false)
		if err != nil {
			return "", err
		}

		return field.Name(), nil
	}

	schema, err := d.Schema()
	if err != nil {
		return "", err
	}

	matches := schema.Match(id)
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}

	for _, m := range matches[1:] {
		if m.Description != matches[0].Description {
			return "", fmt.Errorf("%w: %s matches fields with differing names", ErrAmbiguousField, id)
		}
	}

	return matches[0].Name(), nil
}

func (d *Dictionary) findField(id string, partial bool) (*Field, error) {
	schema, err := d.Schema()
	if err != nil {
		return nil, err
	}

	if partial {
		matches := schema.Match(id)
		if len(matches) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, id)
		}

		return matches[0], nil
	}

	field, ok := schema.Field(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}

	return field, nil
}
