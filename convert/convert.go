// Package convert implements the TSV to Parquet conversion pipeline: it
// reads a UK Biobank TSV export, resolves each column's storage type
// through the data dictionary, parses cells accordingly, and writes
// snappy-compressed Parquet part files plus a README manifest.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ukb-tools/ukbtab"
	"github.com/ukb-tools/ukbtab/resolve"
)

// Sentinel errors.
var (
	// ErrOutDirNotEmpty is returned when the output directory already holds
	// files and the force option is off.
	ErrOutDirNotEmpty = errors.New("convert: output directory not empty")

	// ErrColumnUnknown is returned when a TSV column is absent from the data
	// dictionary.
	ErrColumnUnknown = errors.New("convert: column not in data dictionary")

	// ErrColumnDuplicated is returned when a TSV column appears more than
	// once in the header.
	ErrColumnDuplicated = errors.New("convert: duplicated column")
)

// DefaultEncoding is the character encoding UK Biobank TSV exports ship in.
const DefaultEncoding = "windows-1252"

// Converter converts one TSV export to Parquet.
type Converter struct {
	dict     *ukbtab.Dictionary
	res      *resolve.Resolver
	mapping  ukbtab.TypeMapping
	encoding string
	rowLimit int
	parts    int
	offset   int
	force    bool
	log      *zap.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithResolver sets the type resolver. Defaults to a resolver with default
// categorical types and cutoff.
func WithResolver(r *resolve.Resolver) Option {
	return func(c *Converter) {
		c.res = r
	}
}

// WithMapping sets the type mapping. Defaults to ukbtab.DefaultMapping.
func WithMapping(m ukbtab.TypeMapping) Option {
	return func(c *Converter) {
		c.mapping = m.Clone()
	}
}

// WithEncoding sets the TSV character encoding (any name the WHATWG
// encoding registry knows, e.g. "windows-1252", "utf-8").
func WithEncoding(name string) Option {
	return func(c *Converter) {
		c.encoding = name
	}
}

// WithRowLimit keeps only the first n data rows. Zero keeps all rows.
func WithRowLimit(n int) Option {
	return func(c *Converter) {
		c.rowLimit = n
	}
}

// WithPartitions splits the output into n Parquet part files.
func WithPartitions(n int) Option {
	return func(c *Converter) {
		c.parts = n
	}
}

// WithTabOffset compensates for stray tabs in data rows: positive for extra
// leading tabs, negative for extra trailing tabs.
func WithTabOffset(n int) Option {
	return func(c *Converter) {
		c.offset = n
	}
}

// WithForce allows writing into a non-empty output directory.
func WithForce(force bool) Option {
	return func(c *Converter) {
		c.force = force
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Converter) {
		c.log = log
	}
}

// New creates a Converter reading column metadata from dict.
func New(dict *ukbtab.Dictionary, opts ...Option) *Converter {
	c := &Converter{
		dict:     dict,
		encoding: DefaultEncoding,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.res == nil {
		c.res = resolve.New(dict)
	}

	if c.mapping.BySemanticType == nil {
		c.mapping = ukbtab.DefaultMapping()
	}

	return c
}

// Result summarizes one conversion run.
type Result struct {
	Columns int
	Rows    int64
	Files   []string
}

// Run converts the TSV at tsvPath into Parquet part files under outDir.
func (c *Converter) Run(ctx context.Context, tsvPath, outDir string) (*Result, error) {
	if err := c.prepareOutDir(outDir); err != nil {
		return nil, err
	}

	names, err := Columns(tsvPath, c.encoding, c.dict)
	if err != nil {
		return nil, err
	}

	c.log.Info("resolved header",
		zap.String("tsv", tsvPath),
		zap.Int("columns", len(names)))

	columns, err := c.buildColumns(ctx, names)
	if err != nil {
		return nil, err
	}

	rows, err := c.readRows(tsvPath, columns)
	if err != nil {
		return nil, err
	}

	c.log.Info("read data rows", zap.Int("rows", len(rows)))

	files, err := c.writeParts(outDir, columns, rows)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Columns: len(columns),
		Rows:    int64(len(rows)),
		Files:   files,
	}

	if err := c.writeManifest(outDir, tsvPath, columns, result); err != nil {
		return nil, err
	}

	c.log.Info("conversion done",
		zap.Int64("rows", result.Rows),
		zap.Strings("files", result.Files))

	return result, nil
}

// prepareOutDir creates the output directory, refusing a non-empty one
// unless force is set.
func (c *Converter) prepareOutDir(outDir string) error {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.MkdirAll(outDir, 0o755)
		}

		return err
	}

	if len(entries) > 0 {
		if !c.force {
			return fmt.Errorf("%w: %s (use force to overwrite)", ErrOutDirNotEmpty, outDir)
		}

		c.log.Warn("output directory not empty, forcing", zap.String("dir", outDir))
	}

	return nil
}

// buildColumns resolves the storage descriptor for every column and loads
// dictionary categories for dictionary-encoded ones.
func (c *Converter) buildColumns(ctx context.Context, names []string) ([]*column, error) {
	schema, err := c.dict.Schema()
	if err != nil {
		return nil, err
	}

	columns := make([]*column, len(names))

	for i, name := range names {
		st, err := c.res.Storage(name, c.mapping)
		if err != nil {
			return nil, err
		}

		col := &column{
			name:    name,
			pqName:  parquetName(name),
			storage: st,
		}

		if st.IsDictionary() {
			field, _ := schema.Field(name)

			coding, err := c.dict.Coding(ctx, field.CodingID)
			if err != nil {
				return nil, err
			}

			col.categories = categorySet(coding)
		}

		columns[i] = col
	}

	return columns, nil
}

// categorySet returns the valid code set of a coding: selectable entries
// only for hierarchical codings.
func categorySet(coding *ukbtab.CodingTable) map[string]bool {
	codes := coding.SelectableCodes()

	set := make(map[string]bool, len(codes))
	for _, code := range codes {
		set[code] = true
	}

	return set
}

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}
