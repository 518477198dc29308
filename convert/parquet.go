package convert

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/zap"

	"github.com/ukb-tools/ukbtab"
)

// writeParts splits rows into partition slices and writes one Parquet part
// file each.
func (c *Converter) writeParts(outDir string, columns []*column, rows []map[string]any) ([]string, error) {
	parts := c.parts
	if parts <= 0 {
		parts = 1
	}

	if parts > len(rows) && len(rows) > 0 {
		parts = len(rows)
	}

	schema := schemaJSON(columns)

	var files []string

	for i, part := range splitRows(rows, parts) {
		path := filepath.Join(outDir, fmt.Sprintf("part-%06d.parquet", i))

		if err := writePart(path, schema, part); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}

		c.log.Debug("wrote part file",
			zap.String("path", path),
			zap.Int("rows", len(part)))

		files = append(files, path)
	}

	return files, nil
}

// splitRows splits rows into n near-equal contiguous slices.
func splitRows(rows []map[string]any, n int) [][]map[string]any {
	out := make([][]map[string]any, 0, n)

	start := 0

	for i := 0; i < n; i++ {
		size := len(rows) / n
		if i < len(rows)%n {
			size++
		}

		out = append(out, rows[start:start+size])
		start += size
	}

	return out
}

// writePart writes one Parquet file with snappy compression.
func writePart(path, schema string, rows []map[string]any) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}

	pw, err := writer.NewJSONWriter(schema, fw, 4)
	if err != nil {
		_ = fw.Close()

		return err
	}

	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()

			return err
		}

		if err := pw.Write(string(data)); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()

			return err
		}
	}

	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()

		return err
	}

	return fw.Close()
}

// schemaJSON builds the parquet-go JSON schema definition for the resolved
// columns. All fields are optional; sparse columns are the norm.
func schemaJSON(columns []*column) string {
	fields := make([]map[string]string, 0, len(columns))
	for _, c := range columns {
		fields = append(fields, map[string]string{
			"Tag": fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", c.pqName, physicalTag(c.storage)),
		})
	}

	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}

	b, _ := json.Marshal(out)

	return string(b)
}

// physicalTag maps a storage descriptor to its Parquet physical and
// converted type. Dictionary-encoded columns are written as their value
// type; Parquet applies its own dictionary encoding at the page level.
func physicalTag(st ukbtab.Storage) string {
	switch st.Scalar {
	case ukbtab.Int64:
		return "type=INT64"
	case ukbtab.Float64:
		return "type=DOUBLE"
	case ukbtab.DateDay:
		return "type=INT32, convertedtype=DATE"
	case ukbtab.Timestamp:
		return "type=INT64, convertedtype=TIMESTAMP_MILLIS"
	default:
		return "type=BYTE_ARRAY, convertedtype=UTF8"
	}
}
