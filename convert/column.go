package convert

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ukb-tools/ukbtab"
)

// column carries everything needed to parse one TSV column into its storage
// representation.
type column struct {
	// name is the TSV column name (the UDI).
	name string

	// pqName is the sanitized Parquet field name.
	pqName string

	// storage is the resolved storage descriptor.
	storage ukbtab.Storage

	// categories is the valid code set for dictionary-encoded columns,
	// nil otherwise.
	categories map[string]bool
}

// parse converts a raw cell into its storage value. Empty cells and codes
// outside a dictionary column's category set become null (nil).
func (c *column) parse(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}

	if c.categories != nil && !c.categories[raw] {
		return nil, nil
	}

	switch c.storage.Scalar {
	case ukbtab.Int64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not an integer", raw)
		}

		return v, nil
	case ukbtab.Float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a number", raw)
		}

		return v, nil
	case ukbtab.String:
		return raw, nil
	case ukbtab.DateDay:
		t, err := time.Parse(c.storage.Format, raw)
		if err != nil {
			return nil, fmt.Errorf("value %q does not match date layout %q", raw, c.storage.Format)
		}

		// DATE logical type: days since the Unix epoch.
		return int32(t.Unix() / 86400), nil
	case ukbtab.Timestamp:
		t, err := time.Parse(c.storage.Format, raw)
		if err != nil {
			return nil, fmt.Errorf("value %q does not match timestamp layout %q", raw, c.storage.Format)
		}

		return t.UnixMilli(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type %s", c.storage)
	}
}

// parquetName sanitizes a UDI into a Parquet field name: dots and dashes
// become underscores (Parquet paths use dots), and names starting with a
// digit gain an "f" prefix.
func parquetName(udi string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}

		return '_'
	}, udi)

	if name == "" || unicode.IsDigit(rune(name[0])) {
		name = "f" + name
	}

	return name
}
