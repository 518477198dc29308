package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukb-tools/ukbtab"
)

const dictHTML = `<html><body>
<table summary="Information">
<tr><td>Date Extracted:</td><td>2023-08-14</td></tr>
<tr><td>Data columns:</td><td>9</td></tr>
</table>
<table summary="Main table">
<tr><th>Column</th><th>UDI</th><th>Type</th><th>Description</th><th>Count</th></tr>
<tr><td>0</td><td>eid</td><td>Sequence</td><td>Encoded anonymised participant ID</td><td>500</td></tr>
<tr><td>1</td><td>31-0.0</td><td>Integer</td><td>Number of live births</td><td>310</td></tr>
<tr><td>2</td><td>53-0.0</td><td>Date</td><td>Date of attending assessment centre</td><td>500</td></tr>
<tr><td>3</td><td>21-0.0</td><td>Categorical (single)</td><td>Weight method Uses data-coding 100261 comprises 5 Integer-valued specific meanings</td><td>495</td></tr>
<tr><td>4</td><td>41202-0.0</td><td>Categorical (multiple)</td><td>Diagnoses - main ICD10 Uses data-coding 19 comprises 19155 String-valued hierarchical entries</td><td>350</td></tr>
<tr><td>5</td><td>40000-0.0</td><td>Categorical (single)</td><td>Date of death Uses data-coding 272 comprises 3000 ERROR-valued entries</td><td>12</td></tr>
<tr><td>6</td><td>20002-0.0</td><td>Categorical (multiple)</td><td>Non-cancer illness code, self-reported Uses data-coding 6</td><td>200</td></tr>
<tr><td>7</td><td>77-0.0</td><td>Polymorphic</td><td>A type the mapping does not know</td><td>7</td></tr>
<tr><td>8</td><td>40010-0.0</td><td>Categorical (single)</td><td>Date of cancer diagnosis Uses data-coding 273 comprises 10 ERROR-valued entries</td><td>9</td></tr>
</table>
</body></html>`

func testDict(t *testing.T) *ukbtab.Dictionary {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "dict.html")
	require.NoError(t, os.WriteFile(path, []byte(dictHTML), 0o644))

	dict, err := ukbtab.New(path, ukbtab.WithCodingPath(filepath.Join(dir, "coding_%s.txt")))
	require.NoError(t, err)

	return dict
}

func TestStorageScalars(t *testing.T) {
	t.Parallel()

	res := New(testDict(t))
	mapping := ukbtab.DefaultMapping()

	tests := []struct {
		field string
		want  ukbtab.Storage
	}{
		{"eid", ukbtab.Storage{Scalar: ukbtab.Int64}},
		{"31-0.0", ukbtab.Storage{Scalar: ukbtab.Float64}},
		{"53-0.0", ukbtab.Storage{Scalar: ukbtab.DateDay, Format: "2006-01-02"}},
	}

	for _, tt := range tests {
		st, err := res.Storage(tt.field, mapping)
		require.NoError(t, err, tt.field)
		assert.Equal(t, tt.want, st, tt.field)
	}
}

func TestStorageDictionaryEncoding(t *testing.T) {
	t.Parallel()

	res := New(testDict(t))

	st, err := res.Storage("21-0.0", ukbtab.DefaultMapping())
	require.NoError(t, err)

	assert.Equal(t, ukbtab.Storage{Scalar: ukbtab.Float64, Index: 8}, st)
	assert.True(t, st.IsDictionary())
	assert.Equal(t, "dictionary(uint8, float64)", st.String())
}

func TestStorageCardinalityFallback(t *testing.T) {
	t.Parallel()

	res := New(testDict(t))

	// 19155 members exceed the default cutoff; the column stores raw values.
	st, err := res.Storage("41202-0.0", ukbtab.DefaultMapping())
	require.NoError(t, err)
	assert.Equal(t, ukbtab.Storage{Scalar: ukbtab.String}, st)
}

func TestStorageCutoffBoundary(t *testing.T) {
	t.Parallel()

	dict := testDict(t)
	mapping := ukbtab.DefaultMapping()

	// Exactly at the cutoff: still dictionary-encoded.
	st, err := New(dict, WithMaxCategories(5)).Storage("21-0.0", mapping)
	require.NoError(t, err)
	assert.Equal(t, 8, st.Index)

	// One past the cutoff: plain scalar.
	st, err = New(dict, WithMaxCategories(4)).Storage("21-0.0", mapping)
	require.NoError(t, err)
	assert.Zero(t, st.Index)
}

func TestStorageIncompleteCoding(t *testing.T) {
	t.Parallel()

	res := New(testDict(t))

	_, err := res.Storage("20002-0.0", ukbtab.DefaultMapping())
	require.ErrorIs(t, err, ErrIncompleteCoding)
}

func TestStorageUnmappedSemanticType(t *testing.T) {
	t.Parallel()

	res := New(testDict(t))

	_, err := res.Storage("77-0.0", ukbtab.DefaultMapping())
	require.ErrorIs(t, err, ErrUnmappedType)
}

func TestStorageUnmappedValueKind(t *testing.T) {
	t.Parallel()

	res := New(testDict(t))

	mapping := ukbtab.DefaultMapping()
	delete(mapping.ByValueKind, ukbtab.KindInteger)

	_, err := res.Storage("21-0.0", mapping)
	require.ErrorIs(t, err, ErrUnmappedType)
}

func TestStorageUnknownField(t *testing.T) {
	t.Parallel()

	res := New(testDict(t))

	_, err := res.Storage("404-0.0", ukbtab.DefaultMapping())
	require.ErrorIs(t, err, ukbtab.ErrFieldNotFound)
}

func TestStorageCategoricalOverride(t *testing.T) {
	t.Parallel()

	// With no categorical types configured, a categorical column resolves
	// through its semantic type like any other.
	res := New(testDict(t), WithCategoricalTypes())

	mapping := ukbtab.DefaultMapping()
	mapping.BySemanticType[ukbtab.CategoricalSingle] = ukbtab.Storage{Scalar: ukbtab.String}

	st, err := res.Storage("21-0.0", mapping)
	require.NoError(t, err)
	assert.Equal(t, ukbtab.Storage{Scalar: ukbtab.String}, st)
}

func TestStorageTypesSkipsDates(t *testing.T) {
	t.Parallel()

	res := New(testDict(t))

	fields := []string{"eid", "31-0.0", "53-0.0", "21-0.0", "40000-0.0", "40010-0.0"}

	types, err := res.StorageTypes(fields, ukbtab.DefaultMapping())
	require.NoError(t, err)

	assert.Contains(t, types, "eid")
	assert.Contains(t, types, "31-0.0")
	assert.Contains(t, types, "21-0.0")

	// Date-resolved fields are reported by DateFormats instead, whether the
	// date came from the semantic type, the fallback path, or a
	// dictionary-encoded date coding.
	assert.NotContains(t, types, "53-0.0")
	assert.NotContains(t, types, "40000-0.0")
	assert.NotContains(t, types, "40010-0.0")
}

func TestDateFormats(t *testing.T) {
	t.Parallel()

	res := New(testDict(t))

	fields := []string{"eid", "53-0.0", "21-0.0", "40000-0.0", "40010-0.0", "41202-0.0"}

	formats, err := res.DateFormats(fields, ukbtab.DefaultMapping())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		// Semantic date.
		"53-0.0": "2006-01-02",
		// High-cardinality coding with the date placeholder kind.
		"40000-0.0": "2006-01-02",
		// Low-cardinality date coding: StorageTypes skips it, so it must
		// surface here.
		"40010-0.0": "2006-01-02",
	}, formats)
}

func TestCoverage(t *testing.T) {
	t.Parallel()

	res := New(testDict(t))

	missingTypes, missingKinds, err := res.Coverage(ukbtab.DefaultMapping())
	require.NoError(t, err)
	assert.Equal(t, []ukbtab.SemanticType{"Polymorphic"}, missingTypes)
	assert.Empty(t, missingKinds)

	mapping := ukbtab.DefaultMapping()
	mapping.BySemanticType["Polymorphic"] = ukbtab.Storage{Scalar: ukbtab.String}
	delete(mapping.ByValueKind, ukbtab.KindString)

	missingTypes, missingKinds, err = res.Coverage(mapping)
	require.NoError(t, err)
	assert.Empty(t, missingTypes)
	assert.Equal(t, []ukbtab.ValueKind{ukbtab.KindString}, missingKinds)
}

func TestIndexWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		members int
		want    int
	}{
		{1, 8},
		{255, 8},
		{256, 8},
		{257, 16},
		{65536, 16},
		{65537, 32},
		{1 << 32, 32},
		{1<<32 + 1, 64},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, indexWidth(tt.members), "members=%d", tt.members)
	}
}
