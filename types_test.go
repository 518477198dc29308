package ukbtab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukb-tools/ukbtab"
)

func TestSemanticTypeCategorical(t *testing.T) {
	t.Parallel()

	assert.True(t, ukbtab.CategoricalSingle.Categorical())
	assert.True(t, ukbtab.CategoricalMultiple.Categorical())
	assert.False(t, ukbtab.Integer.Categorical())
	assert.False(t, ukbtab.Text.Categorical())
}

func TestStorageString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		storage ukbtab.Storage
		want    string
	}{
		{"plain scalar", ukbtab.Storage{Scalar: ukbtab.Int64}, "int64"},
		{"date with layout", ukbtab.Storage{Scalar: ukbtab.DateDay, Format: "2006-01-02"}, "date(2006-01-02)"},
		{"dictionary", ukbtab.Storage{Scalar: ukbtab.Float64, Index: 8}, "dictionary(uint8, float64)"},
		{"wide dictionary", ukbtab.Storage{Scalar: ukbtab.String, Index: 16}, "dictionary(uint16, string)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.storage.String())
		})
	}
}

func TestStoragePredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, ukbtab.Storage{Scalar: ukbtab.DateDay, Format: "2006-01-02"}.IsDate())
	assert.True(t, ukbtab.Storage{Scalar: ukbtab.Timestamp, Format: "2006-01-02 15:04:05"}.IsDate())
	assert.False(t, ukbtab.Storage{Scalar: ukbtab.Float64}.IsDate())

	assert.True(t, ukbtab.Storage{Scalar: ukbtab.Float64, Index: 8}.IsDictionary())
	assert.False(t, ukbtab.Storage{Scalar: ukbtab.Float64}.IsDictionary())
}

func TestParseStorage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		want    ukbtab.Storage
		wantErr bool
	}{
		{value: "int64", want: ukbtab.Storage{Scalar: ukbtab.Int64}},
		{value: "float64", want: ukbtab.Storage{Scalar: ukbtab.Float64}},
		{value: "string", want: ukbtab.Storage{Scalar: ukbtab.String}},
		{value: "date:2006-01-02", want: ukbtab.Storage{Scalar: ukbtab.DateDay, Format: "2006-01-02"}},
		{value: "timestamp:2006-01-02 15:04:05", want: ukbtab.Storage{Scalar: ukbtab.Timestamp, Format: "2006-01-02 15:04:05"}},
		{value: "date", wantErr: true},
		{value: "timestamp:", wantErr: true},
		{value: "int64:2006", wantErr: true},
		{value: "decimal", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()

			st, err := ukbtab.ParseStorage(tt.value)
			if tt.wantErr {
				require.ErrorIs(t, err, ukbtab.ErrConfig)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, st)
		})
	}
}

func TestDefaultMappingIsIndependent(t *testing.T) {
	t.Parallel()

	first := ukbtab.DefaultMapping()
	first.BySemanticType[ukbtab.Integer] = ukbtab.Storage{Scalar: ukbtab.Int64}
	first.ByValueKind[ukbtab.KindString] = ukbtab.Storage{Scalar: ukbtab.Int64}

	second := ukbtab.DefaultMapping()
	assert.Equal(t, ukbtab.Storage{Scalar: ukbtab.Float64}, second.BySemanticType[ukbtab.Integer])
	assert.Equal(t, ukbtab.Storage{Scalar: ukbtab.String}, second.ByValueKind[ukbtab.KindString])
}

func TestTypeMappingClone(t *testing.T) {
	t.Parallel()

	original := ukbtab.DefaultMapping()
	clone := original.Clone()

	clone.BySemanticType[ukbtab.Text] = ukbtab.Storage{Scalar: ukbtab.Int64}

	assert.Equal(t, ukbtab.Storage{Scalar: ukbtab.String}, original.BySemanticType[ukbtab.Text])
}

func TestTypeMappingOverrides(t *testing.T) {
	t.Parallel()

	mapping := ukbtab.DefaultMapping()

	require.NoError(t, mapping.SetSemanticType("Integer", "int64"))
	assert.Equal(t, ukbtab.Storage{Scalar: ukbtab.Int64}, mapping.BySemanticType[ukbtab.Integer])

	require.NoError(t, mapping.SetValueKind("ERROR", "date:02/01/2006"))
	assert.Equal(t, ukbtab.Storage{Scalar: ukbtab.DateDay, Format: "02/01/2006"}, mapping.ByValueKind[ukbtab.KindDateError])

	require.ErrorIs(t, mapping.SetSemanticType("Integer", "decimal"), ukbtab.ErrConfig)
}

func TestDefaultCategoricalTypes(t *testing.T) {
	t.Parallel()

	first := ukbtab.DefaultCategoricalTypes()
	first[0] = ukbtab.Text

	second := ukbtab.DefaultCategoricalTypes()
	assert.Equal(t, []ukbtab.SemanticType{ukbtab.CategoricalSingle, ukbtab.CategoricalMultiple}, second)
}
