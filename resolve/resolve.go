// Package resolve maps data dictionary fields to concrete storage types:
// scalar types for plain columns, dictionary encodings for low-cardinality
// categorical columns, and date layouts for date-resolved columns.
package resolve

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ukb-tools/ukbtab"
)

// Sentinel errors.
var (
	// ErrIncompleteCoding is returned when a categorical field's description
	// stated no member count or value kind for its coding.
	ErrIncompleteCoding = errors.New("resolve: categorical field lacks coding metadata")

	// ErrUnmappedType is returned when a type mapping has no entry for a
	// semantic type or coding value kind present in the schema.
	ErrUnmappedType = errors.New("resolve: no mapping for type")
)

// DefaultMaxCategories is the default cardinality cutoff for dictionary
// encoding.
const DefaultMaxCategories = 256

// Resolver resolves storage types against one Dictionary.
type Resolver struct {
	dict          *ukbtab.Dictionary
	categorical   []ukbtab.SemanticType
	maxCategories int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCategoricalTypes sets the semantic types treated as categorical.
func WithCategoricalTypes(types ...ukbtab.SemanticType) Option {
	return func(r *Resolver) {
		r.categorical = types
	}
}

// WithMaxCategories sets the cardinality cutoff: codings with at most n
// members are dictionary-encoded, larger ones fall back to their value
// kind's scalar type.
func WithMaxCategories(n int) Option {
	return func(r *Resolver) {
		r.maxCategories = n
	}
}

// New creates a Resolver with the given options.
func New(dict *ukbtab.Dictionary, opts ...Option) *Resolver {
	r := &Resolver{
		dict:          dict,
		categorical:   ukbtab.DefaultCategoricalTypes(),
		maxCategories: DefaultMaxCategories,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// MaxCategories returns the configured cardinality cutoff.
func (r *Resolver) MaxCategories() int { return r.maxCategories }

// StorageTypes resolves the storage descriptor for each requested field,
// excluding fields that resolve to a date (those are reported by
// DateFormats instead). The whole batch fails on the first unresolvable
// field; use Coverage beforehand to fail fast on mapping gaps.
func (r *Resolver) StorageTypes(fields []string, mapping ukbtab.TypeMapping) (map[string]ukbtab.Storage, error) {
	out := make(map[string]ukbtab.Storage, len(fields))

	for _, name := range fields {
		st, err := r.storageFor(name, mapping)
		if err != nil {
			return nil, err
		}

		if st.IsDate() {
			continue
		}

		out[name] = st
	}

	return out, nil
}

// Storage resolves the storage descriptor for one field, date or not.
func (r *Resolver) Storage(field string, mapping ukbtab.TypeMapping) (ukbtab.Storage, error) {
	return r.storageFor(field, mapping)
}

func (r *Resolver) storageFor(name string, mapping ukbtab.TypeMapping) (ukbtab.Storage, error) {
	schema, err := r.dict.Schema()
	if err != nil {
		return ukbtab.Storage{}, err
	}

	field, ok := schema.Field(name)
	if !ok {
		return ukbtab.Storage{}, fmt.Errorf("%w: %s", ukbtab.ErrFieldNotFound, name)
	}

	if !r.isCategorical(field.Type) {
		st, ok := mapping.BySemanticType[field.Type]
		if !ok {
			return ukbtab.Storage{}, fmt.Errorf("%w: semantic type %q (field %s)", ErrUnmappedType, field.Type, name)
		}

		return st, nil
	}

	if field.CodingMembers == nil || field.CodingKind == "" {
		return ukbtab.Storage{}, fmt.Errorf("%w: field %s (coding %q)", ErrIncompleteCoding, name, field.CodingID)
	}

	value, ok := mapping.ByValueKind[field.CodingKind]
	if !ok {
		return ukbtab.Storage{}, fmt.Errorf("%w: value kind %q (field %s)", ErrUnmappedType, field.CodingKind, name)
	}

	if *field.CodingMembers > r.maxCategories {
		// Exceeding-cardinality fallback: store the raw value type.
		return value, nil
	}

	value.Index = indexWidth(*field.CodingMembers)

	return value, nil
}

// indexWidth returns the smallest dictionary index width in {8, 16, 32, 64}
// whose representable range covers the member count.
func indexWidth(members int) int {
	for _, w := range []int{8, 16, 32} {
		if int64(members) <= int64(1)<<w {
			return w
		}
	}

	return 64
}

// DateFormats returns the date layout for each requested field that
// resolves to a date: fields whose semantic type maps to a date descriptor,
// and categorical fields whose value kind maps to a date descriptor. The
// latter is independent of the cardinality cutoff, so every field Storage
// resolves to a date (dictionary-encoded or not) lands here instead of in
// StorageTypes.
func (r *Resolver) DateFormats(fields []string, mapping ukbtab.TypeMapping) (map[string]string, error) {
	schema, err := r.dict.Schema()
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)

	for _, name := range fields {
		field, ok := schema.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ukbtab.ErrFieldNotFound, name)
		}

		if st, ok := mapping.BySemanticType[field.Type]; ok && st.IsDate() {
			out[name] = st.Format

			continue
		}

		if !r.isCategorical(field.Type) || field.CodingKind == "" {
			continue
		}

		if st, ok := mapping.ByValueKind[field.CodingKind]; ok && st.IsDate() {
			out[name] = st.Format
		}
	}

	return out, nil
}

// Coverage reports the semantic types and coding value kinds present in the
// schema that the mapping lacks entries for. Semantic types configured as
// categorical are excluded from the first set; value kinds are collected
// from categorical fields only. Callers should fail fast when either slice
// is non-empty rather than hit ErrUnmappedType mid-resolution.
func (r *Resolver) Coverage(mapping ukbtab.TypeMapping) (missingTypes []ukbtab.SemanticType, missingKinds []ukbtab.ValueKind, err error) {
	schema, err := r.dict.Schema()
	if err != nil {
		return nil, nil, err
	}

	seenTypes := map[ukbtab.SemanticType]bool{}
	seenKinds := map[ukbtab.ValueKind]bool{}

	for _, field := range schema.Fields {
		if r.isCategorical(field.Type) {
			if field.CodingKind != "" {
				seenKinds[field.CodingKind] = true
			}

			continue
		}

		seenTypes[field.Type] = true
	}

	for t := range seenTypes {
		if _, ok := mapping.BySemanticType[t]; !ok {
			missingTypes = append(missingTypes, t)
		}
	}

	for k := range seenKinds {
		if _, ok := mapping.ByValueKind[k]; !ok {
			missingKinds = append(missingKinds, k)
		}
	}

	slices.Sort(missingTypes)
	slices.Sort(missingKinds)

	return missingTypes, missingKinds, nil
}

func (r *Resolver) isCategorical(t ukbtab.SemanticType) bool {
	return slices.Contains(r.categorical, t)
}
