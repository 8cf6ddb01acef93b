package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cargoSchema = Schema{
	"key":             TypeText,
	"name":            TypeText,
	"namespace_name":  TypeText,
	"spec_key":        TypeUuid,
	"created_at":      TypeTimestamptz,
}

func TestBuild_DefaultsLimitAndOffset(t *testing.T) {
	where, _, limitOffset, args, err := Build(GenericFilter{}, cargoSchema, 0)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", where)
	assert.Equal(t, "LIMIT 100 OFFSET 0", limitOffset)
	assert.Empty(t, args)
}

func TestBuild_EqClause(t *testing.T) {
	f := GenericFilter{Where: map[string]Clause{"name": {Op: OpEq, Value: "hello"}}}
	where, _, _, args, err := Build(f, cargoSchema, 0)
	require.NoError(t, err)
	assert.Equal(t, "name = $1", where)
	assert.Equal(t, []any{"hello"}, args)
}

func TestBuild_UnknownKeyIgnored(t *testing.T) {
	f := GenericFilter{Where: map[string]Clause{
		"name":          {Op: OpEq, Value: "hello"},
		"nonexistent_x": {Op: OpEq, Value: "whatever"},
	}}
	where, _, _, args, err := Build(f, cargoSchema, 0)
	require.NoError(t, err)
	assert.Equal(t, "name = $1", where)
	assert.Equal(t, []any{"hello"}, args)
}

func TestBuild_ContainsRejectsNonJsonbColumn(t *testing.T) {
	f := GenericFilter{Where: map[string]Clause{"name": {Op: OpContains, Value: "x"}}}
	_, _, _, _, err := Build(f, cargoSchema, 0)
	require.Error(t, err)
}

func TestBuild_ContainsOnJsonbColumn(t *testing.T) {
	schema := Schema{"data": TypeJsonb}
	f := GenericFilter{Where: map[string]Clause{"data": {Op: OpContains, Value: `{"a":1}`}}}
	where, _, _, args, err := Build(f, schema, 0)
	require.NoError(t, err)
	assert.Equal(t, "data @> $1", where)
	assert.Equal(t, []any{`{"a":1}`}, args)
}

func TestBuild_OrderByUnknownColumnDropped(t *testing.T) {
	f := GenericFilter{OrderBy: []string{"created_at DESC", "bogus_col ASC"}}
	_, order, _, _, err := Build(f, cargoSchema, 0)
	require.NoError(t, err)
	assert.Equal(t, "ORDER BY created_at DESC", order)
}

func TestBuild_OrDisjunction(t *testing.T) {
	f := GenericFilter{
		Where: map[string]Clause{"namespace_name": {Op: OpEq, Value: "global"}},
		Or: []map[string]Clause{
			{"key": {Op: OpEq, Value: "a"}},
			{"key": {Op: OpEq, Value: "b"}},
		},
	}
	where, _, _, args, err := Build(f, cargoSchema, 0)
	require.NoError(t, err)
	assert.Equal(t, "(namespace_name = $1) OR (key = $2 OR key = $3)", where)
	assert.Equal(t, []any{"global", "a", "b"}, args)
}

func TestBuild_CustomLimitAndNegativeOffsetClamped(t *testing.T) {
	f := GenericFilter{Limit: 10, Offset: -5}
	_, _, limitOffset, _, err := Build(f, cargoSchema, 0)
	require.NoError(t, err)
	assert.Equal(t, "LIMIT 10 OFFSET 0", limitOffset)
}
