package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// TestResolveCycleBounded verifies that a self-referential typespace entry
// fails with UnresolvedRef instead of recursing forever.
func TestResolveCycleBounded(t *testing.T) {
	types := []wireType{
		{Tag: "Ref", Ref: ptr(uint32(0))},
	}
	r := newResolver(types)
	_, err := r.resolveIndex(0, 0)
	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, UnresolvedRef, se.Kind)
}

// TestResolveOutOfRangeRef verifies a Ref pointing outside the typespace
// fails with UnresolvedRef.
func TestResolveOutOfRangeRef(t *testing.T) {
	r := newResolver(nil)
	_, err := r.resolveIndex(3, 0)
	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, UnresolvedRef, se.Kind)
}

// TestResolveInlinesRefIntoProduct verifies property 5: after parsing, no
// column type reachable from a table resolves to Kind == KindRef.
func TestResolveInlinesRefIntoProduct(t *testing.T) {
	// typespace[0] = U32, typespace[1] = Product{ a: Ref(0) }
	types := []wireType{
		{Tag: "U32"},
		{Tag: "Product", Elements: []wireElement{
			{Name: ptr("a"), Type: wireType{Tag: "Ref", Ref: ptr(uint32(0))}},
		}},
	}
	r := newResolver(types)
	def, err := r.resolveTable(wireTable{Name: "widgets", ProductTypeRef: 1, PrimaryKey: []int{0}})
	require.NoError(t, err)
	require.Len(t, def.Columns, 1)
	assert.Equal(t, "a", def.Columns[0].Name)
	assert.Equal(t, KindU32, def.Columns[0].Type.Kind)
}

// TestResolveRecognizesOption verifies the some/none sum-to-Option
// conversion.
func TestResolveRecognizesOption(t *testing.T) {
	types := []wireType{
		{Tag: "String"},
		{
			Tag: "Sum",
			Variants: []wireVariant{
				{Name: "some", Type: &wireType{Tag: "Ref", Ref: ptr(uint32(0))}},
				{Name: "none"},
			},
		},
	}
	r := newResolver(types)
	resolved, err := r.resolveIndex(1, 0)
	require.NoError(t, err)
	require.Equal(t, KindOption, resolved.Kind)
	require.NotNil(t, resolved.Elem)
	assert.Equal(t, KindString, resolved.Elem.Kind)
}

// TestResolvePreservesGenericSum verifies a sum that is not the some/none
// shape stays a generic Sum.
func TestResolvePreservesGenericSum(t *testing.T) {
	types := []wireType{
		{Tag: "Sum", Variants: []wireVariant{
			{Name: "red"},
			{Name: "green"},
			{Name: "blue"},
		}},
	}
	r := newResolver(types)
	resolved, err := r.resolveIndex(0, 0)
	require.NoError(t, err)
	require.Equal(t, KindSum, resolved.Kind)
	assert.Len(t, resolved.Variants, 3)
}
