package encode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacetimedb/sdk-go/bsatn"
	"github.com/spacetimedb/sdk-go/encode"
	"github.com/spacetimedb/sdk-go/schema"
)

func TestEncodePrimitives(t *testing.T) {
	b, err := encode.Value(uint32(42), schema.AlgebraicType{Kind: schema.KindU32})
	require.NoError(t, err)
	assert.Equal(t, bsatn.EncodeU32(42), b)

	b, err = encode.Value(3.25, schema.AlgebraicType{Kind: schema.KindF64})
	require.NoError(t, err)
	assert.Equal(t, bsatn.EncodeF64(3.25), b)

	// Integers widen losslessly into float fields.
	b, err = encode.Value(7, schema.AlgebraicType{Kind: schema.KindF64})
	require.NoError(t, err)
	assert.Equal(t, bsatn.EncodeF64(7.0), b)
}

func TestEncodeFloatRejectsForIntegerType(t *testing.T) {
	_, err := encode.Value(3.14, schema.AlgebraicType{Kind: schema.KindU32})
	require.Error(t, err)
	var ee *encode.Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, encode.TypeMismatch, ee.Kind)
}

func TestEncodeOptionConventions(t *testing.T) {
	elem := schema.AlgebraicType{Kind: schema.KindU32}
	opt := schema.AlgebraicType{Kind: schema.KindOption, Elem: &elem}

	none, err := encode.Value(nil, opt)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, none)

	// Bare value auto-wraps as Some.
	some, err := encode.Value(uint32(5), opt)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0x00}, bsatn.EncodeU32(5)...), some)
}

func TestEncodeProductMissingField(t *testing.T) {
	cols := []schema.Column{
		{Name: "id", Type: schema.AlgebraicType{Kind: schema.KindU32}},
		{Name: "name", Type: schema.AlgebraicType{Kind: schema.KindString}},
	}
	_, err := encode.Value(map[string]any{"id": uint32(1)}, schema.AlgebraicType{Kind: schema.KindProduct, Elements: cols})
	require.Error(t, err)
	var ee *encode.Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, encode.MissingField, ee.Kind)
	assert.Equal(t, "name", ee.Field)
}

func TestReducerArgsEncodesAsProduct(t *testing.T) {
	reducer := schema.ReducerDef{
		Name: "set_age",
		Params: []schema.Column{
			{Name: "id", Type: schema.AlgebraicType{Kind: schema.KindU64}},
			{Name: "age", Type: schema.AlgebraicType{Kind: schema.KindU32}},
		},
	}
	b, err := encode.ReducerArgs(map[string]any{"id": uint64(1), "age": uint32(31)}, reducer)
	require.NoError(t, err)
	expected := append(bsatn.EncodeU64(1), bsatn.EncodeU32(31)...)
	assert.Equal(t, expected, b)
}

func TestEncodeArray(t *testing.T) {
	elem := schema.AlgebraicType{Kind: schema.KindU32}
	arr := schema.AlgebraicType{Kind: schema.KindArray, Elem: &elem}
	b, err := encode.Value([]any{uint32(1), uint32(2), uint32(3)}, arr)
	require.NoError(t, err)

	expected := bsatn.EncodeArray([]uint32{1, 2, 3}, bsatn.EncodeU32)
	assert.Equal(t, expected, b)
}
