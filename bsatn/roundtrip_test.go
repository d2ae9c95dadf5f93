package bsatn_test

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacetimedb/sdk-go/bsatn"
)

// TestRoundTripPrimitives verifies property 1 from spec.md: for every
// primitive type T and every value v in T's domain, decode(encode(v)) == v.
func TestRoundTripPrimitives(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("bool round-trips", prop.ForAll(
		func(v bool) bool {
			got, rest, err := bsatn.DecodeBool(bsatn.EncodeBool(v))
			return err == nil && len(rest) == 0 && got == v
		},
		gen.Bool(),
	))

	properties.Property("u32 round-trips", prop.ForAll(
		func(v uint32) bool {
			got, rest, err := bsatn.DecodeU32(bsatn.EncodeU32(v))
			return err == nil && len(rest) == 0 && got == v
		},
		gen.UInt32(),
	))

	properties.Property("i64 round-trips", prop.ForAll(
		func(v int64) bool {
			got, rest, err := bsatn.DecodeI64(bsatn.EncodeI64(v))
			return err == nil && len(rest) == 0 && got == v
		},
		gen.Int64(),
	))

	properties.Property("f64 round-trips bit-for-bit", prop.ForAll(
		func(v float64) bool {
			got, rest, err := bsatn.DecodeF64(bsatn.EncodeF64(v))
			if err != nil || len(rest) != 0 {
				return false
			}
			return math.Float64bits(got) == math.Float64bits(v)
		},
		gen.Float64(),
	))

	properties.TestingRun(t)
}

// TestRoundTripString verifies property 2: decode(encode(s)) == s for every
// UTF-8 string.
func TestRoundTripString(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("string round-trips", prop.ForAll(
		func(s string) bool {
			got, rest, err := bsatn.DecodeString(bsatn.EncodeString(s))
			return err == nil && len(rest) == 0 && got == s
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestDecodeStringInvalidUTF8(t *testing.T) {
	// Length prefix is valid (2 bytes) but the payload is not valid UTF-8.
	raw := append(bsatn.EncodeU32(2), 0xff, 0xfe)
	_, _, err := bsatn.DecodeString(raw)
	require.Error(t, err)
	var de *bsatn.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, bsatn.InvalidUTF8, de.Kind)
	assert.Equal(t, 2, de.Length)
}

func TestDecodeBoolInvalidByte(t *testing.T) {
	_, _, err := bsatn.DecodeBool([]byte{2})
	require.Error(t, err)
	var de *bsatn.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, bsatn.InvalidBool, de.Kind)
	assert.Equal(t, 2, de.Detail)
}

// TestOptionConvention verifies property 3: encode_option(None) is exactly
// one byte 0x01; encode_option(Some(v)) is 0x00 followed by encode(v).
func TestOptionConvention(t *testing.T) {
	none := bsatn.EncodeOption[uint32](nil, bsatn.EncodeU32)
	assert.Equal(t, []byte{0x01}, none)

	v := uint32(7)
	some := bsatn.EncodeOption(&v, bsatn.EncodeU32)
	assert.Equal(t, append([]byte{0x00}, bsatn.EncodeU32(7)...), some)
}

func TestDecodeOptionInvalidTag(t *testing.T) {
	_, _, err := bsatn.DecodeOption(([]byte{9}), bsatn.DecodeU32)
	require.Error(t, err)
	var de *bsatn.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, bsatn.InvalidOptionTag, de.Kind)
}

// TestRoundTripArray verifies property 4: decode(encode(xs)) == xs, and that
// decoding does not read beyond exactly N successful element decodes.
func TestRoundTripArray(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("array of u32 round-trips", prop.ForAll(
		func(xs []uint32) bool {
			encoded := bsatn.EncodeArray(xs, bsatn.EncodeU32)
			got, rest, err := bsatn.DecodeArray(encoded, bsatn.DecodeU32)
			if err != nil || len(rest) != 0 {
				return false
			}
			if len(got) != len(xs) {
				return false
			}
			for i := range xs {
				if got[i] != xs[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt32()),
	))

	properties.TestingRun(t)
}

func TestArrayStopsAtCount(t *testing.T) {
	encoded := bsatn.EncodeArray([]uint32{1, 2}, bsatn.EncodeU32)
	trailing := []byte{0xde, 0xad, 0xbe, 0xef}
	encoded = append(encoded, trailing...)

	got, rest, err := bsatn.DecodeArray(encoded, bsatn.DecodeU32)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, got)
	assert.Equal(t, trailing, rest)
}

func TestWideIntRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name  string
		value int64
	}{
		{"zero", 0},
		{"positive", 123456789},
		{"negative", -987654321},
	} {
		t.Run(tc.name, func(t *testing.T) {
			big128 := bigFromInt64(tc.value)
			encoded := bsatn.EncodeWideInt(big128, 16)
			decoded, rest, err := bsatn.DecodeWideInt(encoded, 16)
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.Equal(t, tc.value, decoded.Int64())
		})
	}
}
