package rowlist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacetimedb/sdk-go/bsatn"
	"github.com/spacetimedb/sdk-go/rowlist"
	"github.com/spacetimedb/sdk-go/schema"
	"github.com/spacetimedb/sdk-go/value"
)

var idNameCols = []schema.Column{
	{Name: "id", Type: schema.AlgebraicType{Kind: schema.KindU32}},
	{Name: "name", Type: schema.AlgebraicType{Kind: schema.KindString}},
}

func encodeRow(id uint32, name string) []byte {
	return append(bsatn.EncodeU32(id), bsatn.EncodeString(name)...)
}

func TestFixedSizeStrideZeroIsEmpty(t *testing.T) {
	rows, err := rowlist.Decode(rowlist.SizeHint{Kind: rowlist.FixedSizeHint, Stride: 0}, []byte{1, 2, 3}, idNameCols)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRowOffsetsDecodesEachRecord(t *testing.T) {
	r0 := encodeRow(1, "a")
	r1 := encodeRow(2, "bb")
	data := append(append([]byte{}, r0...), r1...)

	hint := rowlist.SizeHint{Kind: rowlist.RowOffsetsHint, Offsets: []uint64{0, uint64(len(r0))}}
	rows, err := rowlist.Decode(hint, data, idNameCols)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, uint32(1), rows[0]["id"])
	assert.Equal(t, "a", rows[0]["name"])
	assert.Equal(t, uint32(2), rows[1]["id"])
	assert.Equal(t, "bb", rows[1]["name"])
}

// TestRowOffsetsOutOfRangeIsHardError is scenario S7 from spec.md §8: a
// row-offsets list with an offset beyond the data length is a hard error at
// the row-list layer.
func TestRowOffsetsOutOfRangeIsHardError(t *testing.T) {
	hint := rowlist.SizeHint{Kind: rowlist.RowOffsetsHint, Offsets: []uint64{0, 100}}
	data := make([]byte, 8)

	_, err := rowlist.Decode(hint, data, idNameCols)
	require.Error(t, err)
	var oe *rowlist.OffsetError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, uint64(100), oe.Offset)
	assert.Equal(t, 8, oe.Length)
}

func TestDecodeRowEmbedsSentinelAndStopsAdvancing(t *testing.T) {
	// "name" string length prefix claims 99 bytes but only 1 remains:
	// the string decode fails, and "name" plus nothing after it (it's the
	// last column here) becomes a Sentinel.
	bad := append(bsatn.EncodeU32(7), bsatn.EncodeU32(99)...)
	bad = append(bad, 'x')

	row := rowlist.DecodeRow(bad, idNameCols)
	assert.Equal(t, uint32(7), row["id"])
	sentinel, ok := row["name"].(value.Sentinel)
	require.True(t, ok)
	assert.Error(t, sentinel.Reason)
}

func TestDecodeRowSentinelPropagatesToLaterColumns(t *testing.T) {
	cols := []schema.Column{
		{Name: "a", Type: schema.AlgebraicType{Kind: schema.KindString}},
		{Name: "b", Type: schema.AlgebraicType{Kind: schema.KindU32}},
	}
	// "a"'s length prefix claims far more bytes than exist, so both "a" and
	// "b" end up as sentinels even though b's own bytes are never present.
	bad := bsatn.EncodeU32(999)

	row := rowlist.DecodeRow(bad, cols)
	_, aIsSentinel := row["a"].(value.Sentinel)
	_, bIsSentinel := row["b"].(value.Sentinel)
	assert.True(t, aIsSentinel)
	assert.True(t, bIsSentinel)
}
