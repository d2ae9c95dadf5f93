// Package value decodes BSATN bytes into host Go values directed by a
// schema.AlgebraicType, and defines the host-side representations used for
// products, sums, and field-level decode failures.
//
// Field-level decode failures are not propagated as Go errors from Decode's
// callers in package rowlist: per spec.md §4.3 ("Sentinel vs error at row
// level" design note), a failing field is represented in place by a
// Sentinel rather than aborting the row. Decode itself still returns an
// error to its direct caller; rowlist is what converts that error into a
// Sentinel and decides whether to keep decoding the rest of the row.
package value

import (
	"fmt"

	"github.com/spacetimedb/sdk-go/bsatn"
	"github.com/spacetimedb/sdk-go/schema"
)

// Sentinel stands in for a field value that failed to decode. It satisfies
// error so callers can type-assert a row field to check for failure, but it
// is stored as the field's value, not returned as an error.
type Sentinel struct {
	Reason error
}

func (s Sentinel) Error() string { return fmt.Sprintf("decode_error(%v)", s.Reason) }

// Row is a decoded table row: column name to host value. Values are one of
// bool, the sized int/float kinds (plain Go numeric types for widths up to
// 64 bits, *big.Int for 128/256-bit widths), string, []byte, []any (Array),
// nil or the unwrapped inner value (Option), Row (nested Product), *Sum, or
// Sentinel.
type Row = map[string]any

// Sum is the host representation of a decoded Sum value: the chosen
// variant's name and its payload, or nil for a payloadless variant.
type Sum struct {
	Variant string
	Payload any
}

// Decode decodes one BSATN value directed by t, returning the host
// representation and the unconsumed tail.
func Decode(b []byte, t schema.AlgebraicType) (any, []byte, error) {
	switch t.Kind {
	case schema.KindBool:
		return bsatn.DecodeBool(b)
	case schema.KindU8:
		return bsatn.DecodeU8(b)
	case schema.KindU16:
		return bsatn.DecodeU16(b)
	case schema.KindU32:
		return bsatn.DecodeU32(b)
	case schema.KindU64:
		return bsatn.DecodeU64(b)
	case schema.KindU128:
		return bsatn.DecodeWideUint(b, 16)
	case schema.KindU256:
		return bsatn.DecodeWideUint(b, 32)
	case schema.KindI8:
		return bsatn.DecodeI8(b)
	case schema.KindI16:
		return bsatn.DecodeI16(b)
	case schema.KindI32:
		return bsatn.DecodeI32(b)
	case schema.KindI64:
		return bsatn.DecodeI64(b)
	case schema.KindI128:
		return bsatn.DecodeWideInt(b, 16)
	case schema.KindI256:
		return bsatn.DecodeWideInt(b, 32)
	case schema.KindF32:
		return bsatn.DecodeF32(b)
	case schema.KindF64:
		return bsatn.DecodeF64(b)
	case schema.KindString:
		return bsatn.DecodeString(b)
	case schema.KindBytes:
		return bsatn.DecodeBytes(b)
	case schema.KindArray:
		return decodeArray(b, *t.Elem)
	case schema.KindOption:
		return decodeOption(b, *t.Elem)
	case schema.KindProduct:
		return decodeProduct(b, t.Elements)
	case schema.KindSum:
		return decodeSum(b, t.Variants)
	case schema.KindRef:
		// Invariant: no Ref survives schema parsing (spec.md §3). Reaching
		// this means a caller passed an unresolved type.
		return nil, nil, fmt.Errorf("value: unresolved Ref(%d) reached decode", t.RefIndex)
	default:
		return nil, nil, fmt.Errorf("value: unknown type kind %q", t.Kind)
	}
}

func decodeArray(b []byte, elem schema.AlgebraicType) (any, []byte, error) {
	n, rest, err := bsatn.DecodeU32(b)
	if err != nil {
		return nil, nil, err
	}
	out := make([]any, 0, n)
	for i := uint32(0); i < n; i++ {
		var v any
		v, rest, err = Decode(rest, elem)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, v)
	}
	return out, rest, nil
}

// decodeOption decodes the Some/None sum and unwraps it: None becomes a nil
// any, Some(v) becomes v directly rather than a pointer, matching the
// ergonomic host representation documented on Row.
func decodeOption(b []byte, elem schema.AlgebraicType) (any, []byte, error) {
	tag, rest, err := bsatn.DecodeTag(b)
	if err != nil {
		return nil, nil, err
	}
	switch tag {
	case 0:
		return Decode(rest, elem)
	case 1:
		return nil, rest, nil
	default:
		return nil, nil, fmt.Errorf("value: invalid option tag %d", tag)
	}
}

func decodeProduct(b []byte, columns []schema.Column) (any, []byte, error) {
	row := make(Row, len(columns))
	rest := b
	for i, col := range columns {
		var v any
		var err error
		v, rest, err = Decode(rest, col.Type)
		if err != nil {
			return nil, nil, err
		}
		row[fieldKey(col, i)] = v
	}
	return row, rest, nil
}

func decodeSum(b []byte, variants []schema.Variant) (any, []byte, error) {
	tag, rest, err := bsatn.DecodeTag(b)
	if err != nil {
		return nil, nil, err
	}
	if int(tag) >= len(variants) {
		return nil, nil, bsatn.ErrUnknownVariant("sum", tag)
	}
	v := variants[tag]
	if v.Type == nil {
		return &Sum{Variant: v.Name}, rest, nil
	}
	payload, rest2, err := Decode(rest, *v.Type)
	if err != nil {
		return nil, nil, err
	}
	return &Sum{Variant: v.Name, Payload: payload}, rest2, nil
}

func fieldKey(col schema.Column, index int) string {
	if col.Name != "" {
		return col.Name
	}
	return fmt.Sprintf("_%d", index)
}

// BigIntWidthBytes reports the byte width used to wire-encode the given
// *big.Int-backed kind, or 0 if k is not a wide integer kind.
func BigIntWidthBytes(k schema.Kind) int {
	switch k {
	case schema.KindU128, schema.KindI128:
		return 16
	case schema.KindU256, schema.KindI256:
		return 32
	default:
		return 0
	}
}
