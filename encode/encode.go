// Package encode implements the schema-driven value encoder: given a host
// value and the schema.AlgebraicType it must conform to, produce BSATN
// bytes, or a structured error describing exactly where the value and the
// type disagreed.
package encode

import (
	"fmt"
	"math/big"

	"github.com/spacetimedb/sdk-go/bsatn"
	"github.com/spacetimedb/sdk-go/schema"
)

// ErrorKind classifies an encode failure.
type ErrorKind string

const (
	// MissingField means a product's column had no corresponding key in the
	// supplied map.
	MissingField ErrorKind = "missing_field"
	// TypeMismatch means the host value's shape does not match the
	// requested algebraic type.
	TypeMismatch ErrorKind = "type_mismatch"
)

// Error reports an encode failure.
type Error struct {
	Kind  ErrorKind
	Field string
	Type  schema.Kind
	Value any
}

func (e *Error) Error() string {
	switch e.Kind {
	case MissingField:
		return fmt.Sprintf("encode: missing field %q", e.Field)
	case TypeMismatch:
		return fmt.Sprintf("encode: value %#v does not match type %s", e.Value, e.Type)
	default:
		return "encode: error"
	}
}

// Value encodes v against t, returning BSATN bytes or a structured *Error.
func Value(v any, t schema.AlgebraicType) ([]byte, error) {
	switch t.Kind {
	case schema.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(t.Kind, v)
		}
		return bsatn.EncodeBool(b), nil

	case schema.KindU8, schema.KindU16, schema.KindU32, schema.KindU64,
		schema.KindI8, schema.KindI16, schema.KindI32, schema.KindI64:
		return encodeFixedInt(v, t.Kind)

	case schema.KindU128, schema.KindU256, schema.KindI128, schema.KindI256:
		return encodeWideInt(v, t.Kind)

	case schema.KindF32:
		f, ok := asFloat(v)
		if !ok {
			return nil, mismatch(t.Kind, v)
		}
		return bsatn.EncodeF32(float32(f)), nil

	case schema.KindF64:
		f, ok := asFloat(v)
		if !ok {
			return nil, mismatch(t.Kind, v)
		}
		return bsatn.EncodeF64(f), nil

	case schema.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(t.Kind, v)
		}
		return bsatn.EncodeString(s), nil

	case schema.KindBytes:
		b, ok := v.([]byte)
		if !ok {
			return nil, mismatch(t.Kind, v)
		}
		return bsatn.EncodeBytes(b), nil

	case schema.KindArray:
		return encodeArray(v, *t.Elem)

	case schema.KindOption:
		return encodeOption(v, *t.Elem)

	case schema.KindProduct:
		return encodeProduct(v, t.Elements)

	case schema.KindSum:
		return encodeSum(v, t.Variants)

	default:
		return nil, mismatch(t.Kind, v)
	}
}

func mismatch(k schema.Kind, v any) error {
	return &Error{Kind: TypeMismatch, Type: k, Value: v}
}

// encodeFixedInt accepts any Go integer kind and converts it to the
// requested width; floats are rejected (spec.md §4.4: integers widen to
// floats, not the reverse). Values outside the target width's range are
// not rejected: Go's integer conversion truncates them.
func encodeFixedInt(v any, k schema.Kind) ([]byte, error) {
	i, ok := asInt64(v)
	if !ok {
		return nil, mismatch(k, v)
	}
	switch k {
	case schema.KindU8:
		return bsatn.EncodeU8(uint8(i)), nil
	case schema.KindU16:
		return bsatn.EncodeU16(uint16(i)), nil
	case schema.KindU32:
		return bsatn.EncodeU32(uint32(i)), nil
	case schema.KindU64:
		return bsatn.EncodeU64(uint64(i)), nil
	case schema.KindI8:
		return bsatn.EncodeI8(int8(i)), nil
	case schema.KindI16:
		return bsatn.EncodeI16(int16(i)), nil
	case schema.KindI32:
		return bsatn.EncodeI32(int32(i)), nil
	case schema.KindI64:
		return bsatn.EncodeI64(i), nil
	default:
		return nil, mismatch(k, v)
	}
}

func encodeWideInt(v any, k schema.Kind) ([]byte, error) {
	var bi *big.Int
	switch x := v.(type) {
	case *big.Int:
		bi = x
	default:
		i, ok := asInt64(v)
		if !ok {
			return nil, mismatch(k, v)
		}
		bi = big.NewInt(i)
	}
	width := 16
	if k == schema.KindU256 || k == schema.KindI256 {
		width = 32
	}
	switch k {
	case schema.KindU128, schema.KindU256:
		if bi.Sign() < 0 {
			return nil, mismatch(k, v)
		}
		return bsatn.EncodeWideUint(bi, width), nil
	default:
		return bsatn.EncodeWideInt(bi, width), nil
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	default:
		return 0, false
	}
}

// asFloat accepts a float directly, or any integer kind widened losslessly.
func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		if i, ok := asInt64(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}

func encodeArray(v any, elem schema.AlgebraicType) ([]byte, error) {
	xs, ok := v.([]any)
	if !ok {
		return nil, mismatch(schema.KindArray, v)
	}
	buf := bsatn.EncodeU32(uint32(len(xs)))
	for _, x := range xs {
		enc, err := Value(x, elem)
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}
	return buf, nil
}

// encodeOption accepts None (nil), Some(v), or a bare v which is
// auto-wrapped as Some(v), per spec.md §4.4.
func encodeOption(v any, elem schema.AlgebraicType) ([]byte, error) {
	if v == nil {
		return []byte{1}, nil
	}
	enc, err := Value(v, elem)
	if err != nil {
		return nil, err
	}
	return append([]byte{0}, enc...), nil
}

// encodeProduct requires a map value; each column is looked up by name and
// concatenated in schema order. Go has no symbol type distinct from string,
// so "symbol-like" keys from spec.md §4.4 collapse to plain string keys
// here; callers passing map[string]any need no further normalization.
func encodeProduct(v any, columns []schema.Column) ([]byte, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, mismatch(schema.KindProduct, v)
	}
	var buf []byte
	for _, col := range columns {
		fv, present := m[col.Name]
		if !present {
			return nil, &Error{Kind: MissingField, Field: col.Name}
		}
		enc, err := Value(fv, col.Type)
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}
	return buf, nil
}

// SumInput is the host representation accepted by encodeSum: a variant name
// and its payload (nil for payloadless variants).
type SumInput struct {
	Variant string
	Payload any
}

func encodeSum(v any, variants []schema.Variant) ([]byte, error) {
	in, ok := v.(SumInput)
	if !ok {
		return nil, mismatch(schema.KindSum, v)
	}
	for i, variant := range variants {
		if variant.Name != in.Variant {
			continue
		}
		if variant.Type == nil {
			return bsatn.EncodeTag(byte(i)), nil
		}
		payload, err := Value(in.Payload, *variant.Type)
		if err != nil {
			return nil, err
		}
		return append(bsatn.EncodeTag(byte(i)), payload...), nil
	}
	return nil, mismatch(schema.KindSum, v)
}

// Product encodes a reducer's parameter list (or any anonymous product
// column list) against a map of named arguments, wire-compatible with
// encodeProduct but exported for callers that already hold a []schema.Column.
func Product(args map[string]any, columns []schema.Column) ([]byte, error) {
	return encodeProduct(args, columns)
}

// ReducerArgs encodes a reducer call's argument map against its parameter
// list, treated as an anonymous Product per spec.md §3.
func ReducerArgs(args map[string]any, reducer schema.ReducerDef) ([]byte, error) {
	return Product(args, reducer.Params)
}
