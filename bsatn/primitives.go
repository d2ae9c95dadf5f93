package bsatn

import (
	"math"
	"math/big"
	"unicode/utf8"
)

// EncodeBool writes the single-byte bool encoding: 0x01 for true, 0x00 for
// false. Decoding any other byte value fails.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeBool reads one byte and fails unless it is exactly 0 or 1.
func DecodeBool(b []byte) (bool, []byte, error) {
	if len(b) < 1 {
		return false, nil, errEOF()
	}
	switch b[0] {
	case 0:
		return false, b[1:], nil
	case 1:
		return true, b[1:], nil
	default:
		return false, nil, errBadBool(b[0])
	}
}

// intWidth is the set of byte widths integers may be encoded at.
type intWidth interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64
}

func putUint(buf []byte, v uint64) {
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}
}

func getUint(b []byte) uint64 {
	var v uint64
	for i, x := range b {
		v |= uint64(x) << (8 * i)
	}
	return v
}

// EncodeU8 encodes a single unsigned byte.
func EncodeU8(v uint8) []byte { return []byte{v} }

// DecodeU8 decodes a single unsigned byte.
func DecodeU8(b []byte) (uint8, []byte, error) {
	if len(b) < 1 {
		return 0, nil, errEOF()
	}
	return b[0], b[1:], nil
}

// EncodeI8 encodes a single signed byte.
func EncodeI8(v int8) []byte { return []byte{byte(v)} }

// DecodeI8 decodes a single signed byte.
func DecodeI8(b []byte) (int8, []byte, error) {
	if len(b) < 1 {
		return 0, nil, errEOF()
	}
	return int8(b[0]), b[1:], nil
}

// EncodeU16 encodes a little-endian u16.
func EncodeU16(v uint16) []byte {
	buf := make([]byte, 2)
	putUint(buf, uint64(v))
	return buf
}

// DecodeU16 decodes a little-endian u16.
func DecodeU16(b []byte) (uint16, []byte, error) {
	if len(b) < 2 {
		return 0, nil, errEOF()
	}
	return uint16(getUint(b[:2])), b[2:], nil
}

// EncodeI16 encodes a little-endian i16.
func EncodeI16(v int16) []byte { return EncodeU16(uint16(v)) }

// DecodeI16 decodes a little-endian i16.
func DecodeI16(b []byte) (int16, []byte, error) {
	v, rest, err := DecodeU16(b)
	return int16(v), rest, err
}

// EncodeU32 encodes a little-endian u32. Used for every length/count prefix
// on the wire (strings, bytes, arrays, request/query-set IDs).
func EncodeU32(v uint32) []byte {
	buf := make([]byte, 4)
	putUint(buf, uint64(v))
	return buf
}

// DecodeU32 decodes a little-endian u32.
func DecodeU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, errEOF()
	}
	return uint32(getUint(b[:4])), b[4:], nil
}

// EncodeI32 encodes a little-endian i32.
func EncodeI32(v int32) []byte { return EncodeU32(uint32(v)) }

// DecodeI32 decodes a little-endian i32.
func DecodeI32(b []byte) (int32, []byte, error) {
	v, rest, err := DecodeU32(b)
	return int32(v), rest, err
}

// EncodeU64 encodes a little-endian u64.
func EncodeU64(v uint64) []byte {
	buf := make([]byte, 8)
	putUint(buf, v)
	return buf
}

// DecodeU64 decodes a little-endian u64.
func DecodeU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, errEOF()
	}
	return getUint(b[:8]), b[8:], nil
}

// EncodeI64 encodes a little-endian i64.
func EncodeI64(v int64) []byte { return EncodeU64(uint64(v)) }

// DecodeI64 decodes a little-endian i64.
func DecodeI64(b []byte) (int64, []byte, error) {
	v, rest, err := DecodeU64(b)
	return int64(v), rest, err
}

// EncodeF32 encodes an IEEE-754 little-endian 4-byte float.
func EncodeF32(v float32) []byte {
	return EncodeU32(math.Float32bits(v))
}

// DecodeF32 decodes an IEEE-754 little-endian 4-byte float.
func DecodeF32(b []byte) (float32, []byte, error) {
	bits, rest, err := DecodeU32(b)
	if err != nil {
		return 0, nil, err
	}
	return math.Float32frombits(bits), rest, nil
}

// EncodeF64 encodes an IEEE-754 little-endian 8-byte float.
func EncodeF64(v float64) []byte {
	return EncodeU64(math.Float64bits(v))
}

// DecodeF64 decodes an IEEE-754 little-endian 8-byte float.
func DecodeF64(b []byte) (float64, []byte, error) {
	bits, rest, err := DecodeU64(b)
	if err != nil {
		return 0, nil, err
	}
	return math.Float64frombits(bits), rest, nil
}

// The typespace supports integer widths beyond what a native Go type can
// hold (128 and 256 bits). There is no third-party fixed-width big-integer
// codec anywhere in the reference corpus, so these widths are represented
// with the standard library's math/big, constrained to the requested
// bit width and encoded little-endian, two's complement for signed values.

// EncodeWideUint encodes an unsigned integer of the given byte width
// (16 or 32) little-endian. v must be non-negative and fit in width bytes.
func EncodeWideUint(v *big.Int, width int) []byte {
	buf := make([]byte, width)
	b := v.Bytes() // big-endian, no leading zeros
	for i, by := range b {
		buf[len(b)-1-i] = by
	}
	return buf
}

// DecodeWideUint decodes an unsigned integer of the given byte width
// little-endian.
func DecodeWideUint(b []byte, width int) (*big.Int, []byte, error) {
	if len(b) < width {
		return nil, nil, errEOF()
	}
	be := make([]byte, width)
	for i := 0; i < width; i++ {
		be[width-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be), b[width:], nil
}

// EncodeWideInt encodes a signed integer of the given byte width
// little-endian, two's complement.
func EncodeWideInt(v *big.Int, width int) []byte {
	if v.Sign() >= 0 {
		return EncodeWideUint(v, width)
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
	twos := new(big.Int).Add(mod, v)
	return EncodeWideUint(twos, width)
}

// DecodeWideInt decodes a signed integer of the given byte width
// little-endian, two's complement.
func DecodeWideInt(b []byte, width int) (*big.Int, []byte, error) {
	u, rest, err := DecodeWideUint(b, width)
	if err != nil {
		return nil, nil, err
	}
	half := new(big.Int).Lsh(big.NewInt(1), uint(width*8-1))
	if u.Cmp(half) >= 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
		u = new(big.Int).Sub(u, mod)
	}
	return u, rest, nil
}

// EncodeString encodes a u32 length prefix followed by the UTF-8 bytes.
func EncodeString(s string) []byte {
	buf := make([]byte, 0, 4+len(s))
	buf = append(buf, EncodeU32(uint32(len(s)))...)
	buf = append(buf, s...)
	return buf
}

// DecodeString decodes a u32 length prefix then that many bytes, validating
// UTF-8. Fails with InvalidUTF8 if the bytes are not valid UTF-8.
func DecodeString(b []byte) (string, []byte, error) {
	n, rest, err := DecodeU32(b)
	if err != nil {
		return "", nil, err
	}
	if uint64(len(rest)) < uint64(n) {
		return "", nil, errEOF()
	}
	raw := rest[:n]
	if !utf8.Valid(raw) {
		return "", nil, errBadUTF8(int(n))
	}
	return string(raw), rest[n:], nil
}

// EncodeBytes encodes a u32 length prefix followed by the raw bytes.
func EncodeBytes(b []byte) []byte {
	buf := make([]byte, 0, 4+len(b))
	buf = append(buf, EncodeU32(uint32(len(b)))...)
	buf = append(buf, b...)
	return buf
}

// DecodeBytes decodes a u32 length prefix then that many raw bytes.
func DecodeBytes(b []byte) ([]byte, []byte, error) {
	n, rest, err := DecodeU32(b)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < uint64(n) {
		return nil, nil, errEOF()
	}
	out := make([]byte, n)
	copy(out, rest[:n])
	return out, rest[n:], nil
}

// EncodeArray encodes a u32 count followed by the concatenated encodings of
// each element, produced by encodeElem.
func EncodeArray[T any](xs []T, encodeElem func(T) []byte) []byte {
	buf := make([]byte, 0, 4)
	buf = append(buf, EncodeU32(uint32(len(xs)))...)
	for _, x := range xs {
		buf = append(buf, encodeElem(x)...)
	}
	return buf
}

// DecodeArray decodes a u32 count then that many elements via decodeElem. It
// never reads beyond exactly count successful element decodes.
func DecodeArray[T any](b []byte, decodeElem func([]byte) (T, []byte, error)) ([]T, []byte, error) {
	n, rest, err := DecodeU32(b)
	if err != nil {
		return nil, nil, err
	}
	out := make([]T, 0, n)
	for i := uint32(0); i < n; i++ {
		var v T
		v, rest, err = decodeElem(rest)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, v)
	}
	return out, rest, nil
}

// EncodeOption encodes an option as the sum {tag 0 = Some(v), tag 1 = None}.
// This tag assignment is intentional and inverted from many other
// conventions; do not swap it.
func EncodeOption[T any](v *T, encodeElem func(T) []byte) []byte {
	if v == nil {
		return []byte{1}
	}
	return append([]byte{0}, encodeElem(*v)...)
}

// DecodeOption decodes an option sum, tag 0 = Some, tag 1 = None.
func DecodeOption[T any](b []byte, decodeElem func([]byte) (T, []byte, error)) (*T, []byte, error) {
	if len(b) < 1 {
		return nil, nil, errEOF()
	}
	switch b[0] {
	case 0:
		v, rest, err := decodeElem(b[1:])
		if err != nil {
			return nil, nil, err
		}
		return &v, rest, nil
	case 1:
		return nil, b[1:], nil
	default:
		return nil, nil, errBadOptionTag(b[0])
	}
}
