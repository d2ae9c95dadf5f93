package bsatn

// Sums are a u8 tag followed by the chosen variant's payload; products are
// an unframed concatenation of field encodings. Neither has a generic
// helper beyond the tag itself: callers (encode, value, protocol) know their
// own variant set and payload shapes, so the codec only standardizes the
// tag byte.

// EncodeTag encodes the single tag byte that precedes every sum payload.
func EncodeTag(tag byte) []byte { return []byte{tag} }

// DecodeTag reads the tag byte that selects a sum's variant.
func DecodeTag(b []byte) (byte, []byte, error) {
	if len(b) < 1 {
		return 0, nil, errEOF()
	}
	return b[0], b[1:], nil
}
