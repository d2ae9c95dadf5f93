// Package bsatn implements the binary value encoding used on the wire:
// length-prefixed, little-endian, schema-directed. See the codec rules for
// primitives, strings, bytes, arrays, options, products, and sums.
package bsatn

import "fmt"

// ErrorKind classifies a decode failure so callers can switch on it instead
// of string-matching an error message.
type ErrorKind string

// Decode error kinds. Every decoder returns one of these, never a bare
// string error, so row-level sentinels (see package rowlist) can carry the
// kind without losing information.
const (
	UnexpectedEOF    ErrorKind = "unexpected_eof"
	InvalidBool      ErrorKind = "invalid_bool"
	InvalidUTF8      ErrorKind = "invalid_utf8"
	InvalidOptionTag ErrorKind = "invalid_option_tag"
	UnknownVariant   ErrorKind = "unknown_variant_tag"
)

// DecodeError reports a BSATN decode failure. Detail carries the offending
// byte or tag value when relevant (e.g. the bad bool byte, the bad option
// tag), Length carries a byte count for invalid_utf8.
type DecodeError struct {
	Kind   ErrorKind
	Detail int
	Length int
	// Variant names the sum this tag was decoded against, when Kind is
	// UnknownVariant. Empty otherwise.
	Variant string
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case UnexpectedEOF:
		return "bsatn: unexpected EOF"
	case InvalidBool:
		return fmt.Sprintf("bsatn: invalid bool byte 0x%02x", e.Detail)
	case InvalidUTF8:
		return fmt.Sprintf("bsatn: invalid utf8 in string of length %d", e.Length)
	case InvalidOptionTag:
		return fmt.Sprintf("bsatn: invalid option tag %d", e.Detail)
	case UnknownVariant:
		if e.Variant != "" {
			return fmt.Sprintf("bsatn: unknown variant tag %d for %s", e.Detail, e.Variant)
		}
		return fmt.Sprintf("bsatn: unknown variant tag %d", e.Detail)
	default:
		return "bsatn: decode error"
	}
}

func errEOF() error { return &DecodeError{Kind: UnexpectedEOF} }

func errBadBool(b byte) error { return &DecodeError{Kind: InvalidBool, Detail: int(b)} }

func errBadUTF8(n int) error { return &DecodeError{Kind: InvalidUTF8, Length: n} }

func errBadOptionTag(tag byte) error { return &DecodeError{Kind: InvalidOptionTag, Detail: int(tag)} }

// ErrUnknownVariant builds an UnknownVariant error for a named sum decoder.
func ErrUnknownVariant(name string, tag byte) error {
	return &DecodeError{Kind: UnknownVariant, Detail: int(tag), Variant: name}
}
