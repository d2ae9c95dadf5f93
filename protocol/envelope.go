package protocol

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
)

// Compression envelope byte values (spec.md §4.5).
const (
	CompressionNone   byte = 0x00
	CompressionBrotli byte = 0x01
	CompressionGzip   byte = 0x02
)

// ErrBrotliUnsupported is returned by Decompress when a frame arrives
// brotli-compressed. Brotli has no pure-Go, dependency-free decoder in the
// example corpus; rather than drop the connection, callers report the frame
// as unsupported and continue (spec.md's Open Question on brotli support).
var ErrBrotliUnsupported = errors.New("protocol: brotli compression is not supported")

// StripEnvelope splits a raw frame into its compression byte and payload.
func StripEnvelope(frame []byte) (compression byte, payload []byte, err error) {
	if len(frame) < 1 {
		return 0, nil, errors.New("protocol: empty frame")
	}
	return frame[0], frame[1:], nil
}

// Decompress expands payload per the compression byte read from
// StripEnvelope.
func Decompress(compression byte, payload []byte) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return payload, nil
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("protocol: gzip: %w", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("protocol: gzip: %w", err)
		}
		return out, nil
	case CompressionBrotli:
		return nil, ErrBrotliUnsupported
	default:
		return nil, fmt.Errorf("protocol: unknown compression byte 0x%02x", compression)
	}
}

// Envelope wraps payload with compression's leading byte.
func Envelope(compression byte, payload []byte) []byte {
	return append([]byte{compression}, payload...)
}
