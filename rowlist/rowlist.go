// Package rowlist decodes a wire-level "row list" blob into typed records
// against a table's column list. A row list is a batch of row bytes
// (snapshots and transaction deltas both carry them) parameterized by a
// size hint selecting either fixed-stride or explicit-offset framing.
package rowlist

import (
	"errors"
	"fmt"

	"github.com/spacetimedb/sdk-go/schema"
	"github.com/spacetimedb/sdk-go/value"
)

// HintKind selects how a row list's byte blob is split into records.
type HintKind string

const (
	// FixedSizeHint means records are stride bytes each, back-to-back.
	FixedSizeHint HintKind = "fixed_size"
	// RowOffsetsHint means each record starts at an explicit byte offset.
	RowOffsetsHint HintKind = "row_offsets"
)

// SizeHint is the wire-level framing descriptor for a row list.
type SizeHint struct {
	Kind HintKind

	// Stride is the fixed record size in bytes, valid when Kind ==
	// FixedSizeHint. Stride == 0 means "empty list" regardless of the
	// accompanying byte blob's length.
	Stride uint16

	// Offsets gives the starting byte of each record, valid when Kind ==
	// RowOffsetsHint. Must be nondecreasing; the final record extends to
	// the end of the blob.
	Offsets []uint64
}

// OffsetError reports an offset that falls outside the accompanying byte
// blob. A decreasing offset sequence is also rejected, but with a plain
// error rather than an OffsetError. Individual field decode failures never
// abort a batch.
type OffsetError struct {
	Offset uint64
	Length int
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("rowlist: offset %d exceeds data length %d", e.Offset, e.Length)
}

// Decode splits data into records per hint, then decodes each record
// against columns. A field-level decode failure is embedded as a
// value.Sentinel in place of the offending value (and every field after
// it). Decode itself returns only structural errors: an OffsetError, a
// decreasing offset sequence, or an unknown size hint kind.
func Decode(hint SizeHint, data []byte, columns []schema.Column) ([]value.Row, error) {
	slices, err := split(hint, data)
	if err != nil {
		return nil, err
	}
	rows := make([]value.Row, len(slices))
	for i, s := range slices {
		rows[i] = DecodeRow(s, columns)
	}
	return rows, nil
}

// DecodeRow decodes one record against columns, substituting a
// value.Sentinel for the first field that fails to decode and every field
// after it (the remaining bytes can no longer be reliably framed).
func DecodeRow(data []byte, columns []schema.Column) value.Row {
	row := make(value.Row, len(columns))
	rest := data
	var failure error

	for _, col := range columns {
		if failure != nil {
			row[col.Name] = value.Sentinel{Reason: failure}
			continue
		}
		v, newRest, err := value.Decode(rest, col.Type)
		if err != nil {
			failure = err
			row[col.Name] = value.Sentinel{Reason: err}
			continue
		}
		row[col.Name] = v
		rest = newRest
	}
	return row
}

func split(hint SizeHint, data []byte) ([][]byte, error) {
	switch hint.Kind {
	case FixedSizeHint:
		return splitFixed(hint.Stride, data), nil
	case RowOffsetsHint:
		return splitOffsets(hint.Offsets, data)
	default:
		return nil, fmt.Errorf("rowlist: unknown size hint kind %q", hint.Kind)
	}
}

func splitFixed(stride uint16, data []byte) [][]byte {
	if stride == 0 {
		return nil
	}
	n := len(data) / int(stride)
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		start := i * int(stride)
		out = append(out, data[start:start+int(stride)])
	}
	return out
}

func splitOffsets(offsets []uint64, data []byte) ([][]byte, error) {
	if len(offsets) == 0 {
		return nil, nil
	}
	length := uint64(len(data))

	var prev uint64
	for i, off := range offsets {
		if off > length {
			return nil, &OffsetError{Offset: off, Length: len(data)}
		}
		if i > 0 && off < prev {
			return nil, errors.New("rowlist: offsets must be nondecreasing")
		}
		prev = off
	}

	out := make([][]byte, len(offsets))
	for i, off := range offsets {
		end := length
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		out[i] = data[off:end]
	}
	return out, nil
}
