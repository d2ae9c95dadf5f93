package protocol

import (
	"fmt"

	"github.com/spacetimedb/sdk-go/bsatn"
	"github.com/spacetimedb/sdk-go/rowlist"
)

// cursor walks a byte slice left to right, tracking decode errors so callers
// can chain reads without threading `rest` through every call by hand.
type cursor struct {
	b   []byte
	err error
}

func (c *cursor) u8() (v uint8) {
	if c.err != nil {
		return 0
	}
	v, c.b, c.err = bsatn.DecodeU8(c.b)
	return v
}

func (c *cursor) u32() (v uint32) {
	if c.err != nil {
		return 0
	}
	v, c.b, c.err = bsatn.DecodeU32(c.b)
	return v
}

func (c *cursor) i64() (v int64) {
	if c.err != nil {
		return 0
	}
	v, c.b, c.err = bsatn.DecodeI64(c.b)
	return v
}

func (c *cursor) str() (v string) {
	if c.err != nil {
		return ""
	}
	v, c.b, c.err = bsatn.DecodeString(c.b)
	return v
}

func (c *cursor) bytes() (v []byte) {
	if c.err != nil {
		return nil
	}
	v, c.b, c.err = bsatn.DecodeBytes(c.b)
	return v
}

func (c *cursor) fixed(n int) (v []byte) {
	if c.err != nil {
		return nil
	}
	if len(c.b) < n {
		c.err = fmt.Errorf("protocol: expected %d bytes, have %d", n, len(c.b))
		return nil
	}
	v, c.b = c.b[:n], c.b[n:]
	return v
}

func (c *cursor) tag() byte {
	if c.err != nil {
		return 0
	}
	t, b, err := bsatn.DecodeTag(c.b)
	c.b, c.err = b, err
	return t
}

func (c *cursor) u64Array() (v []uint64) {
	if c.err != nil {
		return nil
	}
	v, c.b, c.err = bsatn.DecodeArray(c.b, bsatn.DecodeU64)
	return v
}

func (c *cursor) optU32() (v *uint32) {
	if c.err != nil {
		return nil
	}
	v, c.b, c.err = bsatn.DecodeOption(c.b, bsatn.DecodeU32)
	return v
}

// sizeHint decodes the sum tag 0 = FixedSize(u16), tag 1 = RowOffsets(array(u64)).
func (c *cursor) sizeHint() rowlist.SizeHint {
	if c.err != nil {
		return rowlist.SizeHint{}
	}
	t := c.tag()
	switch t {
	case 0:
		stride, b, err := bsatn.DecodeU16(c.b)
		c.b, c.err = b, err
		return rowlist.SizeHint{Kind: rowlist.FixedSizeHint, Stride: stride}
	case 1:
		offsets := c.u64Array()
		return rowlist.SizeHint{Kind: rowlist.RowOffsetsHint, Offsets: offsets}
	default:
		c.err = bsatn.ErrUnknownVariant("SizeHint", t)
		return rowlist.SizeHint{}
	}
}

func (c *cursor) rowList() BsatnRowList {
	hint := c.sizeHint()
	data := c.bytes()
	return BsatnRowList{Hint: hint, Data: data}
}

func (c *cursor) singleTableRows() SingleTableRows {
	table := c.str()
	rows := c.rowList()
	return SingleTableRows{Table: table, Rows: rows}
}

func (c *cursor) queryRows() QueryRows {
	n := int(c.u32())
	if c.err != nil {
		return nil
	}
	out := make(QueryRows, n)
	for i := range out {
		out[i] = c.singleTableRows()
	}
	return out
}

func (c *cursor) tableUpdateRows() TableUpdateRows {
	t := c.tag()
	switch t {
	case 0:
		inserts := c.rowList()
		deletes := c.rowList()
		return TableUpdateRows{Kind: Persistent, Inserts: inserts, Deletes: deletes}
	case 1:
		events := c.rowList()
		return TableUpdateRows{Kind: Event, Events: events}
	default:
		c.err = bsatn.ErrUnknownVariant("TableUpdateRows", t)
		return TableUpdateRows{}
	}
}

func (c *cursor) tableUpdate() TableUpdate {
	name := c.str()
	n := int(c.u32())
	if c.err != nil {
		return TableUpdate{}
	}
	rows := make([]TableUpdateRows, n)
	for i := range rows {
		rows[i] = c.tableUpdateRows()
	}
	return TableUpdate{TableName: name, Rows: rows}
}

func (c *cursor) querySetUpdate() QuerySetUpdate {
	id := c.u32()
	n := int(c.u32())
	if c.err != nil {
		return QuerySetUpdate{}
	}
	tables := make([]TableUpdate, n)
	for i := range tables {
		tables[i] = c.tableUpdate()
	}
	return QuerySetUpdate{QuerySetID: id, Tables: tables}
}

func (c *cursor) transactionUpdate() TransactionUpdate {
	n := int(c.u32())
	if c.err != nil {
		return TransactionUpdate{}
	}
	sets := make([]QuerySetUpdate, n)
	for i := range sets {
		sets[i] = c.querySetUpdate()
	}
	return TransactionUpdate{QuerySets: sets}
}

func (c *cursor) reducerOutcome() ReducerOutcome {
	t := c.tag()
	switch t {
	case 0:
		ret := c.bytes()
		tx := c.transactionUpdate()
		return ReducerOutcome{Kind: ReducerOK, Ret: ret, Tx: &tx}
	case 1:
		return ReducerOutcome{Kind: ReducerOKEmpty}
	case 2:
		return ReducerOutcome{Kind: ReducerErr, ErrBytes: c.bytes()}
	case 3:
		return ReducerOutcome{Kind: ReducerInternalError, InternalMsg: c.str()}
	default:
		c.err = bsatn.ErrUnknownVariant("ReducerOutcome", t)
		return ReducerOutcome{}
	}
}

func (c *cursor) procedureStatus() ProcedureStatus {
	t := c.tag()
	switch t {
	case 0:
		return ProcedureStatus{Kind: ProcedureReturned, Returned: c.bytes()}
	case 1:
		return ProcedureStatus{Kind: ProcedureInternalError, InternalMsg: c.str()}
	default:
		c.err = bsatn.ErrUnknownVariant("ProcedureStatus", t)
		return ProcedureStatus{}
	}
}

// DecodeServerMessage decodes a server message's variant tag and payload.
// The caller has already stripped the compression envelope and
// decompressed the payload (see StripEnvelope / Decompress).
func DecodeServerMessage(payload []byte) (ServerMessage, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("protocol: empty server message")
	}
	tag, rest := payload[0], payload[1:]
	c := &cursor{b: rest}

	var msg ServerMessage
	switch tag {
	case TagInitialConnection:
		identity := c.fixed(32)
		connID := c.fixed(16)
		token := c.str()
		var ic InitialConnection
		copy(ic.Identity[:], identity)
		copy(ic.ConnectionID[:], connID)
		ic.Token = token
		msg = ic

	case TagSubscribeApplied:
		reqID := c.u32()
		querySetID := c.u32()
		rows := c.queryRows()
		msg = SubscribeApplied{RequestID: reqID, QuerySetID: querySetID, Rows: rows}

	case TagUnsubscribeApplied:
		reqID := c.u32()
		querySetID := c.u32()
		hasRows := c.tag()
		var rows *QueryRows
		if c.err == nil {
			switch hasRows {
			case 0:
				qr := c.queryRows()
				rows = &qr
			case 1:
				// None: rows stays nil.
			default:
				c.err = bsatn.ErrUnknownVariant("option(QueryRows)", hasRows)
			}
		}
		msg = UnsubscribeApplied{RequestID: reqID, QuerySetID: querySetID, Rows: rows}

	case TagSubscriptionError:
		reqID := c.optU32()
		querySetID := c.u32()
		errMsg := c.str()
		msg = SubscriptionError{RequestID: reqID, QuerySetID: querySetID, ErrMessage: errMsg}

	case TagTransactionUpdate:
		msg = c.transactionUpdate()

	case TagOneOffQueryResult:
		reqID := c.u32()
		resultTag := c.tag()
		var rows *QueryRows
		var errMsg *string
		if c.err == nil {
			switch resultTag {
			case 0:
				qr := c.queryRows()
				rows = &qr
			case 1:
				s := c.str()
				errMsg = &s
			default:
				c.err = bsatn.ErrUnknownVariant("OneOffQueryResult", resultTag)
			}
		}
		msg = OneOffQueryResult{RequestID: reqID, Rows: rows, ErrMsg: errMsg}

	case TagReducerResult:
		reqID := c.u32()
		ts := c.i64()
		outcome := c.reducerOutcome()
		msg = ReducerResult{RequestID: reqID, TimestampNS: ts, Outcome: outcome}

	case TagProcedureResult:
		status := c.procedureStatus()
		ts := c.i64()
		dur := c.i64()
		reqID := c.u32()
		msg = ProcedureResult{Status: status, TimestampNS: ts, DurationNS: dur, RequestID: reqID}

	default:
		return nil, bsatn.ErrUnknownVariant("ServerMessage", tag)
	}

	if c.err != nil {
		return nil, c.err
	}
	return msg, nil
}
