// Package protocol implements the wire protocol state machine: encoding
// the five client message variants, decoding the eight server message
// variants behind the compression envelope, and the sub-structures each
// carries (row lists, transaction updates, reducer/procedure outcomes).
package protocol

import "github.com/spacetimedb/sdk-go/rowlist"

// Client message tags (spec.md §4.5).
const (
	TagSubscribe     byte = 0
	TagUnsubscribe   byte = 1
	TagOneOffQuery   byte = 2
	TagCallReducer   byte = 3
	TagCallProcedure byte = 4
)

// Server message tags (spec.md §4.5).
const (
	TagInitialConnection   byte = 0
	TagSubscribeApplied    byte = 1
	TagUnsubscribeApplied  byte = 2
	TagSubscriptionError   byte = 3
	TagTransactionUpdate   byte = 4
	TagOneOffQueryResult   byte = 5
	TagReducerResult       byte = 6
	TagProcedureResult     byte = 7
)

// Unsubscribe flag values.
const (
	UnsubscribeDefault         uint8 = 0
	UnsubscribeSendDroppedRows uint8 = 1
)

// ClientMessage is implemented by every outgoing message variant.
type ClientMessage interface {
	clientTag() byte
}

type (
	// Subscribe requests that query_set_id track the given queries.
	Subscribe struct {
		RequestID  uint32
		QuerySetID uint32
		Queries    []string
	}

	// Unsubscribe drops a previously subscribed query set.
	Unsubscribe struct {
		RequestID  uint32
		QuerySetID uint32
		Flags      uint8
	}

	// OneOffQuery runs a single ad-hoc query text without subscribing.
	OneOffQuery struct {
		RequestID uint32
		Query     string
	}

	// CallReducer invokes a server-side reducer with pre-encoded BSATN
	// argument bytes (the product encoding of its parameter list).
	CallReducer struct {
		RequestID uint32
		Flags     uint8
		Reducer   string
		Args      []byte
	}

	// CallProcedure invokes a server-side procedure, structurally identical
	// to CallReducer on the wire.
	CallProcedure struct {
		RequestID uint32
		Flags     uint8
		Procedure string
		Args      []byte
	}
)

func (Subscribe) clientTag() byte     { return TagSubscribe }
func (Unsubscribe) clientTag() byte   { return TagUnsubscribe }
func (OneOffQuery) clientTag() byte   { return TagOneOffQuery }
func (CallReducer) clientTag() byte   { return TagCallReducer }
func (CallProcedure) clientTag() byte { return TagCallProcedure }

// ServerMessage is implemented by every incoming message variant.
type ServerMessage interface {
	serverTag() byte
}

type (
	// InitialConnection is the first frame of every connection, carrying
	// the negotiated identity, connection id, and (possibly server-minted)
	// auth token.
	InitialConnection struct {
		Identity     [32]byte
		ConnectionID [16]byte
		Token        string
	}

	// SubscribeApplied acknowledges a Subscribe with the matching snapshot
	// rows.
	SubscribeApplied struct {
		RequestID  uint32
		QuerySetID uint32
		Rows       QueryRows
	}

	// UnsubscribeApplied acknowledges an Unsubscribe, optionally returning
	// the rows that were dropped (when send_dropped_rows was set).
	UnsubscribeApplied struct {
		RequestID  uint32
		QuerySetID uint32
		Rows       *QueryRows
	}

	// SubscriptionError reports a server-side subscription failure.
	// RequestID is absent when the error is not tied to one in-flight
	// request (e.g. a query-set-wide failure).
	SubscriptionError struct {
		RequestID  *uint32
		QuerySetID uint32
		ErrMessage string
	}

	// TransactionUpdate is a server-pushed committed change, grouped by
	// query set then table. It carries no request id and never clears a
	// pending request.
	TransactionUpdate struct {
		QuerySets []QuerySetUpdate
	}

	// OneOffQueryResult answers an OneOffQuery, either with rows or an
	// error string.
	OneOffQueryResult struct {
		RequestID uint32
		Rows      *QueryRows
		ErrMsg    *string
	}

	// ReducerResult answers a CallReducer.
	ReducerResult struct {
		RequestID   uint32
		TimestampNS int64
		Outcome     ReducerOutcome
	}

	// ProcedureResult answers a CallProcedure.
	ProcedureResult struct {
		Status      ProcedureStatus
		TimestampNS int64
		DurationNS  int64
		RequestID   uint32
	}
)

func (InitialConnection) serverTag() byte  { return TagInitialConnection }
func (SubscribeApplied) serverTag() byte   { return TagSubscribeApplied }
func (UnsubscribeApplied) serverTag() byte { return TagUnsubscribeApplied }
func (SubscriptionError) serverTag() byte  { return TagSubscriptionError }
func (TransactionUpdate) serverTag() byte  { return TagTransactionUpdate }
func (OneOffQueryResult) serverTag() byte  { return TagOneOffQueryResult }
func (ReducerResult) serverTag() byte      { return TagReducerResult }
func (ProcedureResult) serverTag() byte    { return TagProcedureResult }

// QueryRows is the set of per-table row batches a subscription snapshot or
// one-off query result carries.
type QueryRows []SingleTableRows

// SingleTableRows pairs a table name with its row-list blob.
type SingleTableRows struct {
	Table string
	Rows  BsatnRowList
}

// BsatnRowList is a row-list blob: a framing hint plus the raw row bytes.
// Hint reuses package rowlist's SizeHint directly rather than a parallel
// wire-only type, since the two are identical in shape and rowlist.Decode
// is how callers (package cache) turn this into typed rows.
type BsatnRowList struct {
	Hint rowlist.SizeHint
	Data []byte
}

// QuerySetUpdate groups one query set's per-table updates within a
// TransactionUpdate.
type QuerySetUpdate struct {
	QuerySetID uint32
	Tables     []TableUpdate
}

// TableUpdate carries one table's row changes within a query set update.
type TableUpdate struct {
	TableName string
	Rows      []TableUpdateRows
}

// TableUpdateRowsKind selects which arm of the TableUpdateRows sum is
// populated.
type TableUpdateRowsKind string

const (
	// Persistent rows are committed inserts/deletes the cache must apply.
	Persistent TableUpdateRowsKind = "persistent"
	// Event rows are transient and ignored by the cache (spec.md §4.7).
	Event TableUpdateRowsKind = "event"
)

// TableUpdateRows is the sum {Persistent(inserts, deletes), Event(events)}.
type TableUpdateRows struct {
	Kind    TableUpdateRowsKind
	Inserts BsatnRowList
	Deletes BsatnRowList
	Events  BsatnRowList
}

// ReducerOutcomeKind selects which arm of the ReducerOutcome sum is
// populated.
type ReducerOutcomeKind string

const (
	ReducerOK            ReducerOutcomeKind = "ok"
	ReducerOKEmpty       ReducerOutcomeKind = "ok_empty"
	ReducerErr           ReducerOutcomeKind = "err"
	ReducerInternalError ReducerOutcomeKind = "internal_error"
)

// ReducerOutcome is the sum {Ok(ret, tx), OkEmpty, Err(bytes), InternalError(string)}.
type ReducerOutcome struct {
	Kind        ReducerOutcomeKind
	Ret         []byte
	Tx          *TransactionUpdate
	ErrBytes    []byte
	InternalMsg string
}

// ProcedureStatusKind selects which arm of the ProcedureStatus sum is
// populated.
type ProcedureStatusKind string

const (
	ProcedureReturned      ProcedureStatusKind = "returned"
	ProcedureInternalError ProcedureStatusKind = "internal_error"
)

// ProcedureStatus is the sum {Returned(bytes), InternalError(string)}.
type ProcedureStatus struct {
	Kind        ProcedureStatusKind
	Returned    []byte
	InternalMsg string
}
