package client

import (
	"github.com/spacetimedb/sdk-go/protocol"
	"github.com/spacetimedb/sdk-go/value"
)

// Observer receives every event the façade dispatches. It mirrors the
// source's optional-callbacks-by-name surface as a single interface with
// defaulted no-op methods (embed NoopObserver and override only what you
// need), per the design note on structured events.
type Observer interface {
	// OnConnect fires once InitialConnection is negotiated.
	OnConnect()
	// OnSubscribeApplied fires once per table in a SubscribeApplied's rows.
	OnSubscribeApplied(table string, rows []value.Row)
	// OnUnsubscribeApplied fires when an Unsubscribe is acknowledged.
	OnUnsubscribeApplied(requestID, querySetID uint32, rows *[]value.Row)
	// OnSubscriptionError surfaces a SubscriptionError verbatim. requestID
	// is nil when the server did not tie the error to one in-flight
	// request.
	OnSubscriptionError(requestID *uint32, querySetID uint32, message string)
	// OnTransaction fires once per TransactionUpdate, before any per-row
	// event for the same update (see SuppressRowEvents).
	OnTransaction(tx Transaction)
	// OnInsert fires for a pure insert (no matching delete by primary key).
	OnInsert(table string, row value.Row)
	// OnDelete fires for a pure delete (no matching insert by primary key).
	OnDelete(table string, row value.Row)
	// OnUpdate fires when a delete and an insert pair by primary key within
	// the same transaction.
	OnUpdate(table string, oldRow, newRow value.Row)
	// OnReducerResult fires when a CallReducer is answered.
	OnReducerResult(requestID uint32, outcome protocol.ReducerOutcome)
	// OnProcedureResult fires when a CallProcedure is answered.
	OnProcedureResult(requestID uint32, status protocol.ProcedureStatus)
	// OnQueryResult fires when a OneOffQuery is answered.
	OnQueryResult(requestID uint32, rows []value.Row, errMessage *string)
	// OnDisconnect fires on every disconnect, before a reconnect attempt.
	OnDisconnect(reason error, attempt int)
	// OnConnectionFailed fires once reconnection attempts are exhausted.
	OnConnectionFailed(reason error, attempt int)
	// SuppressRowEvents opts out of per-row OnInsert/OnDelete/OnUpdate
	// dispatch for every transaction; OnTransaction still fires. This is
	// the "opt-out signal for per-row callbacks" from spec.md §6.
	SuppressRowEvents() bool
}

// Transaction is the event payload for Observer.OnTransaction: the decoded
// per-table delete/insert reconciliation, computed once and shared with
// the per-row dispatch that follows.
type Transaction struct {
	Tables []TableChange
}

// TableChange is one table's reconciled changes within a Transaction.
type TableChange struct {
	Table   string
	Deletes []value.Row // pure deletes
	Updates []RowUpdate
	Inserts []value.Row // pure inserts
}

// RowUpdate pairs a deleted row with the inserted row sharing its primary
// key within the same transaction.
type RowUpdate struct {
	Old value.Row
	New value.Row
}

// NoopObserver implements Observer with every method a no-op and
// SuppressRowEvents returning false. Embed it and override only the
// methods you need.
type NoopObserver struct{}

func (NoopObserver) OnConnect()                                        {}
func (NoopObserver) OnSubscribeApplied(string, []value.Row)            {}
func (NoopObserver) OnUnsubscribeApplied(uint32, uint32, *[]value.Row) {}
func (NoopObserver) OnSubscriptionError(*uint32, uint32, string)       {}
func (NoopObserver) OnTransaction(Transaction)                         {}
func (NoopObserver) OnInsert(string, value.Row)                        {}
func (NoopObserver) OnDelete(string, value.Row)                        {}
func (NoopObserver) OnUpdate(string, value.Row, value.Row)             {}
func (NoopObserver) OnReducerResult(uint32, protocol.ReducerOutcome)   {}
func (NoopObserver) OnProcedureResult(uint32, protocol.ProcedureStatus) {}
func (NoopObserver) OnQueryResult(uint32, []value.Row, *string)        {}
func (NoopObserver) OnDisconnect(error, int)                           {}
func (NoopObserver) OnConnectionFailed(error, int)                     {}
func (NoopObserver) SuppressRowEvents() bool                           { return false }
