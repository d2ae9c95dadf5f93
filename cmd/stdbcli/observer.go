package main

import (
	"fmt"

	"github.com/spacetimedb/sdk-go/client"
	"github.com/spacetimedb/sdk-go/protocol"
	"github.com/spacetimedb/sdk-go/value"
)

// printObserver renders every façade callback as a line on stdout. It is
// intentionally dumb: this is a demonstration CLI, not a UI.
type printObserver struct {
	client.NoopObserver
}

func (printObserver) OnConnect() {
	fmt.Println("connected")
}

func (printObserver) OnSubscribeApplied(table string, rows []value.Row) {
	fmt.Printf("subscribed: %s (%d rows)\n", table, len(rows))
}

func (printObserver) OnSubscriptionError(requestID *uint32, querySetID uint32, message string) {
	var req uint32
	if requestID != nil {
		req = *requestID
	}
	fmt.Printf("subscription error (request=%d query_set=%d): %s\n", req, querySetID, message)
}

func (printObserver) OnInsert(table string, row value.Row) {
	fmt.Printf("insert %s: %v\n", table, row)
}

func (printObserver) OnUpdate(table string, oldRow, newRow value.Row) {
	fmt.Printf("update %s: %v -> %v\n", table, oldRow, newRow)
}

func (printObserver) OnDelete(table string, row value.Row) {
	fmt.Printf("delete %s: %v\n", table, row)
}

func (printObserver) OnReducerResult(requestID uint32, outcome protocol.ReducerOutcome) {
	fmt.Printf("reducer result (request=%d): kind=%v\n", requestID, outcome.Kind)
}

func (printObserver) OnDisconnect(err error, attempt int) {
	fmt.Printf("disconnected (attempt %d): %v\n", attempt, err)
}

func (printObserver) OnConnectionFailed(err error, attempt int) {
	fmt.Printf("connection attempt %d failed: %v\n", attempt, err)
}
