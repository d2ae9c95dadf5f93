package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spacetimedb/sdk-go/value"
)

func personKey(r value.Row) any { return r["id"] }

// TestReconcileS4SinglePKUpdate implements spec.md scenario S4: a delete and
// an insert sharing a primary key produce exactly one update, no pure
// insert/delete.
func TestReconcileS4SinglePKUpdate(t *testing.T) {
	deletes := []value.Row{{"id": uint64(1), "name": "A", "age": uint32(30)}}
	inserts := []value.Row{{"id": uint64(1), "name": "A", "age": uint32(31)}}

	change := reconcile("person", deletes, inserts, personKey)

	assert.Empty(t, change.Deletes)
	assert.Empty(t, change.Inserts)
	if assert.Len(t, change.Updates, 1) {
		assert.Equal(t, deletes[0], change.Updates[0].Old)
		assert.Equal(t, inserts[0], change.Updates[0].New)
	}
}

// TestReconcileS5MixedUpdate implements spec.md scenario S5: deletes
// [id=1,id=2], inserts [id=1,id=3] must produce, in order, delete(id=2),
// update(id=1,30->31), insert(id=3).
func TestReconcileS5MixedUpdate(t *testing.T) {
	deletes := []value.Row{
		{"id": uint64(1), "age": uint32(30)},
		{"id": uint64(2), "age": uint32(25)},
	}
	inserts := []value.Row{
		{"id": uint64(1), "age": uint32(31)},
		{"id": uint64(3), "age": uint32(40)},
	}

	change := reconcile("person", deletes, inserts, personKey)

	if assert.Len(t, change.Deletes, 1) {
		assert.Equal(t, uint64(2), change.Deletes[0]["id"])
	}
	if assert.Len(t, change.Updates, 1) {
		assert.Equal(t, uint64(1), change.Updates[0].Old["id"])
		assert.Equal(t, uint32(30), change.Updates[0].Old["age"])
		assert.Equal(t, uint32(31), change.Updates[0].New["age"])
	}
	if assert.Len(t, change.Inserts, 1) {
		assert.Equal(t, uint64(3), change.Inserts[0]["id"])
	}
}

// TestReconcileDuplicateKeysPairInOccurrenceOrder exercises spec.md §4.8's
// "rare but must not crash" multiplicity note: two deletes and two inserts
// sharing a primary key pair up in FIFO order rather than erroring.
func TestReconcileDuplicateKeysPairInOccurrenceOrder(t *testing.T) {
	deletes := []value.Row{
		{"id": uint64(9), "v": 1},
		{"id": uint64(9), "v": 2},
	}
	inserts := []value.Row{
		{"id": uint64(9), "v": 3},
		{"id": uint64(9), "v": 4},
	}

	change := reconcile("person", deletes, inserts, personKey)

	assert.Empty(t, change.Deletes)
	assert.Empty(t, change.Inserts)
	if assert.Len(t, change.Updates, 2) {
		assert.Equal(t, 1, change.Updates[0].Old["v"])
		assert.Equal(t, 3, change.Updates[0].New["v"])
		assert.Equal(t, 2, change.Updates[1].Old["v"])
		assert.Equal(t, 4, change.Updates[1].New["v"])
	}
}

// TestReconcilePureInsertsAndDeletesOnly covers the no-match case: disjoint
// primary keys produce only pure deletes and pure inserts.
func TestReconcilePureInsertsAndDeletesOnly(t *testing.T) {
	deletes := []value.Row{{"id": uint64(1)}}
	inserts := []value.Row{{"id": uint64(2)}}

	change := reconcile("person", deletes, inserts, personKey)

	assert.Empty(t, change.Updates)
	assert.Len(t, change.Deletes, 1)
	assert.Len(t, change.Inserts, 1)
}

// TestDispatchRowEventsOrdersDeletesThenUpdatesThenInserts verifies the
// dispatch order spec.md §4.8 mandates: pure deletes, then updates, then
// pure inserts, across however many tables a Transaction carries.
func TestDispatchRowEventsOrdersDeletesThenUpdatesThenInserts(t *testing.T) {
	var order []string
	obs := &orderRecordingObserver{order: &order}

	tx := Transaction{Tables: []TableChange{
		{
			Table:   "person",
			Deletes: []value.Row{{"id": uint64(2)}},
			Updates: []RowUpdate{{Old: value.Row{"id": uint64(1)}, New: value.Row{"id": uint64(1)}}},
			Inserts: []value.Row{{"id": uint64(3)}},
		},
	}}

	dispatchRowEvents(obs, tx)

	assert.Equal(t, []string{"delete", "update", "insert"}, order)
}

type orderRecordingObserver struct {
	NoopObserver
	order *[]string
}

func (o *orderRecordingObserver) OnDelete(string, value.Row)            { *o.order = append(*o.order, "delete") }
func (o *orderRecordingObserver) OnUpdate(string, value.Row, value.Row) { *o.order = append(*o.order, "update") }
func (o *orderRecordingObserver) OnInsert(string, value.Row)            { *o.order = append(*o.order, "insert") }
