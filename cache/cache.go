// Package cache maintains the client's subscription cache: one
// primary-key-keyed store per table, updated from subscription snapshots
// and transaction deltas. Reads observe a consistent point-in-time view;
// there is no transaction boundary around a single read.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/spacetimedb/sdk-go/observability"
	"github.com/spacetimedb/sdk-go/protocol"
	"github.com/spacetimedb/sdk-go/rowlist"
	"github.com/spacetimedb/sdk-go/schema"
	"github.com/spacetimedb/sdk-go/value"
)

// tableStore is a single table's primary-key-keyed store. Writes are
// serialized by mu; reads take the read lock so multiple readers proceed
// concurrently.
type tableStore struct {
	mu   sync.RWMutex
	rows map[any]value.Row
}

func newTableStore() *tableStore {
	return &tableStore{rows: make(map[any]value.Row)}
}

// Cache holds one tableStore per table named in the schema.
type Cache struct {
	schema *schema.Schema
	logger observability.Logger

	mu     sync.Mutex
	tables map[string]*tableStore

	loggedUnknown map[string]struct{}
}

// New constructs an empty Cache for the given schema.
func New(sc *schema.Schema, logger observability.Logger) *Cache {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Cache{
		schema:        sc,
		logger:        logger,
		tables:        make(map[string]*tableStore),
		loggedUnknown: make(map[string]struct{}),
	}
}

func (c *Cache) storeFor(table string) (*tableStore, *schema.TableDef, bool) {
	def, ok := c.schema.Tables[table]
	if !ok {
		return nil, nil, false
	}
	c.mu.Lock()
	ts, ok := c.tables[table]
	if !ok {
		ts = newTableStore()
		c.tables[table] = ts
	}
	c.mu.Unlock()
	return ts, &def, true
}

func (c *Cache) warnUnknownOnce(table string) {
	c.mu.Lock()
	_, seen := c.loggedUnknown[table]
	if !seen {
		c.loggedUnknown[table] = struct{}{}
	}
	c.mu.Unlock()
	if !seen {
		c.logger.Warn(context.Background(), "cache: unknown table", "table", table)
	}
}

// primaryKey builds the store key for a decoded row: the value of the
// single primary-key column, an unambiguous Go-syntax rendering of the
// tuple of values in definition order for composite keys, or column index 0 when the table declares no primary
// key at all (spec.md §4.2's fallback — never fabricate a key shared
// across rows).
func primaryKey(def *schema.TableDef, row value.Row) any {
	switch len(def.PrimaryKey) {
	case 0:
		return keyElem(row[def.Columns[0].Name])
	case 1:
		return keyElem(row[def.Columns[def.PrimaryKey[0]].Name])
	default:
		parts := make([]any, len(def.PrimaryKey))
		for i, idx := range def.PrimaryKey {
			parts[i] = keyElem(row[def.Columns[idx].Name])
		}
		return fmt.Sprintf("%#v", parts)
	}
}

// keyElem normalizes a decoded field value into something usable as a Go
// map key (byte slices are not comparable).
func keyElem(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// ApplySnapshot applies a SubscribeApplied's rows: each SingleTableRows is
// decoded against its table's columns and inserted by primary key,
// overwriting any existing entry under the same key.
func (c *Cache) ApplySnapshot(rows protocol.QueryRows) {
	for _, str := range rows {
		c.applyRowList(str.Table, str.Rows, true)
	}
}

// ApplyTransactionUpdate applies a TransactionUpdate's persistent table
// rows: deletes then inserts, per table. Event rows are ignored.
func (c *Cache) ApplyTransactionUpdate(tx protocol.TransactionUpdate) {
	for _, qs := range tx.QuerySets {
		for _, tu := range qs.Tables {
			for _, rows := range tu.Rows {
				if rows.Kind != protocol.Persistent {
					continue
				}
				c.applyRowList(tu.TableName, rows.Deletes, false)
				c.applyRowList(tu.TableName, rows.Inserts, true)
			}
		}
	}
}

// applyRowList decodes a BsatnRowList and either inserts (insert=true) or
// deletes (insert=false) each decoded row by primary key.
func (c *Cache) applyRowList(table string, rl protocol.BsatnRowList, insert bool) {
	ts, def, ok := c.storeFor(table)
	if !ok {
		c.warnUnknownOnce(table)
		return
	}
	rows, err := rowlist.Decode(rl.Hint, rl.Data, def.Columns)
	if err != nil {
		c.logger.Warn(context.Background(), "cache: row-list decode failed", "table", table, "error", err.Error())
		return
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, row := range rows {
		key := primaryKey(def, row)
		if insert {
			ts.rows[key] = row
		} else {
			delete(ts.rows, key)
		}
	}
}

// DecodeRows decodes a BsatnRowList against table's column list without
// mutating the cache. Used by the façade to recover the deletes/inserts
// lists a TableUpdate carries for primary-key reconciliation.
func (c *Cache) DecodeRows(table string, rl protocol.BsatnRowList) ([]value.Row, error) {
	def, ok := c.schema.Tables[table]
	if !ok {
		return nil, nil
	}
	return rowlist.Decode(rl.Hint, rl.Data, def.Columns)
}

// RowKey returns the primary-key value for a decoded row of table, or
// false if the table is unknown.
func (c *Cache) RowKey(table string, row value.Row) (any, bool) {
	def, ok := c.schema.Tables[table]
	if !ok {
		return nil, false
	}
	return primaryKey(&def, row), true
}

// GetAll returns every row currently cached for table, or nil for an
// unknown table.
func (c *Cache) GetAll(table string) []value.Row {
	ts, _, ok := c.storeFor(table)
	if !ok {
		c.warnUnknownOnce(table)
		return nil
	}
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	out := make([]value.Row, 0, len(ts.rows))
	for _, row := range ts.rows {
		out = append(out, row)
	}
	return out
}

// Find returns the row under pk, or nil if absent or the table is unknown.
func (c *Cache) Find(table string, pk any) value.Row {
	ts, _, ok := c.storeFor(table)
	if !ok {
		c.warnUnknownOnce(table)
		return nil
	}
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.rows[keyElem(pk)]
}

// Count returns the number of rows cached for table, or 0 if unknown.
func (c *Cache) Count(table string) int {
	ts, _, ok := c.storeFor(table)
	if !ok {
		c.warnUnknownOnce(table)
		return 0
	}
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.rows)
}
