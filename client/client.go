// Package client implements the façade actor (spec.md §4.8): it owns user
// state, fetches the schema, starts the connection, feeds the cache, and
// fans server events out to an Observer. It is the one package that wires
// schema, cache, conn, and protocol together into the public surface spec.md
// §6 names.
package client

import (
	"context"
	"encoding/hex"
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"github.com/spacetimedb/sdk-go/cache"
	"github.com/spacetimedb/sdk-go/conn"
	"github.com/spacetimedb/sdk-go/encode"
	"github.com/spacetimedb/sdk-go/observability"
	"github.com/spacetimedb/sdk-go/protocol"
	"github.com/spacetimedb/sdk-go/schema"
	"github.com/spacetimedb/sdk-go/tokenstore"
	tokenmemory "github.com/spacetimedb/sdk-go/tokenstore/memory"
	"github.com/spacetimedb/sdk-go/value"
)

// ErrorKind classifies a call_reducer failure returned synchronously to the
// caller (spec.md §6: "ok | unknown_reducer | encoding_error").
type ErrorKind string

const (
	UnknownReducer ErrorKind = "unknown_reducer"
	EncodingError  ErrorKind = "encoding_error"
)

// Error reports a client-surface failure that never touched the socket.
type Error struct {
	Kind    ErrorKind
	Reducer string
	Cause   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case UnknownReducer:
		return fmt.Sprintf("client: unknown reducer %q", e.Reducer)
	case EncodingError:
		return fmt.Sprintf("client: encoding reducer %q args: %v", e.Reducer, e.Cause)
	default:
		return "client: error"
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Client is the façade: schema + cache + connection, wired to an Observer.
// It implements conn.Handler directly, so server events flow straight from
// the connection actor into reconciliation and dispatch with no extra
// goroutine hop.
type Client struct {
	cfg      Config
	observer Observer

	schema *schema.Schema
	cache  *cache.Cache
	conn   *conn.Conn

	tokenStore tokenstore.Store
	logger     observability.Logger
	tracer     observability.Tracer
}

// New constructs a Client. Call Start to fetch the schema and begin
// connecting; Start blocks until the connection is closed or ctx is done.
func New(cfg Config, observer Observer) *Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNoopLogger()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NewNoopTracer()
	}
	if cfg.TokenStore == nil {
		cfg.TokenStore = tokenmemory.New()
	}
	return &Client{
		cfg:        cfg,
		observer:   observer,
		tokenStore: cfg.TokenStore,
		logger:     cfg.Logger,
		tracer:     cfg.Tracer,
	}
}

func wsAndHTTPSchemes(scheme string) (ws, http string) {
	if scheme == "wss" || scheme == "https" {
		return "wss", "https"
	}
	return "ws", "http"
}

// Start fetches the schema over HTTP, then connects and runs the connection
// actor's reconnect loop until ctx is canceled, Close is called, or
// max_attempts is exhausted. The TokenStore, if no token was given
// explicitly, is consulted for a cached token before the first dial; the
// store is keyed by database name, since the server identity a token was
// issued for is only learned *after* connecting (see DESIGN.md).
func (c *Client) Start(ctx context.Context) error {
	wsScheme, httpScheme := wsAndHTTPSchemes(c.cfg.Scheme)

	sc, err := schema.Fetch(ctx, nil, httpScheme, c.cfg.Host, c.cfg.Database)
	if err != nil {
		return fmt.Errorf("client: fetch schema: %w", err)
	}
	c.schema = sc
	c.cache = cache.New(sc, c.logger)

	token := c.cfg.Token
	if token == "" {
		if tok, ok, err := c.tokenStore.Load(ctx, c.cfg.Database); err != nil {
			c.logger.Warn(ctx, "client: token load failed", "error", err.Error())
		} else if ok {
			token = tok
		}
	}

	connCfg := conn.Config{
		Scheme:        wsScheme,
		Host:          c.cfg.Host,
		Database:      c.cfg.Database,
		Token:         token,
		Compression:   compressionByte(c.cfg.Compression),
		ReconnectBase: c.cfg.Reconnect.BaseDelay,
		ReconnectMax:  c.cfg.Reconnect.MaxDelay,
		MaxAttempts:   c.cfg.Reconnect.MaxAttempts,
		RateLimiter:   c.cfg.rateLimiter(),
		Logger:        c.logger,
		Tracer:        c.tracer,
	}
	c.conn = conn.New(connCfg, c)
	return c.conn.Start(ctx)
}

// Close tears the façade down: it stops the connection, which closes the
// socket and drops pending responses (spec.md §5 cancellation order).
func (c *Client) Close() error {
	return c.conn.Close()
}

// --- conn.Handler ---

// OnMessage dispatches one decoded server message to the cache and Observer.
func (c *Client) OnMessage(msg protocol.ServerMessage) {
	switch m := msg.(type) {
	case protocol.InitialConnection:
		c.handleInitialConnection(m)
	case protocol.SubscribeApplied:
		c.handleSubscribeApplied(m)
	case protocol.UnsubscribeApplied:
		c.handleUnsubscribeApplied(m)
	case protocol.SubscriptionError:
		c.observer.OnSubscriptionError(m.RequestID, m.QuerySetID, m.ErrMessage)
	case protocol.TransactionUpdate:
		c.handleTransactionUpdate(m)
	case protocol.OneOffQueryResult:
		c.handleOneOffQueryResult(m)
	case protocol.ReducerResult:
		c.handleReducerResult(m)
	case protocol.ProcedureResult:
		c.observer.OnProcedureResult(m.RequestID, m.Status)
	}
}

// OnEvent forwards connection lifecycle events to the Observer.
func (c *Client) OnEvent(ev conn.Event) {
	switch ev.Kind {
	case conn.EventDisconnected:
		c.observer.OnDisconnect(ev.Reason, ev.Attempt)
	case conn.EventConnectionFailed:
		c.observer.OnConnectionFailed(ev.Reason, ev.Attempt)
	case conn.EventReconnecting:
		c.logger.Info(context.Background(), "client: reconnecting", "attempt", ev.Attempt)
	}
}

func (c *Client) handleInitialConnection(m protocol.InitialConnection) {
	ctx := context.Background()
	identity := hex.EncodeToString(m.Identity[:])
	c.logger.Info(ctx, "client: connected", "identity", identity)

	if err := c.tokenStore.Save(ctx, c.cfg.Database, m.Token); err != nil {
		c.logger.Warn(ctx, "client: token save failed", "error", err.Error())
	}

	c.observer.OnConnect()

	if len(c.cfg.Subscriptions) > 0 {
		reqID := c.conn.NextRequestID()
		qsID := c.conn.NextQuerySetID()
		msg := protocol.Subscribe{RequestID: reqID, QuerySetID: qsID, Queries: c.cfg.Subscriptions}
		if err := c.conn.Send(ctx, msg, reqID); err != nil {
			c.logger.Warn(ctx, "client: initial subscribe failed", "error", err.Error())
		}
	}
}

func (c *Client) handleSubscribeApplied(m protocol.SubscribeApplied) {
	c.cache.ApplySnapshot(m.Rows)
	for _, str := range m.Rows {
		rows, err := c.cache.DecodeRows(str.Table, str.Rows)
		if err != nil {
			c.logger.Warn(context.Background(), "client: decode subscribe_applied rows failed", "table", str.Table, "error", err.Error())
			continue
		}
		c.observer.OnSubscribeApplied(str.Table, rows)
	}
}

func (c *Client) handleUnsubscribeApplied(m protocol.UnsubscribeApplied) {
	var rowsPtr *[]value.Row
	if m.Rows != nil {
		var all []value.Row
		for _, str := range *m.Rows {
			rows, err := c.cache.DecodeRows(str.Table, str.Rows)
			if err != nil {
				c.logger.Warn(context.Background(), "client: decode unsubscribe_applied rows failed", "table", str.Table, "error", err.Error())
				continue
			}
			all = append(all, rows...)
		}
		rowsPtr = &all
	}
	c.observer.OnUnsubscribeApplied(m.RequestID, m.QuerySetID, rowsPtr)
}

func (c *Client) handleTransactionUpdate(m protocol.TransactionUpdate) {
	c.applyTransaction(context.Background(), m)
}

// applyTransaction feeds a TransactionUpdate into the cache, reconciles it
// into deletes/updates/inserts, and dispatches it to the Observer, all
// under one span per spec.md §4.7's per-transaction cache mutation.
func (c *Client) applyTransaction(ctx context.Context, m protocol.TransactionUpdate) {
	ctx, span := c.tracer.Start(ctx, "client.apply_transaction")
	defer span.End()

	c.cache.ApplyTransactionUpdate(m)
	tx := c.buildTransaction(m)
	c.observer.OnTransaction(tx)
	if !c.observer.SuppressRowEvents() {
		dispatchRowEvents(c.observer, tx)
	}
}

func (c *Client) handleOneOffQueryResult(m protocol.OneOffQueryResult) {
	var rows []value.Row
	if m.Rows != nil {
		for _, str := range *m.Rows {
			decoded, err := c.cache.DecodeRows(str.Table, str.Rows)
			if err != nil {
				c.logger.Warn(context.Background(), "client: decode one_off_query rows failed", "table", str.Table, "error", err.Error())
				continue
			}
			rows = append(rows, decoded...)
		}
	}
	c.observer.OnQueryResult(m.RequestID, rows, m.ErrMsg)
}

func (c *Client) handleReducerResult(m protocol.ReducerResult) {
	c.observer.OnReducerResult(m.RequestID, m.Outcome)
	if m.Outcome.Kind == protocol.ReducerOK && m.Outcome.Tx != nil {
		c.applyTransaction(context.Background(), *m.Outcome.Tx)
	}
}

// buildTransaction decodes every Persistent TableUpdateRows in tx and
// reconciles deletes/inserts by primary key per table, per spec.md §4.8.
func (c *Client) buildTransaction(tx protocol.TransactionUpdate) Transaction {
	var out Transaction
	for _, qs := range tx.QuerySets {
		for _, tu := range qs.Tables {
			for _, rows := range tu.Rows {
				if rows.Kind != protocol.Persistent {
					continue
				}
				deletes, err := c.cache.DecodeRows(tu.TableName, rows.Deletes)
				if err != nil {
					c.logger.Warn(context.Background(), "client: decode transaction deletes failed", "table", tu.TableName, "error", err.Error())
					continue
				}
				inserts, err := c.cache.DecodeRows(tu.TableName, rows.Inserts)
				if err != nil {
					c.logger.Warn(context.Background(), "client: decode transaction inserts failed", "table", tu.TableName, "error", err.Error())
					continue
				}
				table := tu.TableName
				change := reconcile(table, deletes, inserts, func(r value.Row) any {
					k, _ := c.cache.RowKey(table, r)
					return k
				})
				out.Tables = append(out.Tables, change)
			}
		}
	}
	return out
}

// reconcile pairs deletes and inserts of a single table by primary key, per
// spec.md §4.8: a delete D pairs with the earliest unused insert I sharing
// pk(D), emitting update(D, I); unpaired deletes/inserts remain pure. The
// result preserves encounter order within each category.
func reconcile(table string, deletes, inserts []value.Row, keyOf func(value.Row) any) TableChange {
	insertsByKey := make(map[any][]int)
	for i, row := range inserts {
		k := keyOf(row)
		insertsByKey[k] = append(insertsByKey[k], i)
	}
	consumed := make([]bool, len(inserts))

	change := TableChange{Table: table}
	for _, d := range deletes {
		k := keyOf(d)
		matched := false
		for _, idx := range insertsByKey[k] {
			if consumed[idx] {
				continue
			}
			consumed[idx] = true
			change.Updates = append(change.Updates, RowUpdate{Old: d, New: inserts[idx]})
			matched = true
			break
		}
		if !matched {
			change.Deletes = append(change.Deletes, d)
		}
	}
	for i, row := range inserts {
		if !consumed[i] {
			change.Inserts = append(change.Inserts, row)
		}
	}
	return change
}

func dispatchRowEvents(o Observer, tx Transaction) {
	for _, tc := range tx.Tables {
		for _, d := range tc.Deletes {
			o.OnDelete(tc.Table, d)
		}
		for _, u := range tc.Updates {
			o.OnUpdate(tc.Table, u.Old, u.New)
		}
		for _, row := range tc.Inserts {
			o.OnInsert(tc.Table, row)
		}
	}
}

// --- client surface (spec.md §6) ---

// CallReducer looks the reducer up in the schema, encodes args against its
// parameter list, and sends a CallReducer. An unknown name or an encoding
// failure returns a structured *Error without ever touching the socket.
func (c *Client) CallReducer(ctx context.Context, name string, args map[string]any) (uint32, error) {
	ctx, span := c.tracer.Start(ctx, "client.call_reducer")
	defer span.End()
	span.AddEvent("reducer", "name", name)

	def, err := c.schema.Reducer(name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown reducer")
		return 0, &Error{Kind: UnknownReducer, Reducer: name}
	}
	encoded, err := encode.ReducerArgs(args, def)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encoding failed")
		return 0, &Error{Kind: EncodingError, Reducer: name, Cause: err}
	}
	reqID, err := c.sendCallReducer(ctx, name, encoded)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
	}
	return reqID, err
}

// CallReducerRaw sends pre-encoded BSATN argument bytes for name, still
// failing fast on an unknown reducer without touching the socket.
func (c *Client) CallReducerRaw(ctx context.Context, name string, args []byte) (uint32, error) {
	ctx, span := c.tracer.Start(ctx, "client.call_reducer")
	defer span.End()
	span.AddEvent("reducer", "name", name)

	if _, err := c.schema.Reducer(name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown reducer")
		return 0, &Error{Kind: UnknownReducer, Reducer: name}
	}
	reqID, err := c.sendCallReducer(ctx, name, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
	}
	return reqID, err
}

func (c *Client) sendCallReducer(ctx context.Context, name string, args []byte) (uint32, error) {
	reqID := c.conn.NextRequestID()
	msg := protocol.CallReducer{RequestID: reqID, Reducer: name, Args: args}
	if err := c.conn.Send(ctx, msg, reqID); err != nil {
		return 0, err
	}
	return reqID, nil
}

// Subscribe sends a Subscribe for queries under a newly minted query_set_id.
func (c *Client) Subscribe(ctx context.Context, queries []string) (uint32, error) {
	qsID := c.conn.NextQuerySetID()
	reqID := c.conn.NextRequestID()
	msg := protocol.Subscribe{RequestID: reqID, QuerySetID: qsID, Queries: queries}
	if err := c.conn.Send(ctx, msg, reqID); err != nil {
		return 0, err
	}
	return qsID, nil
}

// Unsubscribe drops querySetID, optionally asking the server to report the
// rows it drops.
func (c *Client) Unsubscribe(ctx context.Context, querySetID uint32, sendDroppedRows bool) error {
	reqID := c.conn.NextRequestID()
	flags := protocol.UnsubscribeDefault
	if sendDroppedRows {
		flags = protocol.UnsubscribeSendDroppedRows
	}
	msg := protocol.Unsubscribe{RequestID: reqID, QuerySetID: querySetID, Flags: flags}
	return c.conn.Send(ctx, msg, reqID)
}

// OneOffQuery runs an ad-hoc query; the result is delivered to
// Observer.OnQueryResult.
func (c *Client) OneOffQuery(ctx context.Context, query string) (uint32, error) {
	reqID := c.conn.NextRequestID()
	msg := protocol.OneOffQuery{RequestID: reqID, Query: query}
	if err := c.conn.Send(ctx, msg, reqID); err != nil {
		return 0, err
	}
	return reqID, nil
}

// GetAll returns every cached row for table.
func (c *Client) GetAll(table string) []value.Row { return c.cache.GetAll(table) }

// Find returns the cached row under pk, or nil.
func (c *Client) Find(table string, pk any) value.Row { return c.cache.Find(table, pk) }

// Count returns the number of rows cached for table.
func (c *Client) Count(table string) int { return c.cache.Count(table) }
