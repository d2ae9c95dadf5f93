// Package conn implements the connection actor: it owns the WebSocket,
// applies the compression envelope, mints request/query-set IDs, correlates
// responses to in-flight requests, and reconnects with backoff.
package conn

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/spacetimedb/sdk-go/observability"
	"github.com/spacetimedb/sdk-go/protocol"
)

// Subprotocol is the binary WebSocket subprotocol negotiated with the
// server.
const Subprotocol = "v2.bsatn.spacetimedb"

// State is the connection actor's lifecycle state.
type State string

const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Negotiating  State = "negotiating"
	Ready        State = "ready"
)

// CompressionName maps a protocol compression byte to its URL query value.
func CompressionName(b byte) string {
	switch b {
	case protocol.CompressionGzip:
		return "gzip"
	case protocol.CompressionBrotli:
		return "brotli"
	default:
		return "none"
	}
}

// Config configures a Conn.
type Config struct {
	Scheme   string // "ws" or "wss"
	Host     string
	Database string
	Token    string

	Compression byte // protocol.CompressionNone/Gzip/Brotli

	// ReconnectBase and ReconnectMax bound the backoff: min(base*attempt, max).
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	MaxAttempts   int

	// RateLimiter, when set, throttles outbound Send calls.
	RateLimiter *rate.Limiter

	Logger observability.Logger
	Tracer observability.Tracer

	Dialer *websocket.Dialer
}

func (c *Config) setDefaults() {
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = 500 * time.Millisecond
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.Logger == nil {
		c.Logger = observability.NewNoopLogger()
	}
	if c.Tracer == nil {
		c.Tracer = observability.NewNoopTracer()
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
}

// requestDescriptor tracks one in-flight correlated request.
type requestDescriptor struct {
	tag      byte
	issuedAt time.Time
}

// Descriptor is the public, read-only view of a requestDescriptor.
type Descriptor struct {
	Tag      byte
	IssuedAt time.Time
}

// EventKind classifies a lifecycle event reported to Handler.OnEvent.
type EventKind string

const (
	EventDisconnected     EventKind = "disconnected"
	EventConnectionFailed EventKind = "connection_failed"
	EventReconnecting     EventKind = "reconnecting"
)

// Event carries lifecycle notifications for reconnection reporting.
type Event struct {
	Kind    EventKind
	Reason  error
	Attempt int
}

// Handler receives decoded server messages and lifecycle events. Both
// methods are called from the Conn's single read-loop goroutine.
type Handler interface {
	OnMessage(msg protocol.ServerMessage)
	OnEvent(ev Event)
}

// Conn is a single logical connection to a SpacetimeDB instance. It may
// open several underlying WebSocket connections over its lifetime as it
// reconnects; request_id/query_set_id restart at 1 on each new connection
// per spec.
type Conn struct {
	cfg     Config
	handler Handler

	mu      sync.Mutex
	ws      *websocket.Conn
	st      State
	pending map[uint32]requestDescriptor

	requestID  atomic.Uint32
	querySetID atomic.Uint32

	identity     [32]byte
	connectionID [16]byte
	token        string

	closed chan struct{}
	once   sync.Once
}

// New constructs a Conn. Call Start to begin connecting.
func New(cfg Config, handler Handler) *Conn {
	cfg.setDefaults()
	return &Conn{
		cfg:     cfg,
		handler: handler,
		st:      Disconnected,
		pending: make(map[uint32]requestDescriptor),
		closed:  make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// Identity returns the negotiated identity once Ready; zero value before.
func (c *Conn) Identity() [32]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Token returns the current (possibly server-minted) auth token.
func (c *Conn) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.st = s
	c.mu.Unlock()
}

func dialURL(cfg Config) string {
	u := url.URL{
		Scheme: cfg.Scheme,
		Host:   cfg.Host,
		Path:   fmt.Sprintf("/v1/database/%s/subscribe", cfg.Database),
	}
	q := u.Query()
	q.Set("compression", CompressionName(cfg.Compression))
	u.RawQuery = q.Encode()
	return u.String()
}

// Start runs the connect-and-reconnect loop until ctx is canceled or
// max_attempts is exhausted. It blocks; callers typically run it in its own
// goroutine.
func (c *Conn) Start(ctx context.Context) error {
	ctx, span := c.cfg.Tracer.Start(ctx, "conn.session")
	defer span.End()

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return nil
		default:
		}

		attempt++
		c.setState(Connecting)
		attemptID := uuid.NewString()
		c.cfg.Logger.Info(ctx, "conn: connecting", "attempt", attempt, "attempt_id", attemptID)
		span.AddEvent("connecting", "attempt", attempt)

		err := c.runOnce(ctx)
		if err == nil {
			// Clean shutdown (Close was called).
			return nil
		}

		c.clearPending()
		c.setState(Disconnected)
		c.handler.OnEvent(Event{Kind: EventDisconnected, Reason: err, Attempt: attempt})
		c.cfg.Logger.Warn(ctx, "conn: disconnected", "attempt", attempt, "reason", err.Error())
		span.AddEvent("disconnected", "attempt", attempt, "reason", err.Error())

		if attempt >= c.cfg.MaxAttempts {
			c.handler.OnEvent(Event{Kind: EventConnectionFailed, Reason: err, Attempt: attempt})
			span.RecordError(err)
			span.SetStatus(codes.Error, "reconnect attempts exhausted")
			return fmt.Errorf("conn: exhausted %d reconnect attempts: %w", attempt, err)
		}

		delay := backoff(attempt, c.cfg.ReconnectBase, c.cfg.ReconnectMax)
		c.handler.OnEvent(Event{Kind: EventReconnecting, Attempt: attempt})
		span.AddEvent("reconnecting", "attempt", attempt, "delay", delay.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		case <-c.closed:
			return nil
		}
	}
}

// backoff computes min(base*attempt, max).
func backoff(attempt int, base, max time.Duration) time.Duration {
	d := base * time.Duration(attempt)
	if d > max {
		return max
	}
	return d
}

func (c *Conn) runOnce(ctx context.Context) error {
	ctx, span := c.cfg.Tracer.Start(ctx, "conn.connect")
	defer span.End()

	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	dialer := *c.cfg.Dialer
	dialer.Subprotocols = []string{Subprotocol}

	ws, _, err := dialer.DialContext(ctx, dialURL(c.cfg), header)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return fmt.Errorf("conn: dial: %w", err)
	}

	c.mu.Lock()
	c.ws = ws
	c.requestID.Store(0)
	c.querySetID.Store(0)
	c.mu.Unlock()
	c.setState(Negotiating)
	span.AddEvent("negotiating")

	defer ws.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return nil
		default:
		}

		_, frame, err := ws.ReadMessage()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "read failed")
			return fmt.Errorf("conn: read: %w", err)
		}
		c.handleFrame(ctx, frame)
	}
}

func (c *Conn) handleFrame(ctx context.Context, frame []byte) {
	compression, payload, err := protocol.StripEnvelope(frame)
	if err != nil {
		c.cfg.Logger.Warn(ctx, "conn: dropped frame: empty envelope")
		return
	}
	payload, err = protocol.Decompress(compression, payload)
	if err != nil {
		c.cfg.Logger.Warn(ctx, "conn: dropped frame: decompress failed", "error", err.Error())
		return
	}
	msg, err := protocol.DecodeServerMessage(payload)
	if err != nil {
		c.cfg.Logger.Warn(ctx, "conn: dropped frame: decode failed", "error", err.Error())
		return
	}

	if ic, ok := msg.(protocol.InitialConnection); ok {
		c.mu.Lock()
		c.identity = ic.Identity
		c.connectionID = ic.ConnectionID
		c.token = ic.Token
		c.mu.Unlock()
		c.setState(Ready)
	}

	c.correlate(msg)
	c.handler.OnMessage(msg)
}

// correlate clears the pending descriptor for any message that carries a
// matching request_id, per spec.md §4.6. TransactionUpdate never clears
// anything.
func (c *Conn) correlate(msg protocol.ServerMessage) {
	var reqID *uint32
	switch m := msg.(type) {
	case protocol.SubscribeApplied:
		id := m.RequestID
		reqID = &id
	case protocol.UnsubscribeApplied:
		id := m.RequestID
		reqID = &id
	case protocol.SubscriptionError:
		reqID = m.RequestID
	case protocol.OneOffQueryResult:
		id := m.RequestID
		reqID = &id
	case protocol.ReducerResult:
		id := m.RequestID
		reqID = &id
	case protocol.ProcedureResult:
		id := m.RequestID
		reqID = &id
	default:
		return
	}
	if reqID == nil {
		return
	}
	c.mu.Lock()
	delete(c.pending, *reqID)
	c.mu.Unlock()
}

func (c *Conn) clearPending() {
	c.mu.Lock()
	c.pending = make(map[uint32]requestDescriptor)
	c.mu.Unlock()
}

// Pending returns a snapshot of in-flight request descriptors, for tests
// and diagnostics.
func (c *Conn) Pending() map[uint32]Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uint32]Descriptor, len(c.pending))
	for id, d := range c.pending {
		out[id] = Descriptor{Tag: d.tag, IssuedAt: d.issuedAt}
	}
	return out
}

// NextQuerySetID allocates the next query_set_id (starts at 1, per
// connection).
func (c *Conn) NextQuerySetID() uint32 {
	return c.querySetID.Add(1)
}

// Send registers a request descriptor under requestID (allocated by the
// caller via NextRequestID), and writes the encoded message as a binary
// frame wrapped in the configured compression envelope. All five client
// variants carry a request_id by construction, so every Send is correlated.
func (c *Conn) Send(ctx context.Context, msg protocol.ClientMessage, requestID uint32) error {
	if c.cfg.RateLimiter != nil {
		if err := c.cfg.RateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("conn: rate limit: %w", err)
		}
	}

	c.mu.Lock()
	ws := c.ws
	if ws == nil {
		c.mu.Unlock()
		return fmt.Errorf("conn: not connected")
	}
	var tag byte
	switch msg.(type) {
	case protocol.Subscribe:
		tag = protocol.TagSubscribe
	case protocol.Unsubscribe:
		tag = protocol.TagUnsubscribe
	case protocol.OneOffQuery:
		tag = protocol.TagOneOffQuery
	case protocol.CallReducer:
		tag = protocol.TagCallReducer
	case protocol.CallProcedure:
		tag = protocol.TagCallProcedure
	}
	c.pending[requestID] = requestDescriptor{tag: tag, issuedAt: time.Now()}
	c.mu.Unlock()

	payload := protocol.EncodeClientMessage(msg)
	frame := protocol.Envelope(c.cfg.Compression, payload)
	return ws.WriteMessage(websocket.BinaryMessage, frame)
}

// NextRequestID allocates the next request_id (starts at 1, per
// connection). Callers build their message with this ID before calling
// Send so the ID embedded on the wire matches the pending descriptor's key.
func (c *Conn) NextRequestID() uint32 {
	return c.requestID.Add(1)
}

// Close shuts the connection down and stops the reconnect loop.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws != nil {
		return ws.Close()
	}
	return nil
}
