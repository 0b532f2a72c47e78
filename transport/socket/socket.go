package socket

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
)

var (
	// ErrNotAuthenticated is returned when an authenticated identity is
	// required but the handshake does not carry one.
	ErrNotAuthenticated = errors.New("socket is not authenticated")

	// ErrMiddlewareRejected is returned by Request when an interceptor
	// vetoes the outbound emit, so the caller fails fast instead of
	// waiting for a response that will never arrive.
	ErrMiddlewareRejected = errors.New("middleware prevented request from being sent")

	// ErrConnClosed is returned when writing to a closed connection.
	ErrConnClosed = errors.New("connection closed")
)

const suspendedMsg = "socket is suspended"

// Envelope is the wire representation of a single event.
type Envelope struct {
	Event   string `json:"event"`
	Data    any    `json:"data,omitempty"`
	Ack     int64  `json:"ack,omitempty"`
	ReplyTo int64  `json:"replyTo,omitempty"`
}

// Handshake carries the connection-time identity and session routing
// information extracted from the upgrade request.
type Handshake struct {
	UserID        string
	GameID        string
	Authenticated bool
}

// Conn is the raw transport a Socket writes to. The read side feeds
// Socket.Dispatch from its own pump.
type Conn interface {
	WriteEnvelope(env Envelope) error
	Close() error
}

// Handler receives the decoded data payload of an inbound event.
type Handler func(data any)

// TransactionHandler answers an inbound request with a Response.
type TransactionHandler func(data any) Response

// Subscription identifies a registered handler so it can be removed
// with Off.
type Subscription struct {
	event string
	id    int
}

type handlerEntry struct {
	id   int
	fn   Handler
	once bool
}

// Socket wraps a Conn with auth gating, a middleware pipeline,
// request/response correlation and suspend/resume semantics.
type Socket struct {
	conn      Conn
	handshake Handshake
	log       zerolog.Logger

	mu           sync.Mutex
	suspended    bool
	middleware   []Middleware
	handlers     map[string][]handlerEntry
	transactions map[string]TransactionHandler
	pending      map[int64]chan Response
	nextSub      int
	nextAck      int64

	seat      int
	botExists bool
}

// New wraps conn, requiring the handshake to carry an authenticated
// identity. It returns ErrNotAuthenticated otherwise.
func New(conn Conn, handshake Handshake, log zerolog.Logger) (*Socket, error) {
	if !handshake.Authenticated {
		return nil, ErrNotAuthenticated
	}
	return NewTrusted(conn, handshake, log), nil
}

// NewTrusted wraps conn without the authentication gate. Publishing to
// an unauthenticated socket still fails at publish time.
func NewTrusted(conn Conn, handshake Handshake, log zerolog.Logger) *Socket {
	return &Socket{
		conn:         conn,
		handshake:    handshake,
		log:          log,
		handlers:     make(map[string][]handlerEntry),
		transactions: make(map[string]TransactionHandler),
		pending:      make(map[int64]chan Response),
	}
}

// Handshake returns the connection-time identity of this socket.
func (s *Socket) Handshake() Handshake {
	return s.handshake
}

// Authenticated reports whether the socket carries an authenticated
// identity.
func (s *Socket) Authenticated() bool {
	return s.handshake.Authenticated
}

// UserID returns the durable identity bound at connection time.
func (s *Socket) UserID() string {
	return s.handshake.UserID
}

// GameID returns the session id carried in the connection handshake.
func (s *Socket) GameID() string {
	return s.handshake.GameID
}

// Seat returns the session-scoped player number assigned on admission.
func (s *Socket) Seat() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seat
}

// SetSeat records the session-scoped player number.
func (s *Socket) SetSeat(seat int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seat = seat
}

// BotExists reports whether this player's collector bot has been spawned.
func (s *Socket) BotExists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.botExists
}

// SetBotExists records that this player's collector bot exists.
func (s *Socket) SetBotExists(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.botExists = v
}

// Use appends an interceptor to the middleware chain.
func (s *Socket) Use(mw Middleware) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middleware = append(s.middleware, mw)
}

// Suspend freezes interaction: inbound handlers stop being invoked and
// transaction requests are answered with an ERROR envelope. Outstanding
// operations are not drained.
func (s *Socket) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = true
}

// Resume lifts a suspension.
func (s *Socket) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = false
}

// Suspended reports whether the socket is suspended.
func (s *Socket) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

// Close closes the underlying connection.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// Emit sends an event through the middleware chain. The returned bool
// reports whether the emit happened; a veto yields (false, nil).
func (s *Socket) Emit(event string, data any) (bool, error) {
	return s.emit(Envelope{Event: event, Data: data})
}

func (s *Socket) emit(env Envelope) (bool, error) {
	for _, mw := range s.middlewareChain() {
		if !mw.Handle(env.Event, env.Data) {
			return false, nil
		}
	}
	if err := s.conn.WriteEnvelope(env); err != nil {
		return false, fmt.Errorf("write %q: %w", env.Event, err)
	}
	return true, nil
}

// Request sends an event expecting a single response, correlated by a
// per-call ack token. A middleware veto fails immediately with
// ErrMiddlewareRejected. The wait is unbounded unless ctx bounds it.
func (s *Socket) Request(ctx context.Context, event string, data any) (Response, error) {
	ch := make(chan Response, 1)

	s.mu.Lock()
	s.nextAck++
	ack := s.nextAck
	s.pending[ack] = ch
	s.mu.Unlock()

	sent, err := s.emit(Envelope{Event: event, Data: data, Ack: ack})
	if err != nil || !sent {
		s.mu.Lock()
		delete(s.pending, ack)
		s.mu.Unlock()
		if err != nil {
			return Response{}, err
		}
		return Response{}, ErrMiddlewareRejected
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, ack)
		s.mu.Unlock()
		return Response{}, ctx.Err()
	}
}

// On registers a handler for event. Returns a Subscription usable with
// Off.
func (s *Socket) On(event string, fn Handler) Subscription {
	return s.register(event, fn, false)
}

// Once registers a handler that is removed after its first invocation.
func (s *Socket) Once(event string, fn Handler) Subscription {
	return s.register(event, fn, true)
}

func (s *Socket) register(event string, fn Handler, once bool) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	s.handlers[event] = append(s.handlers[event], handlerEntry{id: s.nextSub, fn: fn, once: once})
	return Subscription{event: event, id: s.nextSub}
}

// Off removes a previously registered handler. Removing an unknown
// subscription is a no-op.
func (s *Socket) Off(sub Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.handlers[sub.event]
	for i, e := range entries {
		if e.id == sub.id {
			s.handlers[sub.event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Transaction registers a responder for inbound requests on event.
// While suspended, requests are answered with an ERROR envelope without
// invoking fn.
func (s *Socket) Transaction(event string, fn TransactionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[event] = fn
}

// Dispatch routes one inbound envelope. It is called by the connection
// read pump.
func (s *Socket) Dispatch(env Envelope) {
	if env.ReplyTo != 0 {
		s.resolvePending(env)
		return
	}
	if env.Ack != 0 {
		s.dispatchTransaction(env)
		return
	}
	s.dispatchEvent(env)
}

func (s *Socket) resolvePending(env Envelope) {
	s.mu.Lock()
	ch, ok := s.pending[env.ReplyTo]
	delete(s.pending, env.ReplyTo)
	s.mu.Unlock()
	if !ok {
		return
	}

	var resp Response
	if err := mapstructure.Decode(env.Data, &resp); err != nil {
		resp = Err(fmt.Sprintf("malformed response payload: %v", err))
	}
	ch <- resp
}

func (s *Socket) dispatchTransaction(env Envelope) {
	s.mu.Lock()
	fn, ok := s.transactions[env.Event]
	suspended := s.suspended
	s.mu.Unlock()
	if !ok {
		return
	}

	var resp Response
	if suspended {
		resp = Err(suspendedMsg)
	} else {
		resp = fn(env.Data)
	}
	if err := s.conn.WriteEnvelope(Envelope{Event: env.Event, Data: resp, ReplyTo: env.Ack}); err != nil {
		s.log.Warn().Err(err).Str("event", env.Event).Msg("write reply failed")
	}
}

func (s *Socket) dispatchEvent(env Envelope) {
	s.mu.Lock()
	if s.suspended {
		s.mu.Unlock()
		return
	}
	entries := make([]handlerEntry, len(s.handlers[env.Event]))
	copy(entries, s.handlers[env.Event])
	remaining := s.handlers[env.Event][:0]
	for _, e := range s.handlers[env.Event] {
		if !e.once {
			remaining = append(remaining, e)
		}
	}
	s.handlers[env.Event] = remaining
	mws := make([]Middleware, len(s.middleware))
	copy(mws, s.middleware)
	s.mu.Unlock()

	if len(entries) == 0 {
		return
	}
	for _, mw := range mws {
		mw.Forward(env.Event, env.Data)
	}
	for _, e := range entries {
		e.fn(env.Data)
	}
}

func (s *Socket) middlewareChain() []Middleware {
	s.mu.Lock()
	defer s.mu.Unlock()
	mws := make([]Middleware, len(s.middleware))
	copy(mws, s.middleware)
	return mws
}
