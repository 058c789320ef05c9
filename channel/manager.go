package channel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"
)

// redialDelay paces the reconnect loop. There is no backoff policy:
// correctness comes from re-joining on every connect, not from retry
// shaping.
var redialDelay = 2 * time.Second

var ErrNotConnected = errors.New("channel not connected")

// Kind distinguishes the two channel lifetimes.
type Kind string

const (
	KindGlobal Kind = "global"
	KindTicket Kind = "ticket"
)

// Channel is one persistent connection with a redial loop. The server
// does not remember subscriptions across reconnects, so onConnect runs
// after every successful dial to re-join the relevant groups.
type Channel struct {
	kind      Kind
	dialer    Dialer
	handler   jsonrpc2.Handler
	onConnect func(ctx context.Context, conn *jsonrpc2.Conn)
	log       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	conn   *jsonrpc2.Conn
	closed bool
}

func newChannel(kind Kind, dialer Dialer, handler jsonrpc2.Handler, onConnect func(ctx context.Context, conn *jsonrpc2.Conn), log *slog.Logger) *Channel {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		kind:      kind,
		dialer:    dialer,
		handler:   handler,
		onConnect: onConnect,
		log:       log.With("channel", string(kind)),
		ctx:       ctx,
		cancel:    cancel,
	}
	go c.run()
	return c
}

func (c *Channel) run() {
	for {
		if c.ctx.Err() != nil {
			return
		}

		stream, err := c.dialer.Dial(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.log.Debug("dial failed, retrying", "error", err)
			if !c.sleep() {
				return
			}
			continue
		}

		conn := jsonrpc2.NewConn(c.ctx, stream, jsonrpc2.AsyncHandler(c.handler))

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.log.Debug("channel connected")
		if c.onConnect != nil {
			c.onConnect(c.ctx, conn)
		}

		<-conn.DisconnectNotify()

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		if c.ctx.Err() != nil {
			return
		}
		c.log.Info("channel dropped, redialing")
		if !c.sleep() {
			return
		}
	}
}

func (c *Channel) sleep() bool {
	select {
	case <-c.ctx.Done():
		return false
	case <-time.After(redialDelay):
		return true
	}
}

// Notify sends a client -> server event on the live connection.
func (c *Channel) Notify(ctx context.Context, method string, params any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Notify(ctx, method, params)
}

// Disconnect tears the channel down for good. Idempotent: a second call
// is a no-op, and no handler runs after it returns the connection closed.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		conn.Close()
	}
}

// Manager owns the two channels and enforces their lifetimes: the global
// channel exists while a session does, the ticket channel while a chat
// view does, and never more than one instance of either.
type Manager struct {
	dialer        Dialer
	sink          EventSink
	currentTicket func() string
	log           *slog.Logger

	mu     sync.Mutex
	global *Channel
	ticket *Channel
}

// NewManager wires the channel manager. currentTicket reports the
// tracked ticket id at connect time so reconnects re-join the right
// update group.
func NewManager(dialer Dialer, sink EventSink, currentTicket func() string) *Manager {
	return &Manager{
		dialer:        dialer,
		sink:          sink,
		currentTicket: currentTicket,
		log:           slog.Default(),
	}
}

// ConnectGlobal (re)creates the global channel. There is no incremental
// resubscribe: any previous instance is torn down first.
func (m *Manager) ConnectGlobal() {
	m.mu.Lock()
	prev := m.global
	m.global = nil
	m.mu.Unlock()
	if prev != nil {
		prev.Disconnect()
	}

	handler := &eventHandler{kind: KindGlobal, sink: m.sink, log: m.log}
	ch := newChannel(KindGlobal, m.dialer, handler, func(ctx context.Context, conn *jsonrpc2.Conn) {
		if id := m.currentTicket(); id != "" {
			if err := conn.Notify(ctx, methodJoinTicketForUpdates, id); err != nil {
				m.log.Warn("failed to join ticket update group", "ticketId", id, "error", err)
			}
		}
	}, m.log)

	m.mu.Lock()
	m.global = ch
	m.mu.Unlock()
}

// OpenTicketChannel connects the chat channel for one ticket. Exactly one
// instance may be alive, so any previous channel is disconnected before
// the new one dials.
func (m *Manager) OpenTicketChannel(ticketID string) {
	m.mu.Lock()
	prev := m.ticket
	m.ticket = nil
	m.mu.Unlock()
	if prev != nil {
		prev.Disconnect()
	}

	handler := &eventHandler{kind: KindTicket, sink: m.sink, log: m.log}
	ch := newChannel(KindTicket, m.dialer, handler, func(ctx context.Context, conn *jsonrpc2.Conn) {
		if err := conn.Notify(ctx, methodJoinTicket, ticketID); err != nil {
			m.log.Warn("failed to join ticket room", "ticketId", ticketID, "error", err)
		}
	}, m.log)

	m.mu.Lock()
	m.ticket = ch
	m.mu.Unlock()
}

// JoinTicketUpdates subscribes the global channel to a ticket's status
// stream without reconnecting. Used right after a ticket is created;
// reconnects re-join automatically through currentTicket.
func (m *Manager) JoinTicketUpdates(ctx context.Context, ticketID string) error {
	m.mu.Lock()
	ch := m.global
	m.mu.Unlock()
	if ch == nil {
		return ErrNotConnected
	}
	return ch.Notify(ctx, methodJoinTicketForUpdates, ticketID)
}

// SendUserMessage emits a chat message on the ticket channel.
func (m *Manager) SendUserMessage(ctx context.Context, ticketID, content string) error {
	m.mu.Lock()
	ch := m.ticket
	m.mu.Unlock()
	if ch == nil {
		return ErrNotConnected
	}
	return ch.Notify(ctx, methodUserMessage, UserMessageParams{TicketID: ticketID, Content: content})
}

// DisconnectTicket tears down the chat channel, e.g. when the user
// leaves the chat view.
func (m *Manager) DisconnectTicket() {
	m.mu.Lock()
	ch := m.ticket
	m.ticket = nil
	m.mu.Unlock()
	if ch != nil {
		ch.Disconnect()
	}
}

// DisconnectAll tears down both channels unconditionally (logout).
func (m *Manager) DisconnectAll() {
	m.mu.Lock()
	global, ticket := m.global, m.ticket
	m.global, m.ticket = nil, nil
	m.mu.Unlock()

	if ticket != nil {
		ticket.Disconnect()
	}
	if global != nil {
		global.Disconnect()
	}
}

// Connected reports whether the channel of the given kind currently holds
// a handle. Used by callers that surface connection state.
func (m *Manager) Connected(kind Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case KindGlobal:
		return m.global != nil
	case KindTicket:
		return m.ticket != nil
	default:
		return false
	}
}
