package order

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Machine is the authoritative in-memory order state: the current ticket,
// its transcript, chat flags, link input, validation result and service
// status. It is the only mutation surface; every event handler funnels
// through it, so invariants like "messages imply an open ticket" are
// enforced in one place.
//
// Status and completion events carry the ticket id they apply to; an event
// whose id does not match the tracked ticket is a no-op. All handlers are
// idempotent, so the same event arriving on both the global and the ticket
// channel leaves the state unchanged.
type Machine struct {
	mu         sync.Mutex
	ticket     *Ticket
	messages   []ChatMessage
	chatOpen   bool // chat view visible
	chatClosed bool // input locked, no messages accepted
	link       string
	validation *ValidationResult
	service    ServiceStatus

	listenerMu sync.RWMutex
	listeners  []OnChangeListener
}

func NewMachine() *Machine {
	return &Machine{
		chatClosed: true,
		service:    ServiceStatus{IsOpen: true, Message: "All systems operational"},
	}
}

// AddOnChangeListener registers a listener for state changes.
func (m *Machine) AddOnChangeListener(l OnChangeListener) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Snapshot is an immutable copy of the machine state for rendering.
type Snapshot struct {
	Ticket     *Ticket
	Messages   []ChatMessage
	ChatOpen   bool
	ChatClosed bool
	Link       string
	Validation *ValidationResult
	Service    ServiceStatus
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	snap := Snapshot{
		ChatOpen:   m.chatOpen,
		ChatClosed: m.chatClosed,
		Link:       m.link,
		Service:    m.service,
	}
	if m.ticket != nil {
		t := *m.ticket
		snap.Ticket = &t
	}
	if m.validation != nil {
		v := *m.validation
		snap.Validation = &v
	}
	if len(m.messages) > 0 {
		snap.Messages = make([]ChatMessage, len(m.messages))
		copy(snap.Messages, m.messages)
	}
	return snap
}

func (m *Machine) notify(kind ChangeKind, snap Snapshot) {
	m.listenerMu.RLock()
	listeners := make([]OnChangeListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenerMu.RUnlock()

	change := Change{Kind: kind, Snapshot: snap}
	for _, l := range listeners {
		l.OnOrderChange(change)
	}
}

// CurrentTicketID returns the id of the tracked ticket, or "" if none.
func (m *Machine) CurrentTicketID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ticket == nil {
		return ""
	}
	return m.ticket.ID
}

// Service returns the current service status.
func (m *Machine) Service() ServiceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.service
}

// ApplyServiceStatus replaces the service banner state.
func (m *Machine) ApplyServiceStatus(st ServiceStatus) {
	m.mu.Lock()
	if m.service == st {
		m.mu.Unlock()
		return
	}
	m.service = st
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(ChangeService, snap)
}

// SetLink records the raw link input text.
func (m *Machine) SetLink(text string) {
	m.mu.Lock()
	m.link = text
	m.mu.Unlock()
}

// Link returns the current link input text.
func (m *Machine) Link() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.link
}

// SetValidation replaces the current validation result. nil clears it.
func (m *Machine) SetValidation(v *ValidationResult) {
	m.mu.Lock()
	m.validation = v
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(ChangeValidation, snap)
}

// Validation returns the current validation result, or nil.
func (m *Machine) Validation() *ValidationResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.validation == nil {
		return nil
	}
	v := *m.validation
	return &v
}

// SeedTicket installs a ticket resolved from the backend at login or
// startup. An open ticket marks chat as resumable but does not open the
// chat view; the user must explicitly continue. nil clears any stale
// local ticket reference. The transcript belongs to one ticket: seeding
// a different id (or nil) drops it.
func (m *Machine) SeedTicket(t *Ticket) {
	m.mu.Lock()
	if t == nil {
		m.ticket = nil
		m.messages = nil
		m.chatClosed = true
	} else {
		if m.ticket == nil || m.ticket.ID != t.ID {
			m.messages = nil
		}
		cp := *t
		m.ticket = &cp
		m.chatClosed = t.Status != StatusOpen
	}
	m.chatOpen = false
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(ChangeTicket, snap)
}

// OpenTicket transitions NoTicket -> Open after a successful create call.
// It seeds an empty transcript and opens the chat view. The current link
// and validation snapshot are attached to the ticket.
func (m *Machine) OpenTicket(id string) error {
	m.mu.Lock()
	if m.ticket != nil && m.ticket.Status == StatusOpen && m.ticket.ID != id {
		m.mu.Unlock()
		return fmt.Errorf("ticket %s is still open", m.ticket.ID)
	}
	m.ticket = &Ticket{
		ID:         id,
		Link:       m.link,
		Status:     StatusOpen,
		CreatedAt:  time.Now(),
		Validation: m.validation,
	}
	m.messages = nil
	m.chatClosed = false
	m.chatOpen = true
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(ChangeTicket, snap)
	return nil
}

// AdoptExisting forces the machine onto an already-open ticket after a
// create conflict. The chat is resumable but not auto-opened.
func (m *Machine) AdoptExisting(id string) {
	m.mu.Lock()
	if m.ticket == nil || m.ticket.ID != id {
		m.ticket = &Ticket{ID: id, Status: StatusOpen}
	} else {
		m.ticket.Status = StatusOpen
	}
	m.chatClosed = false
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(ChangeTicket, snap)
}

// ApplyTicketStatus applies a ticketStatusChanged event. Events for a
// ticket other than the tracked one are ignored; applying the same status
// twice leaves state unchanged. A deleted status purges all ticket-derived
// state: transcript, validation result and link text.
func (m *Machine) ApplyTicketStatus(ticketID string, status TicketStatus) {
	if !status.IsValid() {
		slog.Warn("ignoring ticket status event with unknown status", "status", status)
		return
	}

	m.mu.Lock()
	if m.ticket == nil || m.ticket.ID != ticketID {
		m.mu.Unlock()
		return
	}
	if m.ticket.Status == status {
		m.mu.Unlock()
		return
	}

	switch status {
	case StatusDeleted:
		m.purgeLocked()
	case StatusClosed:
		m.ticket.Status = status
		m.chatClosed = true
		m.chatOpen = false
	case StatusCompleted:
		m.ticket.Status = status
		m.chatClosed = true
	default:
		m.ticket.Status = status
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(ChangeTicket, snap)
}

// purgeLocked clears every piece of ticket-derived state. Caller holds mu.
func (m *Machine) purgeLocked() {
	m.ticket = nil
	m.messages = nil
	m.link = ""
	m.validation = nil
	m.chatClosed = true
	m.chatOpen = false
}

// ApplyCompletion applies a ticketCompleted event. The first application
// moves the ticket to Completed, records the completion link, locks input
// and appends a system message; repeat deliveries are no-ops.
func (m *Machine) ApplyCompletion(ticketID, completionLink string) {
	m.mu.Lock()
	if m.ticket == nil || m.ticket.ID != ticketID {
		m.mu.Unlock()
		return
	}
	if m.ticket.Status == StatusCompleted {
		m.mu.Unlock()
		return
	}

	m.ticket.Status = StatusCompleted
	m.ticket.CompletionLink = completionLink
	m.chatClosed = true
	if completionLink != "" {
		m.messages = append(m.messages, ChatMessage{
			From:    OriginSystem,
			Content: "Order completed! You can view your order at: " + completionLink,
		})
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(ChangeTicket, snap)
}

// AppendAgentMessage appends an agent chat message. Messages are only
// accepted while the tracked ticket is open.
func (m *Machine) AppendAgentMessage(sender, content string) {
	if sender == "" {
		sender = "Agent"
	}
	m.appendMessage(ChatMessage{From: OriginAgent, Content: content, Sender: sender})
}

// AppendUserMessage appends a user chat message echoed by the server or
// typed locally.
func (m *Machine) AppendUserMessage(content string) {
	m.appendMessage(ChatMessage{From: OriginUser, Content: content})
}

func (m *Machine) appendMessage(msg ChatMessage) {
	m.mu.Lock()
	if m.ticket == nil || m.ticket.Status != StatusOpen {
		m.mu.Unlock()
		slog.Debug("dropping chat message without open ticket", "from", msg.From)
		return
	}
	m.messages = append(m.messages, msg)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(ChangeMessages, snap)
}

// ApplyChatClosed applies a chatClosed event: a final system message is
// appended, input locks and the chat view hides.
func (m *Machine) ApplyChatClosed(message string) {
	m.mu.Lock()
	if m.ticket == nil {
		m.mu.Unlock()
		return
	}
	if message != "" {
		m.messages = append(m.messages, ChatMessage{From: OriginSystem, Content: message})
	}
	m.chatClosed = true
	m.chatOpen = false
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(ChangeMessages, snap)
}

// CanSend reports whether a user message may be sent right now.
func (m *Machine) CanSend() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticket != nil && m.ticket.Status == StatusOpen && !m.chatClosed
}

// ShowChat opens the chat view if the ticket still accepts messages.
func (m *Machine) ShowChat() {
	m.mu.Lock()
	if m.ticket == nil || m.chatClosed {
		m.mu.Unlock()
		return
	}
	m.chatOpen = true
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(ChangeTicket, snap)
}

// HideChat closes the chat view without touching ticket state.
func (m *Machine) HideChat() {
	m.mu.Lock()
	m.chatOpen = false
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(ChangeTicket, snap)
}

// ClearMessages drops the transcript, used when reconnecting to a chat
// with clearMessages=true.
func (m *Machine) ClearMessages() {
	m.mu.Lock()
	m.messages = nil
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(ChangeMessages, snap)
}

// Reset returns the machine to its logged-out state. The service status is
// process-wide and survives.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.purgeLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(ChangeReset, snap)
}
