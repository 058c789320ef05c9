package channel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/grubslash/client/order"
	"github.com/sourcegraph/jsonrpc2"
)

// Server -> client notification methods.
const (
	methodServiceStatusChanged = "serviceStatusChanged"
	methodTicketStatusChanged  = "ticketStatusChanged"
	methodTicketCompleted      = "ticketCompleted"
	methodAgentMessage         = "agentMessage"
	methodUserMessage          = "userMessage"
	methodChatClosed           = "chatClosed"
)

// Client -> server notification methods.
const (
	methodJoinTicket           = "joinTicket"
	methodJoinTicketForUpdates = "joinTicketForUpdates"
)

// TicketStatusEvent is the payload of ticketStatusChanged.
type TicketStatusEvent struct {
	TicketID string             `json:"ticketId"`
	Status   order.TicketStatus `json:"status"`
}

func (e TicketStatusEvent) validate() error {
	if e.TicketID == "" {
		return errors.New("missing ticketId")
	}
	if !e.Status.IsValid() {
		return errors.New("unknown status " + string(e.Status))
	}
	return nil
}

// TicketCompletedEvent is the payload of ticketCompleted.
type TicketCompletedEvent struct {
	TicketID       string `json:"ticketId"`
	CompletionLink string `json:"completionLink"`
}

func (e TicketCompletedEvent) validate() error {
	if e.TicketID == "" {
		return errors.New("missing ticketId")
	}
	return nil
}

// AgentMessageEvent is the payload of agentMessage.
type AgentMessageEvent struct {
	Sender  string `json:"sender,omitempty"`
	Content string `json:"content"`
}

func (e AgentMessageEvent) validate() error {
	if e.Content == "" {
		return errors.New("missing content")
	}
	return nil
}

// UserMessageParams is the client -> server chat message payload.
type UserMessageParams struct {
	TicketID string `json:"ticketId"`
	Content  string `json:"content"`
}

// EventSink is where decoded events are applied. order.Machine is the
// production implementation; handlers must be idempotent because the
// global and ticket channels deliver overlapping events.
type EventSink interface {
	ApplyServiceStatus(st order.ServiceStatus)
	ApplyTicketStatus(ticketID string, status order.TicketStatus)
	ApplyCompletion(ticketID, completionLink string)
	AppendAgentMessage(sender, content string)
	AppendUserMessage(content string)
	ApplyChatClosed(message string)
}

var _ EventSink = (*order.Machine)(nil)

// eventHandler routes server notifications into the sink. Payloads are
// validated at this boundary; malformed events are logged and dropped
// rather than propagated.
type eventHandler struct {
	kind Kind
	sink EventSink
	log  *slog.Logger
}

func (h *eventHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if !req.Notif {
		// The server only pushes notifications; ignore stray requests.
		return
	}

	switch req.Method {
	case methodServiceStatusChanged:
		var st order.ServiceStatus
		if err := decodeParams(req, &st); err != nil {
			h.reject(req.Method, err)
			return
		}
		h.sink.ApplyServiceStatus(st)

	case methodTicketStatusChanged:
		var ev TicketStatusEvent
		if err := decodeParams(req, &ev); err != nil {
			h.reject(req.Method, err)
			return
		}
		if err := ev.validate(); err != nil {
			h.reject(req.Method, err)
			return
		}
		h.sink.ApplyTicketStatus(ev.TicketID, ev.Status)

	case methodTicketCompleted:
		var ev TicketCompletedEvent
		if err := decodeParams(req, &ev); err != nil {
			h.reject(req.Method, err)
			return
		}
		if err := ev.validate(); err != nil {
			h.reject(req.Method, err)
			return
		}
		h.sink.ApplyCompletion(ev.TicketID, ev.CompletionLink)

	case methodAgentMessage:
		if h.kind != KindTicket {
			return
		}
		var ev AgentMessageEvent
		if err := decodeParams(req, &ev); err != nil {
			h.reject(req.Method, err)
			return
		}
		if err := ev.validate(); err != nil {
			h.reject(req.Method, err)
			return
		}
		h.sink.AppendAgentMessage(ev.Sender, ev.Content)

	case methodUserMessage:
		if h.kind != KindTicket {
			return
		}
		var content string
		if err := decodeParams(req, &content); err != nil {
			h.reject(req.Method, err)
			return
		}
		if content == "" {
			h.reject(req.Method, errors.New("empty content"))
			return
		}
		h.sink.AppendUserMessage(content)

	case methodChatClosed:
		if h.kind != KindTicket {
			return
		}
		var message string
		if err := decodeParams(req, &message); err != nil {
			h.reject(req.Method, err)
			return
		}
		h.sink.ApplyChatClosed(message)

	default:
		h.log.Debug("ignoring unknown event", "method", req.Method)
	}
}

func (h *eventHandler) reject(method string, err error) {
	h.log.Warn("rejecting malformed event", "method", method, "error", err)
}

func decodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return errors.New("params required")
	}
	return json.Unmarshal(*req.Params, v)
}
