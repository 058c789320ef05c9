package channel

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/sourcegraph/jsonrpc2"
)

func notif(t *testing.T, method string, params any) *jsonrpc2.Request {
	t.Helper()
	req := &jsonrpc2.Request{Method: method, Notif: true}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("marshal params: %v", err)
		}
		msg := json.RawMessage(raw)
		req.Params = &msg
	}
	return req
}

func drain(ch chan string) []string {
	var out []string
	for {
		select {
		case tag := <-ch:
			out = append(out, tag)
		default:
			return out
		}
	}
}

func TestEventHandler_MalformedPayloadsAreDropped(t *testing.T) {
	sink := newFakeSink()
	h := &eventHandler{kind: KindTicket, sink: sink, log: slog.Default()}
	ctx := context.Background()

	// Missing required fields must not reach the sink.
	h.Handle(ctx, nil, notif(t, "ticketStatusChanged", map[string]string{"status": "completed"}))
	h.Handle(ctx, nil, notif(t, "ticketStatusChanged", map[string]string{"ticketId": "tk-1", "status": "exploded"}))
	h.Handle(ctx, nil, notif(t, "ticketCompleted", map[string]string{"completionLink": "https://x"}))
	h.Handle(ctx, nil, notif(t, "agentMessage", map[string]string{"sender": "Agent"}))
	h.Handle(ctx, nil, notif(t, "userMessage", ""))
	h.Handle(ctx, nil, notif(t, "serviceStatusChanged", nil))

	if got := drain(sink.applied); len(got) != 0 {
		t.Errorf("malformed events reached the sink: %v", got)
	}
}

func TestEventHandler_WellFormedPayloads(t *testing.T) {
	sink := newFakeSink()
	h := &eventHandler{kind: KindTicket, sink: sink, log: slog.Default()}
	ctx := context.Background()

	h.Handle(ctx, nil, notif(t, "serviceStatusChanged", map[string]any{"isOpen": false, "message": "closed for the night"}))
	h.Handle(ctx, nil, notif(t, "ticketStatusChanged", map[string]string{"ticketId": "tk-1", "status": "closed"}))
	h.Handle(ctx, nil, notif(t, "ticketCompleted", map[string]string{"ticketId": "tk-1", "completionLink": "https://example.com/o/1"}))
	h.Handle(ctx, nil, notif(t, "agentMessage", map[string]string{"content": "on it"}))
	h.Handle(ctx, nil, notif(t, "userMessage", "echo"))
	h.Handle(ctx, nil, notif(t, "chatClosed", "agent closed the chat"))

	want := []string{"service", "status", "completion", "agent", "user", "chatClosed"}
	got := drain(sink.applied)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestEventHandler_GlobalKindIgnoresChatEvents(t *testing.T) {
	sink := newFakeSink()
	h := &eventHandler{kind: KindGlobal, sink: sink, log: slog.Default()}
	ctx := context.Background()

	// Chat traffic belongs to the ticket channel only; the global channel
	// must not double-apply it.
	h.Handle(ctx, nil, notif(t, "agentMessage", map[string]string{"content": "hi"}))
	h.Handle(ctx, nil, notif(t, "userMessage", "hi"))
	h.Handle(ctx, nil, notif(t, "chatClosed", "bye"))

	if got := drain(sink.applied); len(got) != 0 {
		t.Errorf("chat events leaked through the global channel: %v", got)
	}

	// Status traffic still flows.
	h.Handle(ctx, nil, notif(t, "ticketStatusChanged", map[string]string{"ticketId": "tk-1", "status": "deleted"}))
	if got := drain(sink.applied); len(got) != 1 || got[0] != "status" {
		t.Errorf("expected status to pass through, got %v", got)
	}
}

func TestEventHandler_IgnoresNonNotifications(t *testing.T) {
	sink := newFakeSink()
	h := &eventHandler{kind: KindTicket, sink: sink, log: slog.Default()}

	req := notif(t, "agentMessage", map[string]string{"content": "hi"})
	req.Notif = false
	h.Handle(context.Background(), nil, req)

	if got := drain(sink.applied); len(got) != 0 {
		t.Errorf("request reached the sink: %v", got)
	}
}
