package mcptool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/grubslash/client/app"
	"github.com/grubslash/client/order"
)

type fakeMessenger struct {
	sent []string
	err  error
}

func (m *fakeMessenger) SendMessage(ctx context.Context, content string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, content)
	return nil
}

type fakeChecker struct {
	result *order.ValidationResult
	err    error
}

func (c *fakeChecker) ValidateGroupLink(ctx context.Context, link string) (*order.ValidationResult, error) {
	return c.result, c.err
}

type fakeHistory struct {
	tickets []order.Ticket
}

func (h *fakeHistory) List() ([]order.Ticket, error) {
	return h.tickets, nil
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}

func TestHandleOrderStatus(t *testing.T) {
	machine := order.NewMachine()
	machine.SeedTicket(&order.Ticket{ID: "tk-1", Status: order.StatusOpen})
	s := NewServer(machine, &fakeMessenger{}, &fakeChecker{}, &fakeHistory{})

	result, err := s.handleOrderStatus(context.Background(), toolRequest("order_status", nil))
	if err != nil {
		t.Fatalf("handleOrderStatus failed: %v", err)
	}

	var status struct {
		Ticket  *order.Ticket       `json:"ticket"`
		Service order.ServiceStatus `json:"service"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &status); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if status.Ticket == nil || status.Ticket.ID != "tk-1" {
		t.Errorf("ticket missing from status: %+v", status)
	}
	if !status.Service.IsOpen {
		t.Error("default service state should be open")
	}
}

func TestHandleValidateLink(t *testing.T) {
	s := NewServer(order.NewMachine(), &fakeMessenger{},
		&fakeChecker{result: &order.ValidationResult{RestaurantName: "Taco Place", EstimatedSubtotal: 24.5}},
		&fakeHistory{})

	result, _ := s.handleValidateLink(context.Background(),
		toolRequest("validate_link", map[string]any{"link": "https://eats.uber.com/group/x"}))
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), "Taco Place") {
		t.Errorf("quote missing: %s", resultText(t, result))
	}

	// Missing argument.
	result, _ = s.handleValidateLink(context.Background(), toolRequest("validate_link", nil))
	if !result.IsError {
		t.Error("expected error for missing link")
	}
}

func TestHandleValidateLink_QuoteShapedError(t *testing.T) {
	s := NewServer(order.NewMachine(), &fakeMessenger{},
		&fakeChecker{result: &order.ValidationResult{Err: "Service is currently closed"}},
		&fakeHistory{})

	result, _ := s.handleValidateLink(context.Background(),
		toolRequest("validate_link", map[string]any{"link": "https://eats.uber.com/group/x"}))
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(resultText(t, result), "currently closed") {
		t.Errorf("error message lost: %s", resultText(t, result))
	}
}

func TestHandleSendMessage(t *testing.T) {
	messenger := &fakeMessenger{}
	s := NewServer(order.NewMachine(), messenger, &fakeChecker{}, &fakeHistory{})

	result, _ := s.handleSendMessage(context.Background(),
		toolRequest("send_message", map[string]any{"content": "extra napkins"}))
	if result.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, result))
	}
	if len(messenger.sent) != 1 || messenger.sent[0] != "extra napkins" {
		t.Errorf("message not sent: %v", messenger.sent)
	}
}

func TestHandleSendMessage_LockedChat(t *testing.T) {
	s := NewServer(order.NewMachine(), &fakeMessenger{err: app.ErrChatLocked}, &fakeChecker{}, &fakeHistory{})

	result, _ := s.handleSendMessage(context.Background(),
		toolRequest("send_message", map[string]any{"content": "too late"}))
	if !result.IsError {
		t.Fatal("expected error result for locked chat")
	}
	var toolErr ToolError
	json.Unmarshal([]byte(resultText(t, result)), &toolErr)
	if toolErr.Code != ErrLocked {
		t.Errorf("expected locked code, got %+v", toolErr)
	}
}

func TestHandleOrderHistory_StatusFilter(t *testing.T) {
	now := time.Now().UTC()
	s := NewServer(order.NewMachine(), &fakeMessenger{}, &fakeChecker{}, &fakeHistory{tickets: []order.Ticket{
		{ID: "tk-1", Status: order.StatusCompleted, CreatedAt: now},
		{ID: "tk-2", Status: order.StatusClosed, CreatedAt: now},
	}})

	result, _ := s.handleOrderHistory(context.Background(),
		toolRequest("order_history", map[string]any{"status": "completed"}))
	text := resultText(t, result)
	if !strings.Contains(text, "tk-1") || strings.Contains(text, "tk-2") {
		t.Errorf("filter not applied: %s", text)
	}

	result, _ = s.handleOrderHistory(context.Background(),
		toolRequest("order_history", map[string]any{"status": "exploded"}))
	if !result.IsError {
		t.Error("expected error for unknown status filter")
	}
}
