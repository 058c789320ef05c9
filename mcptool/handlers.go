package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/grubslash/client/app"
	"github.com/grubslash/client/order"
)

func (s *Server) handleOrderStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.machine.Snapshot()

	// Always return JSON for consistent parsing by the assistant.
	type status struct {
		Ticket   *order.Ticket       `json:"ticket"`
		Service  order.ServiceStatus `json:"service"`
		ChatOpen bool                `json:"chat_open"`
		Messages []order.ChatMessage `json:"messages,omitempty"`
	}
	return jsonResult(status{
		Ticket:   snap.Ticket,
		Service:  snap.Service,
		ChatOpen: snap.ChatOpen,
		Messages: snap.Messages,
	})
}

func (s *Server) handleValidateLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	link, err := req.RequireString("link")
	if err != nil {
		return ValidationError("link is required"), nil
	}

	result, err := s.checker.ValidateGroupLink(ctx, link)
	if err != nil {
		return InternalError(err), nil
	}
	if result.Failed() {
		return ValidationError(result.Err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleSendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return ValidationError("content is required"), nil
	}

	if err := s.messenger.SendMessage(ctx, content); err != nil {
		if errors.Is(err, app.ErrChatLocked) || errors.Is(err, app.ErrNoActiveTicket) {
			return LockedError(err.Error()), nil
		}
		return InternalError(err), nil
	}
	return mcp.NewToolResultText(`{"success":true}`), nil
}

func (s *Server) handleOrderHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tickets, err := s.history.List()
	if err != nil {
		return InternalError(err), nil
	}

	if filter := req.GetString("status", ""); filter != "" {
		status := order.TicketStatus(filter)
		if !status.IsValid() {
			return ValidationError(fmt.Sprintf("unknown status %q", filter)), nil
		}
		var kept []order.Ticket
		for _, t := range tickets {
			if t.Status == status {
				kept = append(kept, t)
			}
		}
		tickets = kept
	}

	type historyItem struct {
		ID             string `json:"id"`
		Status         string `json:"status"`
		CreatedAt      string `json:"created_at"`
		Restaurant     string `json:"restaurant,omitempty"`
		CompletionLink string `json:"completion_link,omitempty"`
	}
	items := make([]historyItem, len(tickets))
	for i, t := range tickets {
		items[i] = historyItem{
			ID:             t.ID,
			Status:         string(t.Status),
			CreatedAt:      t.CreatedAt.Format(time.RFC3339),
			CompletionLink: t.CompletionLink,
		}
		if t.Validation != nil {
			items[i].Restaurant = t.Validation.RestaurantName
		}
	}
	return jsonResult(items)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return InternalError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
