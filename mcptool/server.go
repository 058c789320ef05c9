// Package mcptool exposes the order client to AI assistants as MCP
// tools over stdio: check the active order, validate a group link, send
// a chat message, list past orders.
package mcptool

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/grubslash/client/order"
)

// Messenger sends a chat message on the active ticket. app.Client is
// the production implementation.
type Messenger interface {
	SendMessage(ctx context.Context, content string) error
}

// Checker validates a group order link. api.Client is the production
// implementation.
type Checker interface {
	ValidateGroupLink(ctx context.Context, link string) (*order.ValidationResult, error)
}

// History lists cached past orders. history.Store is the production
// implementation.
type History interface {
	List() ([]order.Ticket, error)
}

type Server struct {
	machine   *order.Machine
	messenger Messenger
	checker   Checker
	history   History
}

func NewServer(machine *order.Machine, messenger Messenger, checker Checker, history History) *Server {
	return &Server{
		machine:   machine,
		messenger: messenger,
		checker:   checker,
		history:   history,
	}
}

// Run serves the tools over stdio until stdin closes.
func (s *Server) Run(ctx context.Context) error {
	srv := server.NewMCPServer("grubslash", "1.0.0", server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("order_status",
		mcp.WithDescription("Get the current order state: active ticket, service banner, chat transcript."),
	), s.handleOrderStatus)

	srv.AddTool(mcp.NewTool("validate_link",
		mcp.WithDescription("Validate a group order link and return the quote or a validation error."),
		mcp.WithString("link", mcp.Required(), mcp.Description("Group order link to validate")),
	), s.handleValidateLink)

	srv.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a chat message on the active order. Fails once the order is completed or closed."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Message text")),
	), s.handleSendMessage)

	srv.AddTool(mcp.NewTool("order_history",
		mcp.WithDescription("List past orders, newest first. Optionally filter by status."),
		mcp.WithString("status", mcp.Description("Filter by status"),
			mcp.Enum("open", "completed", "closed", "deleted")),
	), s.handleOrderHistory)

	return server.ServeStdio(srv)
}
