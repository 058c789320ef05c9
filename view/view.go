// Package view renders order state for the terminal. Rendering is pure
// string building over snapshots; no state lives here.
package view

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/grubslash/client/config"
	"github.com/grubslash/client/order"
)

var (
	bannerClosedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196")).
				Padding(0, 1)

	bannerOpenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	priceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	agentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// Banner renders the service open/closed state. An open service with no
// special message renders nothing.
func Banner(st order.ServiceStatus) string {
	if !st.IsOpen {
		msg := st.Message
		if msg == "" {
			msg = "Service is currently closed"
		}
		return bannerClosedStyle.Render("⚠ " + msg)
	}
	if st.Message != "" && st.Message != "All systems operational" {
		return bannerOpenStyle.Render(st.Message)
	}
	return ""
}

// QuoteCard renders a validation result: the quote with our price and
// savings, or the validation error. Subtotals outside the acceptance
// window get a warning line.
func QuoteCard(v *order.ValidationResult, policy config.Policy) string {
	if v == nil {
		return ""
	}
	if v.Failed() {
		return errorStyle.Render("✗ " + v.Err)
	}

	var b strings.Builder
	if v.RestaurantName != "" {
		b.WriteString(titleStyle.Render(v.RestaurantName) + "\n")
	}
	if v.DeliveryAddress != "" {
		b.WriteString(dateStyle.Render(v.DeliveryAddress) + "\n")
	}
	for _, item := range v.Items {
		line := item.Name
		if item.Quantity > 1 {
			line = fmt.Sprintf("%dx %s", item.Quantity, item.Name)
		}
		b.WriteString("  " + line + "\n")
	}
	if v.EstimatedSubtotal > 0 {
		b.WriteString(fmt.Sprintf("Subtotal  $%.2f\n", v.EstimatedSubtotal))
		b.WriteString("You pay   " + priceStyle.Render(fmt.Sprintf("$%.2f", v.OurPrice)) + "\n")
		if v.EstimatedSavings > 0 {
			b.WriteString(priceStyle.Render(fmt.Sprintf("You save  $%.2f", v.EstimatedSavings)) + "\n")
		}
		if !policy.Accepts(v.EstimatedSubtotal) {
			b.WriteString(warnStyle.Render(fmt.Sprintf(
				"⚠ cart must be between $%.0f and $%.0f", policy.MinSubtotal, policy.MaxSubtotal)) + "\n")
		}
	} else if v.Message != "" {
		b.WriteString(v.Message + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Transcript renders the chat messages of the active ticket.
func Transcript(msgs []order.ChatMessage) string {
	if len(msgs) == 0 {
		return systemStyle.Render("No messages yet.")
	}

	var b strings.Builder
	for _, msg := range msgs {
		switch msg.From {
		case order.OriginAgent:
			sender := msg.Sender
			if sender == "" {
				sender = "Agent"
			}
			b.WriteString(agentStyle.Render(sender+":") + " " + msg.Content + "\n")
		case order.OriginUser:
			b.WriteString(userStyle.Render("You:") + " " + msg.Content + "\n")
		default:
			b.WriteString(systemStyle.Render(msg.Content) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// TicketSummary renders the active ticket's one-line state.
func TicketSummary(t *order.Ticket) string {
	if t == nil {
		return systemStyle.Render("No active order.")
	}

	line := idStyle.Render(shortID(t.ID)) + " " + statusBadge(t.Status)
	if t.Validation != nil && t.Validation.RestaurantName != "" {
		line += " " + t.Validation.RestaurantName
	}
	if t.Status == order.StatusCompleted && t.CompletionLink != "" {
		line += "\n" + priceStyle.Render("Order placed: ") + t.CompletionLink
	}
	return line
}

// HistoryTable renders past orders, newest first.
func HistoryTable(tickets []order.Ticket) string {
	if len(tickets) == 0 {
		return headerStyle.Render("No past orders")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%d order(s)", len(tickets))) + "\n\n")

	w := tabwriter.NewWriter(&b, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Status")+"\t"+titleStyle.Render("Restaurant")+"\t"+titleStyle.Render("Created")+"\t")

	for _, t := range tickets {
		restaurant := ""
		if t.Validation != nil {
			restaurant = t.Validation.RestaurantName
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			idStyle.Render(shortID(t.ID)),
			statusBadge(t.Status),
			restaurant,
			dateStyle.Render(relativeDate(t.CreatedAt)))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func statusBadge(s order.TicketStatus) string {
	switch s {
	case order.StatusOpen:
		return priceStyle.Render("open")
	case order.StatusCompleted:
		return agentStyle.Render("completed")
	case order.StatusClosed:
		return dateStyle.Render("closed")
	case order.StatusDeleted:
		return errorStyle.Render("deleted")
	default:
		return string(s)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func relativeDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	default:
		return t.Format("2006-01-02")
	}
}
