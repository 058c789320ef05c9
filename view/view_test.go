package view

import (
	"strings"
	"testing"
	"time"

	"github.com/grubslash/client/config"
	"github.com/grubslash/client/order"
)

func testPolicy() config.Policy {
	return config.Policy{MinSubtotal: 15, MaxSubtotal: 35}
}

func TestBanner(t *testing.T) {
	if got := Banner(order.ServiceStatus{IsOpen: true, Message: "All systems operational"}); got != "" {
		t.Errorf("open service should render nothing, got %q", got)
	}

	got := Banner(order.ServiceStatus{IsOpen: false, Message: "Back at 5pm"})
	if !strings.Contains(got, "Back at 5pm") {
		t.Errorf("closed banner lost message: %q", got)
	}

	got = Banner(order.ServiceStatus{IsOpen: false})
	if !strings.Contains(got, "currently closed") {
		t.Errorf("closed banner missing default message: %q", got)
	}
}

func TestQuoteCard(t *testing.T) {
	v := &order.ValidationResult{
		RestaurantName:    "Taco Place",
		DeliveryAddress:   "123 Main St",
		Items:             []order.Item{{Name: "Burrito", Quantity: 2}, {Name: "Chips"}},
		EstimatedSubtotal: 24.50,
		OurPrice:          19.60,
		EstimatedSavings:  4.90,
	}

	got := QuoteCard(v, testPolicy())
	for _, want := range []string{"Taco Place", "123 Main St", "2x Burrito", "Chips", "$24.50", "$19.60", "$4.90"} {
		if !strings.Contains(got, want) {
			t.Errorf("quote card missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "cart must be") {
		t.Errorf("in-policy subtotal should not warn:\n%s", got)
	}
}

func TestQuoteCard_OutOfPolicyWarns(t *testing.T) {
	v := &order.ValidationResult{RestaurantName: "Taco Place", EstimatedSubtotal: 60, OurPrice: 48}
	got := QuoteCard(v, testPolicy())
	if !strings.Contains(got, "between $15 and $35") {
		t.Errorf("expected policy warning:\n%s", got)
	}
}

func TestQuoteCard_Error(t *testing.T) {
	got := QuoteCard(&order.ValidationResult{Err: "invalid_format"}, testPolicy())
	if !strings.Contains(got, "invalid_format") {
		t.Errorf("error lost: %q", got)
	}

	if got := QuoteCard(nil, testPolicy()); got != "" {
		t.Errorf("nil result should render nothing, got %q", got)
	}
}

func TestQuoteCard_SyntheticSuccess(t *testing.T) {
	got := QuoteCard(&order.ValidationResult{Message: "Link validated"}, testPolicy())
	if !strings.Contains(got, "Link validated") {
		t.Errorf("synthetic success message lost: %q", got)
	}
}

func TestTranscript(t *testing.T) {
	got := Transcript([]order.ChatMessage{
		{From: order.OriginUser, Content: "no onions please"},
		{From: order.OriginAgent, Sender: "Sam", Content: "done"},
		{From: order.OriginSystem, Content: "Chat has been closed"},
	})
	for _, want := range []string{"You:", "no onions please", "Sam:", "done", "Chat has been closed"} {
		if !strings.Contains(got, want) {
			t.Errorf("transcript missing %q:\n%s", want, got)
		}
	}

	if got := Transcript(nil); !strings.Contains(got, "No messages") {
		t.Errorf("empty transcript placeholder missing: %q", got)
	}
}

func TestTicketSummary(t *testing.T) {
	if got := TicketSummary(nil); !strings.Contains(got, "No active order") {
		t.Errorf("nil ticket placeholder missing: %q", got)
	}

	got := TicketSummary(&order.Ticket{
		ID:             "0198c2f4-aaaa-bbbb-cccc-ddddeeeeffff",
		Status:         order.StatusCompleted,
		CompletionLink: "https://eats.uber.com/orders/abc",
		Validation:     &order.ValidationResult{RestaurantName: "Taco Place"},
	})
	for _, want := range []string{"0198c2f4", "completed", "Taco Place", "https://eats.uber.com/orders/abc"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestHistoryTable(t *testing.T) {
	if got := HistoryTable(nil); !strings.Contains(got, "No past orders") {
		t.Errorf("empty table placeholder missing: %q", got)
	}

	tickets := []order.Ticket{
		{ID: "0198c2f4-1111", Status: order.StatusCompleted, CreatedAt: time.Now().Add(-time.Hour),
			Validation: &order.ValidationResult{RestaurantName: "Taco Place"}},
		{ID: "0198c2f4-2222", Status: order.StatusClosed, CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	got := HistoryTable(tickets)
	for _, want := range []string{"2 order(s)", "0198c2f4", "completed", "closed", "Taco Place", "2024-03-01"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
}

func TestRelativeDate(t *testing.T) {
	if got := relativeDate(time.Time{}); got != "—" {
		t.Errorf("zero time: got %q", got)
	}
	if got := relativeDate(time.Now().Add(-2 * time.Hour)); !strings.HasPrefix(got, "Today") {
		t.Errorf("recent time: got %q", got)
	}
	if got := relativeDate(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)); got != "2020-01-02" {
		t.Errorf("old time: got %q", got)
	}
}
