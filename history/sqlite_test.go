package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/grubslash/client/order"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ticketFixture(id string, status order.TicketStatus, createdAt time.Time) order.Ticket {
	return order.Ticket{
		ID:        id,
		Link:      "https://eats.uber.com/group/" + id,
		Status:    status,
		CreatedAt: createdAt,
	}
}

func TestStore_ReplaceAllAndList(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	done := base.Add(time.Hour)
	tickets := []order.Ticket{
		{
			ID:             "tk-2",
			Status:         order.StatusCompleted,
			CreatedAt:      base.Add(10 * time.Minute),
			CompletedAt:    &done,
			CompletionLink: "https://example.com/orders/tk-2",
			Validation: &order.ValidationResult{
				RestaurantName:    "Taco Place",
				EstimatedSubtotal: 24.50,
				OurPrice:          19.99,
			},
		},
		ticketFixture("tk-1", order.StatusClosed, base),
	}

	if err := s.ReplaceAll(tickets); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(got))
	}
	// Newest first.
	if got[0].ID != "tk-2" || got[1].ID != "tk-1" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Validation == nil || got[0].Validation.RestaurantName != "Taco Place" {
		t.Errorf("validation not round-tripped: %+v", got[0].Validation)
	}
	if got[0].CompletedAt == nil || !got[0].CompletedAt.Equal(done) {
		t.Errorf("completed_at not round-tripped: %v", got[0].CompletedAt)
	}
}

func TestStore_ReplaceAllIsPureOverwrite(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)

	s.ReplaceAll([]order.Ticket{
		ticketFixture("tk-1", order.StatusClosed, base),
		ticketFixture("tk-2", order.StatusCompleted, base.Add(time.Minute)),
	})

	// The server no longer reports tk-1; the cache must forget it too.
	if err := s.ReplaceAll([]order.Ticket{
		ticketFixture("tk-2", order.StatusCompleted, base.Add(time.Minute)),
	}); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	got, _ := s.List()
	if len(got) != 1 || got[0].ID != "tk-2" {
		t.Fatalf("expected only tk-2, got %+v", got)
	}
}

func TestStore_Get(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)
	s.ReplaceAll([]order.Ticket{ticketFixture("tk-1", order.StatusCompleted, base)})

	got, found, err := s.Get("tk-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || got.ID != "tk-1" {
		t.Errorf("expected tk-1, got %+v found=%v", got, found)
	}

	_, found, err = s.Get("tk-404")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("expected unknown id to report not found")
	}
}

func TestStore_EmptyListIsFine(t *testing.T) {
	s := newTestStore(t)
	if err := s.ReplaceAll(nil); err != nil {
		t.Fatalf("ReplaceAll(nil) failed: %v", err)
	}
	got, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty cache, got %d", len(got))
	}
}
