package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/grubslash/client/order"
)

// DefaultSchedule is how often the cache is reconciled with the server
// while the history view is active.
const DefaultSchedule = "@every 30s"

// Lister fetches the user's tickets from the backend. api.Client is the
// production implementation.
type Lister interface {
	UserTickets(ctx context.Context, token, userID string) ([]order.Ticket, error)
}

// Credentials supplies the auth pair at refresh time; refreshes are
// skipped while logged out.
type Credentials func() (token, userID string, ok bool)

// Refresher keeps the history cache in sync with the server on a cron
// schedule. Each tick fetches the full ticket list and overwrites the
// cache; there is no merge.
type Refresher struct {
	store    *Store
	lister   Lister
	creds    Credentials
	schedule string
	logger   *slog.Logger

	mu       sync.Mutex
	cron     *cron.Cron
	entry    cron.EntryID
	onUpdate func(tickets []order.Ticket)
}

// NewRefresher wires a refresher. Pass schedule "" for the default.
func NewRefresher(store *Store, lister Lister, creds Credentials, schedule string, logger *slog.Logger) *Refresher {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		store:    store,
		lister:   lister,
		creds:    creds,
		schedule: schedule,
		logger:   logger,
	}
}

// SetOnUpdate sets a callback invoked after each successful refresh with
// the fresh ticket list.
func (r *Refresher) SetOnUpdate(fn func(tickets []order.Ticket)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUpdate = fn
}

// Start begins the periodic refresh and performs one refresh right away
// so the view never opens on an empty cache.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.cron != nil {
		r.mu.Unlock()
		return nil
	}
	c := cron.New()
	entry, err := c.AddFunc(r.schedule, func() { r.refresh(ctx) })
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("history refresher: invalid schedule %q: %w", r.schedule, err)
	}
	r.cron = c
	r.entry = entry
	r.mu.Unlock()

	r.refresh(ctx)
	c.Start()
	r.logger.Info("history refresher started", "schedule", r.schedule)
	return nil
}

// Stop halts the schedule. Safe to call without Start.
func (r *Refresher) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c != nil {
		c.Stop()
		r.logger.Info("history refresher stopped")
	}
}

// RefreshNow forces a reconcile outside the schedule, e.g. right after
// an order completes.
func (r *Refresher) RefreshNow(ctx context.Context) {
	r.refresh(ctx)
}

func (r *Refresher) refresh(ctx context.Context) {
	token, userID, ok := r.creds()
	if !ok {
		r.logger.Debug("skipping history refresh, not logged in")
		return
	}

	tickets, err := r.lister.UserTickets(ctx, token, userID)
	if err != nil {
		r.logger.Warn("history refresh failed", "error", err)
		return
	}

	if err := r.store.ReplaceAll(tickets); err != nil {
		r.logger.Warn("history cache update failed", "error", err)
		return
	}

	r.mu.Lock()
	onUpdate := r.onUpdate
	r.mu.Unlock()
	if onUpdate != nil {
		onUpdate(tickets)
	}
	r.logger.Debug("history refreshed", "tickets", len(tickets))
}
