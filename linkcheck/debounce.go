// Package linkcheck validates group order links against the backend. Raw
// keystrokes are debounced so only settled input reaches the quote API.
package linkcheck

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/grubslash/client/order"
)

const (
	// DefaultDelay is how long input must stay unchanged before a remote
	// validation fires.
	DefaultDelay = 1000 * time.Millisecond

	// DefaultPattern is the substring a group order link must contain to
	// be worth sending to the backend.
	DefaultPattern = "eats.uber.com"
)

// Checker performs the remote validation. api.Client is the production
// implementation.
type Checker interface {
	ValidateGroupLink(ctx context.Context, link string) (*order.ValidationResult, error)
}

// LoginGate reports at fire time whether a session exists, so a logout
// between keystroke and timer does not produce a stray request.
type LoginGate func() bool

// Debouncer coalesces link input into at most one in-flight validation.
// Each Input call restarts the timer; when it fires, the checker runs
// with the final text and the result lands in onResult. Stale results
// are discarded: only the response matching the current input is kept.
type Debouncer struct {
	delay    time.Duration
	pattern  string
	checker  Checker
	loggedIn LoginGate
	onResult func(link string, result *order.ValidationResult)
	log      *slog.Logger

	mu       sync.Mutex
	current  string
	timer    *time.Timer
	inFlight context.CancelFunc
	stopped  bool
}

// Option customizes a Debouncer.
type Option func(*Debouncer)

// WithDelay overrides the debounce interval.
func WithDelay(d time.Duration) Option {
	return func(db *Debouncer) { db.delay = d }
}

// WithPattern overrides the substring a link must contain.
func WithPattern(p string) Option {
	return func(db *Debouncer) { db.pattern = p }
}

// New wires a debouncer. onResult runs on the debouncer's goroutine and
// must not block; in practice it hands the result to order.Machine.
func New(checker Checker, loggedIn LoginGate, onResult func(link string, result *order.ValidationResult), opts ...Option) *Debouncer {
	db := &Debouncer{
		delay:    DefaultDelay,
		pattern:  DefaultPattern,
		checker:  checker,
		loggedIn: loggedIn,
		onResult: onResult,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Input records a keystroke's worth of link text. Empty input clears any
// pending work and the previous result immediately; anything else arms
// the timer.
func (db *Debouncer) Input(text string) {
	db.mu.Lock()
	if db.stopped {
		db.mu.Unlock()
		return
	}
	db.current = text
	db.cancelPendingLocked()

	if strings.TrimSpace(text) == "" {
		db.mu.Unlock()
		db.onResult("", nil)
		return
	}

	db.timer = time.AfterFunc(db.delay, func() { db.fire(text) })
	db.mu.Unlock()
}

// fire runs once the input has settled. The text captured at arm time is
// compared against the current text so a keystroke that raced the timer
// does not produce a result for old input.
func (db *Debouncer) fire(text string) {
	db.mu.Lock()
	if db.stopped || db.current != text {
		db.mu.Unlock()
		return
	}

	if !strings.Contains(text, db.pattern) {
		db.mu.Unlock()
		db.onResult(text, &order.ValidationResult{
			Err:     "invalid_format",
			Message: "That doesn't look like a group order link.",
		})
		return
	}

	if !db.loggedIn() {
		db.mu.Unlock()
		db.log.Debug("skipping link validation, not logged in")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	db.inFlight = cancel
	db.mu.Unlock()

	result, err := db.checker.ValidateGroupLink(ctx, text)
	cancel()

	db.mu.Lock()
	if db.inFlight != nil {
		db.inFlight = nil
	}
	stale := db.stopped || db.current != text
	db.mu.Unlock()
	if stale {
		return
	}

	if err != nil {
		db.log.Warn("link validation failed", "error", err)
		db.onResult(text, &order.ValidationResult{
			Err:     "validation_failed",
			Message: "Could not validate the link. Please try again.",
		})
		return
	}
	db.onResult(text, result)
}

// Flush fires any pending validation immediately. Used when the user
// submits before the timer elapses.
func (db *Debouncer) Flush() {
	db.mu.Lock()
	text := db.current
	pending := db.timer != nil
	db.cancelPendingLocked()
	db.mu.Unlock()
	if pending && text != "" {
		db.fire(text)
	}
}

// Stop cancels the timer and any in-flight request. The debouncer is
// dead afterwards; Logout builds a fresh one on the next login.
func (db *Debouncer) Stop() {
	db.mu.Lock()
	db.stopped = true
	db.cancelPendingLocked()
	db.mu.Unlock()
}

func (db *Debouncer) cancelPendingLocked() {
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
	if db.inFlight != nil {
		db.inFlight()
		db.inFlight = nil
	}
}
