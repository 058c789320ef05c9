package linkcheck

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/grubslash/client/order"
)

type countingChecker struct {
	mu    sync.Mutex
	calls []string
	res   *order.ValidationResult
	err   error
	block chan struct{} // if non-nil, the call waits for ctx or the channel
}

func (c *countingChecker) ValidateGroupLink(ctx context.Context, link string) (*order.ValidationResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, link)
	block := c.block
	c.mu.Unlock()
	if block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-block:
		}
	}
	return c.res, c.err
}

func (c *countingChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type resultSink struct {
	mu      sync.Mutex
	results []*order.ValidationResult
	links   []string
	ch      chan struct{}
}

func newResultSink() *resultSink {
	return &resultSink{ch: make(chan struct{}, 16)}
}

func (s *resultSink) apply(link string, r *order.ValidationResult) {
	s.mu.Lock()
	s.links = append(s.links, link)
	s.results = append(s.results, r)
	s.mu.Unlock()
	s.ch <- struct{}{}
}

func (s *resultSink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a validation result")
	}
}

func loggedIn() bool { return true }

func TestDebouncer_OnlySettledInputFires(t *testing.T) {
	checker := &countingChecker{res: &order.ValidationResult{RestaurantName: "Taco Place"}}
	sink := newResultSink()
	db := New(checker, loggedIn, sink.apply, WithDelay(80*time.Millisecond))
	defer db.Stop()

	// Keystrokes arriving faster than the delay must coalesce into one call
	// carrying the final text.
	db.Input("https://e")
	time.Sleep(20 * time.Millisecond)
	db.Input("https://eats.uber")
	time.Sleep(20 * time.Millisecond)
	db.Input("https://eats.uber.com/group/abc")

	sink.wait(t)

	checker.mu.Lock()
	defer checker.mu.Unlock()
	if len(checker.calls) != 1 {
		t.Fatalf("expected 1 remote call, got %d: %v", len(checker.calls), checker.calls)
	}
	if checker.calls[0] != "https://eats.uber.com/group/abc" {
		t.Errorf("validated stale text %q", checker.calls[0])
	}
}

func TestDebouncer_EmptyInputClearsImmediately(t *testing.T) {
	checker := &countingChecker{}
	sink := newResultSink()
	db := New(checker, loggedIn, sink.apply, WithDelay(50*time.Millisecond))
	defer db.Stop()

	db.Input("https://eats.uber.com/group/abc")
	db.Input("")
	sink.wait(t)

	sink.mu.Lock()
	if sink.results[0] != nil {
		t.Error("clearing the field should report a nil result")
	}
	sink.mu.Unlock()

	// The armed timer must have been cancelled.
	time.Sleep(120 * time.Millisecond)
	if checker.callCount() != 0 {
		t.Errorf("expected no remote call after clearing, got %d", checker.callCount())
	}
}

func TestDebouncer_PatternMismatchSkipsRemote(t *testing.T) {
	checker := &countingChecker{}
	sink := newResultSink()
	db := New(checker, loggedIn, sink.apply, WithDelay(20*time.Millisecond))
	defer db.Stop()

	db.Input("https://example.com/not-a-group-order")
	sink.wait(t)

	if checker.callCount() != 0 {
		t.Errorf("pattern mismatch must not hit the backend, got %d calls", checker.callCount())
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.results[0] == nil || sink.results[0].Err != "invalid_format" {
		t.Errorf("expected invalid_format, got %+v", sink.results[0])
	}
}

func TestDebouncer_StaleResultDiscarded(t *testing.T) {
	checker := &countingChecker{
		res:   &order.ValidationResult{RestaurantName: "Old Place"},
		block: make(chan struct{}),
	}
	sink := newResultSink()
	db := New(checker, loggedIn, sink.apply, WithDelay(10*time.Millisecond))
	defer db.Stop()

	db.Input("https://eats.uber.com/group/old")

	// Wait for the request to be in flight, then type again.
	for i := 0; checker.callCount() == 0 && i < 100; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	db.Input("https://eats.uber.com/group/new")
	close(checker.block)

	sink.wait(t)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, link := range sink.links {
		if link == "https://eats.uber.com/group/old" {
			t.Error("result for superseded input was applied")
		}
	}
}

func TestDebouncer_FlushFiresPendingNow(t *testing.T) {
	checker := &countingChecker{res: &order.ValidationResult{RestaurantName: "Taco Place"}}
	sink := newResultSink()
	db := New(checker, loggedIn, sink.apply, WithDelay(10*time.Second))
	defer db.Stop()

	db.Input("https://eats.uber.com/group/abc")
	db.Flush()
	sink.wait(t)

	if checker.callCount() != 1 {
		t.Errorf("expected Flush to fire exactly once, got %d", checker.callCount())
	}
}

func TestDebouncer_StopCancelsEverything(t *testing.T) {
	checker := &countingChecker{}
	sink := newResultSink()
	db := New(checker, loggedIn, sink.apply, WithDelay(30*time.Millisecond))

	db.Input("https://eats.uber.com/group/abc")
	db.Stop()

	time.Sleep(100 * time.Millisecond)
	if checker.callCount() != 0 {
		t.Error("timer fired after Stop")
	}

	// Input after Stop is ignored.
	db.Input("https://eats.uber.com/group/def")
	time.Sleep(100 * time.Millisecond)
	if checker.callCount() != 0 {
		t.Error("debouncer accepted input after Stop")
	}
}

func TestDebouncer_NotLoggedInSkipsRemote(t *testing.T) {
	checker := &countingChecker{}
	sink := newResultSink()
	db := New(checker, func() bool { return false }, sink.apply, WithDelay(10*time.Millisecond))
	defer db.Stop()

	db.Input("https://eats.uber.com/group/abc")
	time.Sleep(100 * time.Millisecond)
	if checker.callCount() != 0 {
		t.Error("validation ran without a token")
	}
}
