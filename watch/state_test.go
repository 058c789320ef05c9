package watch

import (
	"context"
	"testing"
	"time"

	"github.com/grubslash/client/order"
)

type captureNotifier struct {
	ch chan Notification
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{ch: make(chan Notification, 64)}
}

func (n *captureNotifier) Notify(ctx context.Context, notification Notification) error {
	n.ch <- notification
	return nil
}

func (n *captureNotifier) wait(t *testing.T) Notification {
	t.Helper()
	select {
	case got := <-n.ch:
		return got
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return Notification{}
	}
}

func TestStateWatcher_NotifiesSubscribers(t *testing.T) {
	m := order.NewMachine()
	w := NewStateWatcher(m)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	notifier := newCaptureNotifier()
	id, snap := w.Subscribe(notifier)
	if id == "" {
		t.Fatal("expected a subscription id")
	}
	if snap.Ticket != nil {
		t.Error("fresh machine should have no ticket in the snapshot")
	}

	m.SetLink("https://eats.uber.com/group/abc")

	n := notifier.wait(t)
	if n.Method != "order.changed" {
		t.Errorf("expected order.changed, got %q", n.Method)
	}
	params, ok := n.Params.(orderChangedParams)
	if !ok {
		t.Fatalf("unexpected params type %T", n.Params)
	}
	if params.Kind != order.ChangeValidation {
		t.Errorf("expected validation change, got %q", params.Kind)
	}
	if params.Snapshot.Link != "https://eats.uber.com/group/abc" {
		t.Errorf("snapshot missing link, got %q", params.Snapshot.Link)
	}
}

func TestStateWatcher_OnChangeCallback(t *testing.T) {
	m := order.NewMachine()
	w := NewStateWatcher(m)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	got := make(chan order.Change, 8)
	w.SetOnChange(func(c order.Change) { got <- c })

	m.ApplyServiceStatus(order.ServiceStatus{IsOpen: false, Message: "closed"})

	select {
	case c := <-got:
		if c.Kind != order.ChangeService {
			t.Errorf("expected service change, got %q", c.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onChange never fired")
	}
}

func TestStateWatcher_UnsubscribeStopsDelivery(t *testing.T) {
	m := order.NewMachine()
	w := NewStateWatcher(m)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	notifier := newCaptureNotifier()
	id, _ := w.Subscribe(notifier)
	w.Unsubscribe(id)

	m.SetLink("x")

	select {
	case n := <-notifier.ch:
		t.Errorf("unsubscribed notifier still received %q", n.Method)
	case <-time.After(200 * time.Millisecond):
	}
}
