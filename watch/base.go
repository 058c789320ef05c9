// Package watch fans order-state and session-file changes out to
// subscribers. Watchers deliver through a Notifier so the interactive
// view, tests, and any future remote surface plug in the same way.
package watch

import (
	"context"
	"log/slog"
	"sync"
)

// Subscription is one registered listener on a watcher.
type Subscription struct {
	ID       string
	Notifier Notifier
}

// BaseWatcher carries the subscription set and lifecycle context shared
// by the concrete watchers.
type BaseWatcher struct {
	idPrefix string

	subMu sync.RWMutex
	subs  map[string]*Subscription

	ctx    context.Context
	cancel context.CancelFunc
}

func NewBaseWatcher(idPrefix string) *BaseWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &BaseWatcher{
		idPrefix: idPrefix,
		subs:     make(map[string]*Subscription),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (b *BaseWatcher) GenerateID() string {
	return generateIDWithPrefix(b.idPrefix)
}

func (b *BaseWatcher) AddSubscription(sub *Subscription) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.subs[sub.ID] = sub
}

func (b *BaseWatcher) Unsubscribe(id string) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	delete(b.subs, id)
}

func (b *BaseWatcher) HasSubscriptions() bool {
	b.subMu.RLock()
	defer b.subMu.RUnlock()
	return len(b.subs) > 0
}

// NotifyAll sends one notification per subscriber. A failing notifier
// is logged and skipped; delivery to the rest continues.
func (b *BaseWatcher) NotifyAll(method string, makeParams func(sub *Subscription) any) int {
	b.subMu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subMu.RUnlock()

	for _, sub := range subs {
		n := Notification{Method: method, Params: makeParams(sub)}
		if err := sub.Notifier.Notify(context.Background(), n); err != nil {
			slog.Debug("failed to notify subscriber", "id", sub.ID, "error", err)
		}
	}
	return len(subs)
}

func (b *BaseWatcher) Context() context.Context { return b.ctx }
func (b *BaseWatcher) Cancel()                  { b.cancel() }
