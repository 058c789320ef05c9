package watch

import (
	"log/slog"
	"sync"

	"github.com/grubslash/client/order"
)

// StateWatcher notifies subscribers when the order state machine changes.
// Uses a channel-based async notification pattern so listeners never run
// inside the machine's mutex.
type StateWatcher struct {
	*BaseWatcher
	machine    *order.Machine
	eventCh    chan order.Change
	onChangeMu sync.RWMutex
	onChange   func(order.Change)
}

var _ order.OnChangeListener = (*StateWatcher)(nil)

func NewStateWatcher(machine *order.Machine) *StateWatcher {
	w := &StateWatcher{
		BaseWatcher: NewBaseWatcher("os"),
		machine:     machine,
		eventCh:     make(chan order.Change, 64),
	}
	machine.AddOnChangeListener(w)
	return w
}

func (w *StateWatcher) Start() error {
	go w.eventLoop()
	slog.Info("StateWatcher started")
	return nil
}

func (w *StateWatcher) Stop() {
	w.Cancel()
	slog.Info("StateWatcher stopped")
}

func (w *StateWatcher) eventLoop() {
	for {
		select {
		case <-w.Context().Done():
			return
		case c := <-w.eventCh:
			w.notifyChange(c)
		}
	}
}

// SetOnChange sets a callback invoked for every change, subscriber or
// not. The interactive view uses it to trigger redraws.
func (w *StateWatcher) SetOnChange(fn func(order.Change)) {
	w.onChangeMu.Lock()
	defer w.onChangeMu.Unlock()
	w.onChange = fn
}

func (w *StateWatcher) notifyChange(c order.Change) {
	w.onChangeMu.RLock()
	onChange := w.onChange
	w.onChangeMu.RUnlock()
	if onChange != nil {
		onChange(c)
	}

	if !w.HasSubscriptions() {
		return
	}

	w.NotifyAll("order.changed", func(sub *Subscription) any {
		return orderChangedParams{
			ID:       sub.ID,
			Kind:     c.Kind,
			Snapshot: c.Snapshot,
		}
	})
}

// Subscribe registers a subscriber and returns the subscription ID along
// with the current snapshot.
func (w *StateWatcher) Subscribe(notifier Notifier) (string, order.Snapshot) {
	id := w.GenerateID()
	sub := &Subscription{
		ID:       id,
		Notifier: notifier,
	}
	w.AddSubscription(sub)

	return id, w.machine.Snapshot()
}

type orderChangedParams struct {
	ID       string           `json:"id"`
	Kind     order.ChangeKind `json:"kind"`
	Snapshot order.Snapshot   `json:"snapshot"`
}

// OnOrderChange implements order.OnChangeListener.
// Called while the machine notifies listeners, so it must not block.
func (w *StateWatcher) OnOrderChange(c order.Change) {
	if w.Context().Err() != nil {
		return
	}

	select {
	case w.eventCh <- c:
	default:
		slog.Warn("order change event dropped (buffer full)", "kind", c.Kind)
	}
}
