package watch

import "context"

// Notification is one change event delivered to a subscriber.
type Notification struct {
	Method string
	Params any
}

// Notifier delivers notifications to a subscriber. The interactive view
// and tests provide in-process implementations.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
