package testutil

import (
	"context"
	"sync"

	"github.com/dalemusser/perfhub/internal/app/system/notify"
)

// Notifier records events instead of delivering them.
type Notifier struct {
	mu     sync.Mutex
	events []notify.Event
	Err    error // returned from Notify when set
}

// Notify records e.
func (n *Notifier) Notify(_ context.Context, e notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.Err
}

// Events returns a copy of the recorded events.
func (n *Notifier) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}
