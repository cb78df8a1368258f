// Package deltastream fans reconciliation deltas out to subscribed map
// clients without locks.  Channels keep the poll loop decoupled from
// however many browsers are watching; a slow client drops frames rather
// than stalling reconciliation.
package deltastream

import (
	"context"

	"media-stream-map/pkg/reconcile"
)

// Bus broadcasts every published delta to all current subscribers.
type Bus struct {
	publish     chan reconcile.Delta
	subscribe   chan subscription
	unsubscribe chan subscription
}

type subscription struct {
	ch chan reconcile.Delta
}

// NewBus constructs the broadcaster.  The goroutine never stops because
// it is tied to the process lifetime and relies on subscriber contexts
// for pruning.
func NewBus(buffer int) *Bus {
	b := &Bus{
		publish:     make(chan reconcile.Delta, buffer),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
	}
	go b.run()
	return b
}

// Publish forwards a delta to every listener.  Non-blocking so the poll
// loop is never held hostage by absent or slow clients.
func (b *Bus) Publish(d reconcile.Delta) {
	select {
	case b.publish <- d:
	default:
	}
}

// Subscribe registers a listener.  The returned channel closes when the
// provided context ends.
func (b *Bus) Subscribe(ctx context.Context, buffer int) <-chan reconcile.Delta {
	ch := make(chan reconcile.Delta, buffer)
	req := subscription{ch: ch}

	b.subscribe <- req

	go func() {
		<-ctx.Done()
		b.unsubscribe <- req
		close(ch)
	}()

	return ch
}

func (b *Bus) run() {
	var listeners []chan reconcile.Delta

	for {
		select {
		case req := <-b.subscribe:
			listeners = append(listeners, req.ch)
		case req := <-b.unsubscribe:
			filtered := listeners[:0]
			for _, existing := range listeners {
				if existing != req.ch {
					filtered = append(filtered, existing)
				}
			}
			listeners = filtered
		case d := <-b.publish:
			for _, ch := range listeners {
				select {
				case ch <- d:
				default:
				}
			}
		}
	}
}
