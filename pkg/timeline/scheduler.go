package timeline

import (
	"context"
	"time"
)

// FrameInterval is the fixed playback cadence.  It is deliberately not a
// user knob; one frame per half second reads well on the map without
// turning long histories into a slideshow.
const FrameInterval = 500 * time.Millisecond

// Scheduler abstracts tick delivery so the playback contract is only
// "what happens on each tick", never how ticks arrive.  Tests feed ticks
// from a plain channel; production uses TickerScheduler.
type Scheduler interface {
	// Schedule starts delivering ticks at the given interval.  Calling
	// cancel stops delivery and releases the underlying resources.
	Schedule(interval time.Duration) (ticks <-chan struct{}, cancel func())
}

// TickerScheduler delivers ticks from a time.Ticker.  The forwarding
// goroutine exits on cancel, so an abandoned playback never leaks.
type TickerScheduler struct{}

// Schedule implements Scheduler.
func (TickerScheduler) Schedule(interval time.Duration) (<-chan struct{}, func()) {
	out := make(chan struct{})
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case out <- struct{}{}:
				case <-done:
					return
				}
			}
		}
	}()
	var once bool
	return out, func() {
		if !once {
			once = true
			close(done)
		}
	}
}

// Run drives the controller at the scheduler's cadence until the end of
// the timeline or context cancellation, whichever comes first.  The
// controller is only ever touched from this loop, so playback needs no
// locks and can never overlap with another driver of the same
// controller.
func Run(ctx context.Context, c *Controller, sch Scheduler, interval time.Duration) {
	ticks, cancel := sch.Schedule(interval)
	defer cancel()

	c.Play()
	// Show the starting frame immediately instead of waiting one full
	// interval, the same way the live poller fetches before its first
	// ticker wait.
	c.Seek(c.Index())

	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return
		case <-ticks:
			c.Advance()
			if c.State() == Stopped {
				return
			}
		}
	}
}
