package timeline

import (
	"time"

	"media-stream-map/pkg/session"
)

// Status is the playback state machine's position.
type Status int

const (
	Stopped Status = iota
	Playing
	Paused
)

func (s Status) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// clockLayout renders instants for the display sink.
const clockLayout = "Jan 2, 2006 3:04 PM"

// Controller walks a built timeline and emits "active set at instant"
// snapshots.  It is a plain state machine with no timers of its own: a
// driver feeds it ticks, which keeps tests synchronous and guarantees
// live polling and playback can never run inside one controller at once.
//
// Not safe for concurrent use; every call must come from the goroutine
// that owns the controller.
type Controller struct {
	sessions []session.Session
	instants []int64
	status   Status
	index    int

	// emit receives the active set and its instant on every seek and
	// advance.  clock receives the same instant formatted for humans.
	// Either may be nil.
	emit  func(instant int64, active []session.Session)
	clock func(string)
}

// NewController builds the axis from the batch and starts Stopped at
// index 0.  Loading new historical data means building a new controller;
// the old one is simply dropped, which is the whole reset story.
func NewController(sessions []session.Session, emit func(int64, []session.Session), clock func(string)) *Controller {
	return &Controller{
		sessions: sessions,
		instants: Build(sessions),
		emit:     emit,
		clock:    clock,
	}
}

// Status reports the current state.
func (c *Controller) State() Status { return c.status }

// Index reports the current timeline position.
func (c *Controller) Index() int { return c.index }

// Timeline exposes the built axis for the scrubber UI.
func (c *Controller) Timeline() []int64 { return c.instants }

// Play transitions Stopped or Paused into Playing.  An empty timeline
// stays Stopped because there is nothing to walk.
func (c *Controller) Play() {
	if len(c.instants) == 0 {
		return
	}
	if c.status == Stopped || c.status == Paused {
		c.status = Playing
	}
}

// Pause halts advancement and preserves the index.
func (c *Controller) Pause() {
	if c.status == Playing {
		c.status = Paused
	}
}

// Stop resets to the initial state: index 0, Stopped.
func (c *Controller) Stop() {
	c.status = Stopped
	c.index = 0
}

// Seek clamps i into the timeline and always emits the snapshot for the
// landed instant, regardless of playback status.
func (c *Controller) Seek(i int) {
	if len(c.instants) == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(c.instants) {
		i = len(c.instants) - 1
	}
	c.index = i
	c.emitAt(i)
}

// Advance is invoked by the cadence driver once per frame.  Reaching the
// end of the axis stops playback and loops the index back to the start
// instead of continuing on stale data.
func (c *Controller) Advance() {
	if c.status != Playing {
		return
	}
	c.index++
	if c.index >= len(c.instants) {
		c.Stop()
		return
	}
	c.emitAt(c.index)
}

func (c *Controller) emitAt(i int) {
	t := c.instants[i]
	if c.emit != nil {
		c.emit(t, ActiveAt(c.sessions, t))
	}
	if c.clock != nil {
		c.clock(time.UnixMilli(t).UTC().Format(clockLayout))
	}
}
