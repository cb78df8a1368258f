package timeline

import (
	"context"
	"testing"
	"time"

	"media-stream-map/pkg/session"
)

func span(key string, start, stop int64) session.Session {
	return session.Session{Key: key, StartedAt: start, StoppedAt: stop}
}

// TestBuildEmpty keeps the empty-history contract: no sessions, no axis.
func TestBuildEmpty(t *testing.T) {
	t.Parallel()

	if got := Build(nil); len(got) != 0 {
		t.Fatalf("Build(nil)=%v want empty", got)
	}
}

// TestBuildDensifiesHourlyGaps pins the canonical two-hour session: its
// endpoints plus one hourly checkpoint in between.
func TestBuildDensifiesHourlyGaps(t *testing.T) {
	t.Parallel()

	got := Build([]session.Session{span("a", 0, 7_200_000)})
	want := []int64{0, 3_600_000, 7_200_000}
	if len(got) != len(want) {
		t.Fatalf("Build=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Build[%d]=%d want %d", i, got[i], want[i])
		}
	}
}

// TestBuildSortedUniqueStrictlyIncreasing feeds overlapping sessions
// with shared boundaries and checks the axis invariants directly.
func TestBuildSortedUniqueStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	got := Build([]session.Session{
		span("a", 1000, 2000),
		span("b", 2000, 3000), // shares an instant with a
		span("c", 500, 1500),
	})
	if len(got) == 0 {
		t.Fatalf("empty axis")
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("axis not strictly increasing at %d: %v", i, got)
		}
	}
	want := []int64{500, 1000, 1500, 2000, 3000}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("Build=%v want %v", got, want)
		}
	}
}

// TestActiveAtBoundaries checks the closed-interval rule, including the
// degenerate session active only at a single instant.
func TestActiveAtBoundaries(t *testing.T) {
	t.Parallel()

	sessions := []session.Session{
		span("point", 5000, 5000),
		span("long", 0, 10_000),
	}
	active := ActiveAt(sessions, 5000)
	if len(active) != 2 {
		t.Fatalf("active at 5000: %d sessions, want 2", len(active))
	}
	active = ActiveAt(sessions, 5001)
	if len(active) != 1 || active[0].Key != "long" {
		t.Fatalf("active at 5001: %+v want only long", active)
	}
	if got := ActiveAt(sessions, 10_000); len(got) != 1 {
		t.Fatalf("stop boundary not inclusive: %+v", got)
	}
}

// TestControllerEndOfDataLoops plays through the whole axis: after
// len(timeline) advances the controller is Stopped with index 0.
func TestControllerEndOfDataLoops(t *testing.T) {
	t.Parallel()

	c := NewController([]session.Session{span("a", 0, 7_200_000)}, nil, nil)
	steps := len(c.Timeline())
	if steps != 3 {
		t.Fatalf("timeline length %d want 3", steps)
	}

	c.Play()
	if c.State() != Playing {
		t.Fatalf("state after Play=%v want Playing", c.State())
	}
	for i := 0; i < steps; i++ {
		c.Advance()
	}
	if c.State() != Stopped {
		t.Fatalf("state after full walk=%v want Stopped", c.State())
	}
	if c.Index() != 0 {
		t.Fatalf("index after full walk=%d want 0", c.Index())
	}
}

// TestControllerPauseResume preserves the index across pause and keeps
// Advance inert while paused.
func TestControllerPauseResume(t *testing.T) {
	t.Parallel()

	c := NewController([]session.Session{span("a", 0, 7_200_000)}, nil, nil)
	c.Play()
	c.Advance()
	if c.Index() != 1 {
		t.Fatalf("index=%d want 1", c.Index())
	}
	c.Pause()
	c.Advance()
	if c.Index() != 1 || c.State() != Paused {
		t.Fatalf("paused advance moved: index=%d state=%v", c.Index(), c.State())
	}
	c.Play()
	c.Advance()
	if c.Index() != 2 || c.State() != Playing {
		t.Fatalf("resume failed: index=%d state=%v", c.Index(), c.State())
	}
}

// TestControllerSeekClampsAndEmits verifies clamping on both ends and
// that every seek emits a snapshot even while Stopped.
func TestControllerSeekClampsAndEmits(t *testing.T) {
	t.Parallel()

	var emitted []int64
	var clocks []string
	c := NewController(
		[]session.Session{span("a", 0, 7_200_000)},
		func(instant int64, active []session.Session) { emitted = append(emitted, instant) },
		func(s string) { clocks = append(clocks, s) },
	)

	c.Seek(99)
	if c.Index() != 2 {
		t.Fatalf("seek past end landed at %d want 2", c.Index())
	}
	c.Seek(-5)
	if c.Index() != 0 {
		t.Fatalf("seek before start landed at %d want 0", c.Index())
	}
	if len(emitted) != 2 || emitted[0] != 7_200_000 || emitted[1] != 0 {
		t.Fatalf("emitted=%v want [7200000 0]", emitted)
	}
	if len(clocks) != 2 || clocks[1] != "Jan 1, 1970 12:00 AM" {
		t.Fatalf("clocks=%v", clocks)
	}
}

// TestControllerEmptyTimelineInert keeps playback inactive with no data.
func TestControllerEmptyTimelineInert(t *testing.T) {
	t.Parallel()

	c := NewController(nil, nil, nil)
	c.Play()
	if c.State() != Stopped {
		t.Fatalf("empty timeline reached %v", c.State())
	}
	c.Seek(3)
	if c.Index() != 0 {
		t.Fatalf("seek on empty timeline moved index to %d", c.Index())
	}
}

// TestControllerBoundarySnapshot covers the session active exactly at a
// timeline instant with start == stop.
func TestControllerBoundarySnapshot(t *testing.T) {
	t.Parallel()

	var got []session.Session
	c := NewController(
		[]session.Session{span("pt", 3_600_000, 3_600_000), span("bg", 0, 7_200_000)},
		func(_ int64, active []session.Session) { got = active },
		nil,
	)
	c.Seek(1) // lands on 3_600_000
	if len(got) != 2 {
		t.Fatalf("boundary snapshot has %d sessions, want 2", len(got))
	}
}

// manualScheduler hands the test full control over tick delivery.
type manualScheduler struct {
	ticks chan struct{}
}

func (m *manualScheduler) Schedule(time.Duration) (<-chan struct{}, func()) {
	return m.ticks, func() {}
}

// TestRunWalksToCompletion drives a controller through Run with
// synchronous ticks and expects it to return once the axis is consumed.
func TestRunWalksToCompletion(t *testing.T) {
	t.Parallel()

	var emitted []int64
	c := NewController(
		[]session.Session{span("a", 0, 7_200_000)},
		func(instant int64, _ []session.Session) { emitted = append(emitted, instant) },
		nil,
	)

	sch := &manualScheduler{ticks: make(chan struct{})}
	done := make(chan struct{})
	go func() {
		Run(context.Background(), c, sch, FrameInterval)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		select {
		case sch.ticks <- struct{}{}:
		case <-done:
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not finish after consuming the axis")
	}
	if c.State() != Stopped || c.Index() != 0 {
		t.Fatalf("after Run: state=%v index=%d", c.State(), c.Index())
	}
	// Run seeks the opening frame, then each tick advances: 0, 1h, 2h.
	want := []int64{0, 3_600_000, 7_200_000}
	if len(emitted) != len(want) {
		t.Fatalf("emitted=%v want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted=%v want %v", emitted, want)
		}
	}
}

// TestRunCancelStops ends playback early through the context.
func TestRunCancelStops(t *testing.T) {
	t.Parallel()

	c := NewController([]session.Session{span("a", 0, 7_200_000)}, nil, nil)
	sch := &manualScheduler{ticks: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Run(ctx, c, sch, FrameInterval)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run ignored context cancellation")
	}
	if c.State() != Stopped {
		t.Fatalf("state after cancel=%v want Stopped", c.State())
	}
}
