// Package timeline converts a flat batch of historical sessions into a
// navigable time axis and walks it with an explicit playback state
// machine.  Instants are Unix milliseconds throughout.
package timeline

import (
	"sort"

	"media-stream-map/pkg/session"
)

// hourMs densifies sparse stretches of the axis: between two events more
// than an hour apart we add hourly checkpoints so scrubbing never jumps
// across an arbitrarily long silent night in a single step.
const hourMs int64 = 3_600_000

// Build derives the sorted, deduplicated, hourly-densified sequence of
// instants from the session batch.  Empty input yields an empty timeline
// and playback stays inactive.
func Build(sessions []session.Session) []int64 {
	set := make(map[int64]bool, 2*len(sessions))
	for _, s := range sessions {
		// Zero means "instant not reported", except that a session with a
		// real stop legitimately started at instant zero.
		if s.StartedAt != 0 || s.StoppedAt != 0 {
			set[s.StartedAt] = true
		}
		if s.StoppedAt != 0 {
			set[s.StoppedAt] = true
		}
	}
	if len(set) == 0 {
		return nil
	}

	events := make([]int64, 0, len(set))
	for t := range set {
		events = append(events, t)
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })

	out := make([]int64, 0, len(events))
	out = append(out, events[0])
	for _, next := range events[1:] {
		prev := out[len(out)-1]
		for t := prev + hourMs; t < next; t += hourMs {
			out = append(out, t)
		}
		out = append(out, next)
	}
	return out
}

// ActiveAt returns the sessions running at instant t.  The interval is
// closed on both ends: a session whose start and stop both equal t still
// counts as active at t.
func ActiveAt(sessions []session.Session, t int64) []session.Session {
	var active []session.Session
	for _, s := range sessions {
		stop := s.StoppedAt
		if stop == 0 {
			// A history row without a stop instant is a point event.
			stop = s.StartedAt
		}
		if s.StartedAt <= t && t <= stop {
			active = append(active, s)
		}
	}
	return active
}
