// Package reconcile turns successive live-session snapshots into
// add/update/remove deltas for the map.  The reconciler is a plain value
// owned by the poll goroutine; exclusive ownership replaces locking the
// same way the rest of this codebase prefers confinement over mutexes.
package reconcile

import (
	"fmt"
	"math"
	"sort"

	"media-stream-map/pkg/geo"
	"media-stream-map/pkg/session"
)

// Delta describes one transition between two successive snapshots.  It
// never mutates prior state; the marker sink applies it imperatively.
type Delta struct {
	Added   []session.Session `json:"added"`
	Updated []session.Session `json:"updated"`
	Removed []string          `json:"removed"`
}

// Empty reports whether the delta carries no work for the sink.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// Reconciler holds the previously rendered batch keyed by session key.
// Not safe for concurrent use: it belongs to a single poll loop.
type Reconciler struct {
	origin session.Location
	prev   map[string]session.Session
}

// New builds a reconciler that synthesizes fallback placements around
// the given server coordinate.
func New(origin session.Location) *Reconciler {
	return &Reconciler{origin: origin, prev: make(map[string]session.Session)}
}

// Reset drops the previous snapshot, e.g. when the view leaves live
// mode.  The next Reconcile reports everything as added again.
func (r *Reconciler) Reset() {
	r.prev = make(map[string]session.Session)
}

// coordKey groups sessions whose resolved coordinates round to the same
// spot, so two users behind one city-level geolocation still get their
// own marker positions.
func coordKey(loc session.Location) string {
	return fmt.Sprintf("%.4f,%.4f", roundCoord(loc.Lat), roundCoord(loc.Lon))
}

func roundCoord(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Reconcile normalizes the current raw batch, spreads coincident
// locations, and returns the transition against the previous snapshot.
// Group offsets are recomputed from scratch every cycle because group
// membership changes as sessions start and stop.  Internal state is
// replaced atomically at the end; a failed normalization can never leave
// stale entries behind because normalization cannot fail.
func (r *Reconciler) Reconcile(raws []session.Raw) Delta {
	batch := make([]session.Session, 0, len(raws))
	keys := make(map[string]bool, len(raws))
	for i, raw := range raws {
		s := session.Normalize(raw, r.origin, i, len(raws))
		if keys[s.Key] {
			// Duplicate keys within one batch would silently swallow a
			// session; the batch ordinal keeps both visible.
			s.Key = fmt.Sprintf("%s#%d", s.Key, i)
		}
		keys[s.Key] = true
		batch = append(batch, s)
	}

	spreadCoincident(batch)

	next := make(map[string]session.Session, len(batch))
	var delta Delta
	for _, s := range batch {
		next[s.Key] = s
		if _, seen := r.prev[s.Key]; seen {
			// Always re-emit updates: even at an unchanged position the
			// bandwidth or quality may have changed the line color.
			delta.Updated = append(delta.Updated, s)
		} else {
			delta.Added = append(delta.Added, s)
		}
	}
	for key := range r.prev {
		if _, still := next[key]; !still {
			delta.Removed = append(delta.Removed, key)
		}
	}
	sort.Strings(delta.Removed)

	r.prev = next
	return delta
}

// spreadCoincident applies ring offsets to every group of sessions that
// share a rounded coordinate.  Groups of one keep their exact position.
func spreadCoincident(batch []session.Session) {
	groups := make(map[string][]int)
	for i, s := range batch {
		ck := coordKey(s.Location)
		groups[ck] = append(groups[ck], i)
	}
	for _, members := range groups {
		if len(members) <= 1 {
			continue
		}
		for n, idx := range members {
			dLat, dLon := geo.Offset(n, len(members))
			batch[idx].Location.Lat += dLat
			batch[idx].Location.Lon += dLon
		}
	}
}

// Snapshot returns the currently rendered sessions sorted by key, for
// late-joining stream subscribers that need the full picture first.
func (r *Reconciler) Snapshot() []session.Session {
	out := make([]session.Session, 0, len(r.prev))
	for _, s := range r.prev {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
