package api

import (
	"context"
	"sort"

	"media-stream-map/pkg/deltastream"
	"media-stream-map/pkg/reconcile"
	"media-stream-map/pkg/session"
)

// liveView mirrors the current live sessions by applying bus deltas in
// a single goroutine.  Late-joining stream clients read their opening
// snapshot from here, so the poll loop keeps exclusive ownership of the
// reconciler and nothing needs a mutex.
type liveView struct {
	snapshots chan chan []session.Session
}

func newLiveView(ctx context.Context, bus *deltastream.Bus) *liveView {
	v := &liveView{snapshots: make(chan chan []session.Session)}
	deltas := bus.Subscribe(ctx, 32)

	go func() {
		current := make(map[string]session.Session)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deltas:
				if !ok {
					return
				}
				apply(current, d)
			case reply := <-v.snapshots:
				out := make([]session.Session, 0, len(current))
				for _, s := range current {
					out = append(out, s)
				}
				sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
				reply <- out
			}
		}
	}()

	return v
}

func apply(current map[string]session.Session, d reconcile.Delta) {
	for _, s := range d.Added {
		current[s.Key] = s
	}
	for _, s := range d.Updated {
		current[s.Key] = s
	}
	for _, key := range d.Removed {
		delete(current, key)
	}
}

// Snapshot returns the sessions currently on the map, sorted by key.
func (v *liveView) Snapshot(ctx context.Context) []session.Session {
	reply := make(chan []session.Session, 1)
	select {
	case v.snapshots <- reply:
		return <-reply
	case <-ctx.Done():
		return nil
	}
}
