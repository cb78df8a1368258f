// Package poller drives the live half of the map: it asks the media
// server for current sessions on a fixed cadence, reconciles them
// against the previous cycle and publishes the resulting delta.
//
// One goroutine owns the whole cycle, so the reconciler needs no locks
// and two polls can never overlap by construction.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"media-stream-map/pkg/deltastream"
	"media-stream-map/pkg/logger"
	"media-stream-map/pkg/reconcile"
	"media-stream-map/pkg/session"
	"media-stream-map/pkg/source"
)

// ActivityFunc fetches the current raw sessions.  It matches the
// source client's Activity method but stays a plain func so tests can
// script upstream behavior without HTTP.
type ActivityFunc func(ctx context.Context) ([]session.Raw, error)

// EnrichFunc resolves geolocation for a raw batch in place.
type EnrichFunc func(ctx context.Context, raws []session.Raw)

// Config wires the poller to its collaborators.
type Config struct {
	Fetch      ActivityFunc
	Enrich     EnrichFunc // optional
	Reconciler *reconcile.Reconciler
	Bus        *deltastream.Bus
	Interval   time.Duration
	Logf       func(string, ...any) // optional, defaults to log.Printf
}

// Start launches the poll loop and returns immediately.  The loop runs
// once right away so the map is populated at startup, then on every
// tick until ctx ends.
func Start(ctx context.Context, cfg Config) {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}

	cfg.Logf("live poller start: interval=%s", cfg.Interval)

	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		var cycle int
		for {
			cycle++
			runCycle(ctx, cfg, cycle)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// runCycle performs one fetch-reconcile-publish pass.  An unavailable
// upstream skips the cycle entirely: the previous map state stands and
// no removals are emitted for sessions we simply could not see.
func runCycle(ctx context.Context, cfg Config, cycle int) {
	cycleID := fmt.Sprintf("p%05d", cycle%100000)
	logger.Begin(cycleID)

	raws, err := cfg.Fetch(ctx)
	if err != nil {
		if errors.Is(err, source.ErrUnavailable) {
			logger.Append(cycleID, fmt.Sprintf("[%s] upstream unavailable, keeping previous state", cycleID))
		}
		logger.FlushError(cycleID, err)
		return
	}
	logger.Append(cycleID, fmt.Sprintf("[%s] fetched %d active sessions", cycleID, len(raws)))

	if cfg.Enrich != nil {
		cfg.Enrich(ctx, raws)
	}

	delta := cfg.Reconciler.Reconcile(raws)
	if !delta.Empty() {
		cfg.Bus.Publish(delta)
	}
	logger.Success(cycleID, fmt.Sprintf("sessions=%d added=%d updated=%d removed=%d",
		len(raws), len(delta.Added), len(delta.Updated), len(delta.Removed)))
}
