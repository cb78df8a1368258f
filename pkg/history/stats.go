// Package history reduces a batch of normalized sessions into the
// rollups behind the summary panels: totals, per-user, per-country,
// per-day, and an hour-of-day histogram.  The reduction is pure and
// order-independent so it can run over any slice of history without
// pre-sorting.
package history

import (
	"time"

	"media-stream-map/pkg/session"
)

// UserStats summarizes one user's activity inside the aggregated window.
type UserStats struct {
	SessionCount      int              `json:"sessionCount"`
	WatchTimeMs       int64            `json:"watchTimeMs"`
	LastKnownLocation session.Location `json:"lastKnownLocation"`
}

// Stats is the full rollup over one history batch.
type Stats struct {
	TotalSessions    int                  `json:"totalSessions"`
	TotalWatchTimeMs int64                `json:"totalWatchTimeMs"`
	UniqueUsers      int                  `json:"uniqueUsers"`
	UniqueCountries  int                  `json:"uniqueCountries"`
	PerUser          map[string]UserStats `json:"perUser"`
	PerCountry       map[string]int       `json:"perCountry"`
	PerDay           map[string]int       `json:"perDay"`
	PerHour          [24]int              `json:"perHour"`
}

// Aggregate reduces the batch.  Watch time per session is
// max(0, stop-start-paused); the per-hour histogram buckets by the
// session's start hour in loc, because "evening activity" only means
// something in the viewer's day, not in UTC.  A nil loc means UTC.
func Aggregate(sessions []session.Session, loc *time.Location) Stats {
	if loc == nil {
		loc = time.UTC
	}
	stats := Stats{
		PerUser:    make(map[string]UserStats),
		PerCountry: make(map[string]int),
		PerDay:     make(map[string]int),
	}

	// lastStart tracks which session determined each user's last known
	// location, so input ordering never changes the result.  Ties on the
	// start instant break on the session key.
	type lastSeen struct {
		start int64
		key   string
	}
	lastStart := make(map[string]lastSeen)

	for _, s := range sessions {
		stats.TotalSessions++
		watched := s.WatchedMs()
		stats.TotalWatchTimeMs += watched

		userKey := s.UserID
		if userKey == "" {
			userKey = s.Username
		}
		u := stats.PerUser[userKey]
		u.SessionCount++
		u.WatchTimeMs += watched
		if prev, seen := lastStart[userKey]; !seen || s.StartedAt > prev.start ||
			(s.StartedAt == prev.start && s.Key > prev.key) {
			lastStart[userKey] = lastSeen{start: s.StartedAt, key: s.Key}
			u.LastKnownLocation = s.Location
		}
		stats.PerUser[userKey] = u

		if s.Location.Country != "" {
			stats.PerCountry[s.Location.Country]++
		}

		if s.StartedAt != 0 {
			start := time.UnixMilli(s.StartedAt).In(loc)
			stats.PerDay[start.Format("2006-01-02")]++
			stats.PerHour[start.Hour()]++
		}
	}

	stats.UniqueUsers = len(stats.PerUser)
	stats.UniqueCountries = len(stats.PerCountry)
	return stats
}
