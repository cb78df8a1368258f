package history

import (
	"testing"
	"time"

	"media-stream-map/pkg/session"
)

func watched(user, country string, start, stop, pausedMs int64) session.Session {
	return session.Session{
		Key:       user + "-" + time.UnixMilli(start).UTC().Format("150405"),
		Username:  user,
		UserID:    user,
		StartedAt: start,
		StoppedAt: stop,
		PausedMs:  pausedMs,
		Location:  session.Location{Country: country},
	}
}

// TestAggregateWatchTime sums per-user watch time exactly as
// Σ(stop-start-paused) clipped at zero per session.
func TestAggregateWatchTime(t *testing.T) {
	t.Parallel()

	sessions := []session.Session{
		watched("alice", "NO", 0, 7_200_000, 600_000),       // 6.6M effective
		watched("alice", "NO", 10_000_000, 10_060_000, 0),   // 60k effective
		watched("alice", "NO", 20_000_000, 20_001_000, 5e6), // clips to 0
	}
	stats := Aggregate(sessions, time.UTC)

	const want = 6_600_000 + 60_000
	if stats.TotalWatchTimeMs != want {
		t.Fatalf("TotalWatchTimeMs=%d want %d", stats.TotalWatchTimeMs, want)
	}
	u := stats.PerUser["alice"]
	if u.WatchTimeMs != want || u.SessionCount != 3 {
		t.Fatalf("alice=%+v want watch %d over 3 sessions", u, want)
	}
}

// TestAggregateRollups covers the unique counts, per-country and per-day
// maps, and the hour histogram in one realistic batch.
func TestAggregateRollups(t *testing.T) {
	t.Parallel()

	jan1st2230 := time.Date(2024, 1, 1, 22, 30, 0, 0, time.UTC).UnixMilli()
	jan2nd0105 := time.Date(2024, 1, 2, 1, 5, 0, 0, time.UTC).UnixMilli()

	sessions := []session.Session{
		watched("alice", "NO", jan1st2230, jan1st2230+3_600_000, 0),
		watched("bob", "DE", jan2nd0105, jan2nd0105+1_800_000, 0),
		watched("bob", "DE", jan2nd0105+7_200_000, jan2nd0105+9_000_000, 0),
	}
	stats := Aggregate(sessions, time.UTC)

	if stats.TotalSessions != 3 || stats.UniqueUsers != 2 || stats.UniqueCountries != 2 {
		t.Fatalf("totals=%+v", stats)
	}
	if stats.PerCountry["DE"] != 2 || stats.PerCountry["NO"] != 1 {
		t.Fatalf("PerCountry=%v", stats.PerCountry)
	}
	if stats.PerDay["2024-01-01"] != 1 || stats.PerDay["2024-01-02"] != 2 {
		t.Fatalf("PerDay=%v", stats.PerDay)
	}
	if stats.PerHour[22] != 1 || stats.PerHour[1] != 1 || stats.PerHour[3] != 1 {
		t.Fatalf("PerHour=%v", stats.PerHour)
	}
}

// TestAggregateOrderIndependent shuffles the same batch and expects the
// identical last-known location for the user.
func TestAggregateOrderIndependent(t *testing.T) {
	t.Parallel()

	early := watched("alice", "NO", 1_000_000, 2_000_000, 0)
	late := watched("alice", "SE", 9_000_000, 9_500_000, 0)
	late.Location = session.Location{Lat: 59.3, Lon: 18.1, Country: "SE"}

	a := Aggregate([]session.Session{early, late}, time.UTC)
	b := Aggregate([]session.Session{late, early}, time.UTC)

	if a.PerUser["alice"].LastKnownLocation != late.Location {
		t.Fatalf("last known location=%+v want the later session's", a.PerUser["alice"].LastKnownLocation)
	}
	if a.PerUser["alice"] != b.PerUser["alice"] {
		t.Fatalf("ordering changed the rollup: %+v vs %+v", a.PerUser["alice"], b.PerUser["alice"])
	}
}

// TestAggregateEmpty keeps the empty-history case a zero value, not an
// error.
func TestAggregateEmpty(t *testing.T) {
	t.Parallel()

	stats := Aggregate(nil, nil)
	if stats.TotalSessions != 0 || stats.UniqueUsers != 0 || stats.TotalWatchTimeMs != 0 {
		t.Fatalf("empty aggregate=%+v", stats)
	}
}

// TestAggregateLocalHourBucket confirms the histogram respects the
// requested zone rather than UTC.
func TestAggregateLocalHourBucket(t *testing.T) {
	t.Parallel()

	osl := time.FixedZone("UTC+2", 2*3600)
	start := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC).UnixMilli() // 01:00 in UTC+2
	stats := Aggregate([]session.Session{watched("a", "NO", start, start+1000, 0)}, osl)
	if stats.PerHour[1] != 1 {
		t.Fatalf("PerHour=%v want bucket 1 in UTC+2", stats.PerHour)
	}
	if stats.PerDay["2024-06-02"] != 1 {
		t.Fatalf("PerDay=%v want 2024-06-02 in UTC+2", stats.PerDay)
	}
}
