package session

import (
	"encoding/json"
	"testing"
)

// TestRawUnmarshalFieldVariants confirms we extract the same record from
// the activity feed and from the history endpoint even though they name
// half their fields differently.
func TestRawUnmarshalFieldVariants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		json string
		want Raw
	}{
		{
			name: "activity style",
			json: `{
                                "session_key": "77",
                                "friendly_name": "alice",
                                "user_id": 42,
                                "ip_address_public": "203.0.113.7",
                                "full_title": "The Expanse - Dulcinea",
                                "media_type": "episode",
                                "grandparent_title": "The Expanse",
                                "parent_title": "Season 1",
                                "player": "Living Room TV",
                                "platform": "Roku",
                                "quality_profile": "Original",
                                "bandwidth": "12000",
                                "started": 1700000000
                        }`,
			want: Raw{
				SessionKey:       "77",
				Username:         "alice",
				UserID:           "42",
				IP:               "203.0.113.7",
				Title:            "The Expanse - Dulcinea",
				MediaType:        "episode",
				GrandparentTitle: "The Expanse",
				ParentTitle:      "Season 1",
				Player:           "Living Room TV",
				Platform:         "Roku",
				Quality:          "Original",
				BandwidthKbps:    12000,
				StartedAt:        1700000000000,
			},
		},
		{
			name: "history style",
			json: `{
                                "reference_id": 9001,
                                "user": "bob",
                                "user_id": "7",
                                "ip_address": "198.51.100.2",
                                "title": "Heat",
                                "media_type": "movie",
                                "year": "1995",
                                "player": "Phone",
                                "platform": "Android",
                                "transcode_decision": "transcode",
                                "bandwidth": 3500,
                                "started": "1700000000",
                                "stopped": "1700007200",
                                "paused_counter": 300
                        }`,
			want: Raw{
				ReferenceID:   "9001",
				Username:      "bob",
				UserID:        "7",
				IP:            "198.51.100.2",
				Title:         "Heat",
				MediaType:     "movie",
				Year:          1995,
				Player:        "Phone",
				Platform:      "Android",
				Quality:       "transcode",
				BandwidthKbps: 3500,
				StartedAt:     1700000000000,
				StoppedAt:     1700007200000,
				PausedMs:      300000,
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var got Raw
			if err := json.Unmarshal([]byte(tc.json), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

// TestNormalizePlaceholders keeps the degradation contract: missing
// names never fail, they become readable placeholder strings.
func TestNormalizePlaceholders(t *testing.T) {
	t.Parallel()

	raw := Raw{SessionKey: "1", Geo: Location{Lat: 10, Lon: 20, City: "Oslo", Country: "NO"}, GeoResolved: true}
	s := Normalize(raw, Location{}, 0, 1)
	if s.Username != UnknownUser {
		t.Fatalf("Username=%q want %q", s.Username, UnknownUser)
	}
	if s.Media.Title != UnknownTitle {
		t.Fatalf("Title=%q want %q", s.Media.Title, UnknownTitle)
	}
	if s.IsSynthesizedLocation {
		t.Fatalf("resolved location flagged as synthesized")
	}
	if s.Location != raw.Geo {
		t.Fatalf("Location=%+v want %+v", s.Location, raw.Geo)
	}
}

// TestNormalizeSynthesizedRing places a batch without geolocation on a
// ring around the server and keeps every placement distinct.
func TestNormalizeSynthesizedRing(t *testing.T) {
	t.Parallel()

	origin := Location{Lat: 52.0, Lon: 5.0, Country: "NL"}
	const total = 5

	seen := make(map[[2]float64]bool)
	for i := 0; i < total; i++ {
		s := Normalize(Raw{SessionKey: "k" + string(rune('a'+i))}, origin, i, total)
		if !s.IsSynthesizedLocation {
			t.Fatalf("index %d not flagged synthesized", i)
		}
		if s.Location.Lat == origin.Lat && s.Location.Lon == origin.Lon {
			t.Fatalf("index %d collapsed onto the origin", i)
		}
		pos := [2]float64{s.Location.Lat, s.Location.Lon}
		if seen[pos] {
			t.Fatalf("index %d shares coordinate %v with a sibling", i, pos)
		}
		seen[pos] = true
		if s.Location.Country != "NL" {
			t.Fatalf("synthesized country=%q want NL", s.Location.Country)
		}
	}
}

// TestHistoricalKeys checks that history rows derive distinct keys from
// the reference id and ordinal, and live rows keep the reported key.
func TestHistoricalKeys(t *testing.T) {
	t.Parallel()

	if got := (Raw{SessionKey: "42"}).Key(3); got != "42" {
		t.Fatalf("live key=%q want 42", got)
	}
	a := (Raw{ReferenceID: "900"}).Key(0)
	b := (Raw{ReferenceID: "900"}).Key(1)
	if a == b {
		t.Fatalf("ordinals 0 and 1 share key %q", a)
	}
	if a != (Raw{ReferenceID: "900"}).Key(0) {
		t.Fatalf("key derivation not deterministic")
	}
}

// TestWatchedMsClipsAtZero guards the stats contract for sessions that
// were paused longer than they played.
func TestWatchedMsClipsAtZero(t *testing.T) {
	t.Parallel()

	s := Session{StartedAt: 0, StoppedAt: 1000, PausedMs: 5000}
	if got := s.WatchedMs(); got != 0 {
		t.Fatalf("WatchedMs=%d want 0", got)
	}
	s = Session{StartedAt: 0, StoppedAt: 7_200_000, PausedMs: 600_000}
	if got := s.WatchedMs(); got != 6_600_000 {
		t.Fatalf("WatchedMs=%d want 6600000", got)
	}
}
