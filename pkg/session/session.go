// Package session defines the canonical playback session entity and the
// normalizer that turns raw upstream records into it.  Everything past
// this package works only with normalized sessions, so the quirks of the
// media server API stay contained here.
package session

import (
	"fmt"
	"hash/fnv"
	"strconv"

	"media-stream-map/pkg/geo"
)

// Location is a resolved or synthesized geographic placement.  After
// normalization it is always populated; downstream code never checks for
// a missing location.
type Location struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
	Country string  `json:"country"`
}

// Media describes what is being played.
type Media struct {
	Title            string `json:"title"`
	Type             string `json:"type"`
	Year             int    `json:"year,omitempty"`
	ParentTitle      string `json:"parentTitle,omitempty"`
	GrandparentTitle string `json:"grandparentTitle,omitempty"`
}

// Stream carries the transport facts used for line coloring and stats.
// LinkColor is derived from the bandwidth during normalization so every
// consumer renders the same thresholds.
type Stream struct {
	BandwidthKbps int64  `json:"bandwidthKbps"`
	Quality       string `json:"quality"`
	Player        string `json:"player"`
	Platform      string `json:"platform"`
	LinkColor     string `json:"linkColor"`
}

// Session is one playback occurrence by one user, live or historical.
// The value is immutable once normalized; reconciliation and playback
// only ever replace whole sessions, never patch fields in place.
type Session struct {
	Key      string   `json:"key"`
	Username string   `json:"username"`
	UserID   string   `json:"userId"`
	Location Location `json:"location"`
	Media    Media    `json:"media"`
	Stream   Stream   `json:"stream"`

	// StartedAt and StoppedAt are Unix milliseconds.  StoppedAt stays
	// zero for live sessions until the reconciler removes them.
	StartedAt int64 `json:"startedAt"`
	StoppedAt int64 `json:"stoppedAt,omitempty"`
	PausedMs  int64 `json:"pausedMs,omitempty"`

	// IsSynthesizedLocation marks placements invented around the server
	// coordinate so the UI can draw the link dashed instead of solid.
	IsSynthesizedLocation bool `json:"isSynthesizedLocation"`
}

// WatchedMs returns the effective watch duration for stats, clipped at
// zero so a session that was paused longer than it ran never subtracts
// from totals.
func (s Session) WatchedMs() int64 {
	if s.StoppedAt == 0 {
		return 0
	}
	d := s.StoppedAt - s.StartedAt - s.PausedMs
	if d < 0 {
		return 0
	}
	return d
}

// Placeholders used when the upstream record omits required fields.  We
// degrade to readable text instead of dropping the record so one broken
// entry never hides a whole batch.
const (
	UnknownUser  = "Unknown User"
	UnknownTitle = "Unknown Title"
)

// Normalize converts one raw record into a canonical Session.  It never
// fails: missing names become placeholders and a missing geolocation
// becomes a synthesized ring placement around fallbackOrigin, spread by
// the record's position in the batch so local players do not collapse
// onto one point.  index and batchSize describe that position.
func Normalize(raw Raw, fallbackOrigin Location, index, batchSize int) Session {
	s := Session{
		Key:      raw.Key(index),
		Username: raw.Username,
		UserID:   raw.UserID,
		Media: Media{
			Title:            raw.Title,
			Type:             raw.MediaType,
			Year:             raw.Year,
			ParentTitle:      raw.ParentTitle,
			GrandparentTitle: raw.GrandparentTitle,
		},
		Stream: Stream{
			BandwidthKbps: raw.BandwidthKbps,
			Quality:       raw.Quality,
			Player:        raw.Player,
			Platform:      raw.Platform,
			LinkColor:     geo.LinkColor(raw.BandwidthKbps),
		},
		StartedAt: raw.StartedAt,
		StoppedAt: raw.StoppedAt,
		PausedMs:  raw.PausedMs,
	}
	if s.Username == "" {
		s.Username = UnknownUser
	}
	if s.Media.Title == "" {
		s.Media.Title = UnknownTitle
	}

	if raw.GeoResolved {
		s.Location = raw.Geo
		return s
	}

	// No usable geolocation: place the session on a wide ring around the
	// server itself.  The angular seed is the batch ordinal, so the spot
	// can move between polls as sibling count changes; positions stay
	// distinct within any one batch, which is what the map needs.
	dLat, dLon := geo.SynthOffset(index, batchSize)
	s.Location = Location{
		Lat:     fallbackOrigin.Lat + dLat,
		Lon:     fallbackOrigin.Lon + dLon,
		City:    "Local network",
		Country: fallbackOrigin.Country,
	}
	s.IsSynthesizedLocation = true
	return s
}

// Key derives the stable-enough identifier for a raw record.  Live
// records keep the session key the server reported.  Historical records
// have no live key, so we hash the reference id together with the batch
// ordinal; two rows for the same reference id still get distinct keys.
func (r Raw) Key(ordinal int) string {
	if r.SessionKey != "" {
		return r.SessionKey
	}
	ref := r.ReferenceID
	if ref == "" {
		ref = "session"
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%s#%d", ref, ordinal)
	return ref + "-" + strconv.FormatUint(h.Sum64(), 36)
}
