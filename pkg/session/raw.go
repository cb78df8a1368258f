package session

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Raw is one upstream record before normalization, covering both the
// live activity feed and the history endpoint.  A custom UnmarshalJSON
// maps only the fields we care about; keeping the struct small avoids
// coupling to the full upstream schema.
type Raw struct {
	SessionKey       string // live identifier, absent in history rows
	ReferenceID      string // durable row id used for historical keys
	Username         string
	UserID           string
	IP               string
	Title            string
	MediaType        string
	Year             int
	ParentTitle      string
	GrandparentTitle string
	Player           string
	Platform         string
	Quality          string
	BandwidthKbps    int64
	StartedAt        int64 // Unix ms
	StoppedAt        int64 // Unix ms, zero while live
	PausedMs         int64

	// Geo is filled by the geolocation stage before normalization.
	// GeoResolved stays false for private addresses and lookup failures,
	// which asks the normalizer for a synthesized placement.
	Geo         Location
	GeoResolved bool
}

// stringValue coerces the mixed string/number representations the
// upstream API uses for the same field across versions.
func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// intValue tolerates numbers serialized as strings, returning 0 for
// anything unusable so a malformed field degrades instead of failing.
func intValue(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// pick returns the first present key from the generic map.
func pick(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// instantMs converts upstream timestamps into Unix milliseconds.  The
// API reports Unix seconds as numbers or strings; some proxies re-encode
// them as RFC3339.  Accepting all three keeps history imports tolerant.
func instantMs(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t) * 1000
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n * 1000
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts.UnixMilli()
		}
	}
	return 0
}

// UnmarshalJSON decodes a Raw from a generic map so field name drift in
// the upstream feed ("user" vs "username" vs "friendly_name") never
// breaks parsing.  This mirrors how we already survive the activity and
// history endpoints disagreeing about half their field names.
func (r *Raw) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}

	if v, ok := pick(m, "session_key", "sessionKey", "session_id"); ok {
		r.SessionKey = stringValue(v)
	}
	if v, ok := pick(m, "reference_id", "row_id", "id"); ok {
		r.ReferenceID = stringValue(v)
	}
	if v, ok := pick(m, "friendly_name", "username", "user"); ok {
		r.Username = stringValue(v)
	}
	if v, ok := pick(m, "user_id"); ok {
		r.UserID = stringValue(v)
	}
	if v, ok := pick(m, "ip_address_public", "ip_address", "ip"); ok {
		r.IP = stringValue(v)
	}
	if v, ok := pick(m, "full_title", "title"); ok {
		r.Title = stringValue(v)
	}
	if v, ok := pick(m, "media_type", "type"); ok {
		r.MediaType = stringValue(v)
	}
	if v, ok := pick(m, "year"); ok {
		r.Year = int(intValue(v))
	}
	if v, ok := pick(m, "parent_title"); ok {
		r.ParentTitle = stringValue(v)
	}
	if v, ok := pick(m, "grandparent_title"); ok {
		r.GrandparentTitle = stringValue(v)
	}
	if v, ok := pick(m, "player"); ok {
		r.Player = stringValue(v)
	}
	if v, ok := pick(m, "platform"); ok {
		r.Platform = stringValue(v)
	}
	if v, ok := pick(m, "quality_profile", "transcode_decision"); ok {
		r.Quality = stringValue(v)
	}
	if v, ok := pick(m, "bandwidth"); ok {
		r.BandwidthKbps = intValue(v)
	}
	if v, ok := pick(m, "started"); ok {
		r.StartedAt = instantMs(v)
	}
	if v, ok := pick(m, "stopped"); ok {
		r.StoppedAt = instantMs(v)
	}
	if v, ok := pick(m, "paused_counter", "paused_duration"); ok {
		// Paused time is reported in seconds like the other instants.
		r.PausedMs = intValue(v) * 1000
	}
	return nil
}
