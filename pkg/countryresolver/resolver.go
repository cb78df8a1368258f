// Package countryresolver maps coordinates to ISO 3166-1 alpha-2 codes
// without any network or geo library.  Coarse rectangles are plenty for
// per-country viewing stats; a session near a border landing one country
// over changes a histogram bar by one, not the map.
package countryresolver

import (
	"math"
	"runtime"
	"strings"
)

// regionBox is one rectangular approximation of a country.  Smaller
// boxes are checked first so compact countries win over the larger
// neighbours whose rectangle overlaps them.
type regionBox struct {
	code           string
	name           string
	minLat, maxLat float64
	minLon, maxLon float64
}

func (b regionBox) contains(lat, lon float64) bool {
	return lat >= b.minLat && lat <= b.maxLat && lon >= b.minLon && lon <= b.maxLon
}

func (b regionBox) area() float64 {
	return (b.maxLat - b.minLat) * (b.maxLon - b.minLon)
}

// boxes and nameByCode are prepared once at init from data.go.
var (
	boxes      = buildBoxes()
	nameByCode = buildNameIndex(boxes)
)

// query and result carry one lookup through the worker pool.  The reply
// channel is buffered so an abandoned lookup never blocks a worker.
type query struct {
	lat, lon float64
	reply    chan result
}

type result struct {
	code string
	name string
}

// lookups feeds the background workers.  Channels instead of a mutex:
// concurrent callers need no locking discipline of their own.
var lookups chan query

func init() {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	lookups = make(chan query, workers)
	for i := 0; i < workers; i++ {
		go func() {
			for q := range lookups {
				code, name := resolvePoint(q.lat, q.lon)
				q.reply <- result{code: code, name: name}
			}
		}()
	}
}

// Resolve returns the ISO code and English name for a coordinate, or
// empty strings when nothing matches so callers can fall back to an
// "unknown" label.
func Resolve(lat, lon float64) (string, string) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return "", ""
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", ""
	}

	reply := make(chan result, 1)
	select {
	case lookups <- query{lat: lat, lon: lon, reply: reply}:
	default:
		// Pool saturated: resolve inline rather than queue, keeping
		// reconciliation latency flat under bursts.
		return resolvePoint(lat, lon)
	}
	res := <-reply
	return res.code, res.name
}

// resolvePoint scans the area-sorted boxes and returns the first match.
func resolvePoint(lat, lon float64) (string, string) {
	for _, b := range boxes {
		if b.contains(lat, lon) {
			return b.code, b.name
		}
	}
	return "", ""
}

// NameFor returns the English name for a code, tolerating lower case
// input from upstream payloads.
func NameFor(code string) string {
	if code == "" {
		return ""
	}
	if name, ok := nameByCode[strings.ToUpper(code)]; ok {
		return name
	}
	return ""
}

func buildNameIndex(list []regionBox) map[string]string {
	out := make(map[string]string, len(list))
	for _, b := range list {
		if _, ok := out[b.code]; !ok {
			out[b.code] = b.name
		}
	}
	return out
}
