// Package geo holds the small coordinate arithmetic shared by the live
// reconciler and the session normalizer: spreading coincident sessions
// into a ring of distinct marker positions, and mapping stream bandwidth
// to link colors.  Everything here is a pure function so callers can use
// the package from any goroutine without coordination.
package geo

import "math"

const (
	// ringRadius is the offset ring radius in degrees used when several
	// sessions share one resolved coordinate.  Roughly 800 m at the
	// equator, enough to keep markers clickable at city zoom levels.
	ringRadius = 0.008

	// synthRadius is the larger ring used for sessions without any
	// geolocation, placed around the server's own coordinate so local
	// players still appear as distinct markers.
	synthRadius = 0.35

	// lonStretch widens the longitude component of every offset.  Web
	// mercator tiles squeeze longitude visually at mid latitudes, so a
	// mild horizontal stretch makes the ring look round on screen.  This
	// is an approximation for display, not an equal-area spread.
	lonStretch = 1.5
)

// Offset spreads entry index out of total around a ring of fixed radius.
// A single entry needs no spreading and stays at the shared coordinate.
func Offset(index, total int) (dLat, dLon float64) {
	return ringOffset(index, total, ringRadius)
}

// SynthOffset is the wider variant used for synthesized placements of
// sessions that resolved to no geolocation at all.
func SynthOffset(index, total int) (dLat, dLon float64) {
	return ringOffset(index, total, synthRadius)
}

func ringOffset(index, total int, radius float64) (dLat, dLon float64) {
	if total <= 1 {
		return 0, 0
	}
	angle := 2 * math.Pi * float64(index) / float64(total)
	dLat = radius * math.Sin(angle)
	dLon = radius * math.Cos(angle) * lonStretch
	return dLat, dLon
}
