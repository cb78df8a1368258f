package geo

import (
	"math"
	"testing"
)

// TestOffsetSingle keeps the degenerate case stable: a lone session must
// stay exactly on its resolved coordinate.
func TestOffsetSingle(t *testing.T) {
	t.Parallel()

	dLat, dLon := Offset(0, 1)
	if dLat != 0 || dLon != 0 {
		t.Fatalf("Offset(0,1)=(%v,%v) want (0,0)", dLat, dLon)
	}
}

// TestOffsetRingSymmetry checks that a full ring of offsets sums to the
// zero vector, so spreading never drifts the visual center of a group
// away from the shared coordinate.
func TestOffsetRingSymmetry(t *testing.T) {
	t.Parallel()

	for _, total := range []int{2, 3, 4, 6, 8, 12} {
		var sumLat, sumLon float64
		seen := make(map[[2]float64]bool)
		for i := 0; i < total; i++ {
			dLat, dLon := Offset(i, total)
			sumLat += dLat
			sumLon += dLon
			pos := [2]float64{dLat, dLon}
			if seen[pos] {
				t.Fatalf("total=%d index=%d repeats offset %v", total, i, pos)
			}
			seen[pos] = true
		}
		if math.Abs(sumLat) > 1e-12 || math.Abs(sumLon) > 1e-12 {
			t.Fatalf("total=%d ring sum=(%v,%v) want zero vector", total, sumLat, sumLon)
		}
	}
}

// TestOffsetLonStretch pins the 1.5 horizontal stretch so the rendered
// ring stays round on mercator tiles.
func TestOffsetLonStretch(t *testing.T) {
	t.Parallel()

	_, dLon := Offset(0, 4) // angle 0: pure longitude component
	dLat, _ := Offset(1, 4) // angle π/2: pure latitude component
	if math.Abs(dLon/dLat-lonStretch) > 1e-9 {
		t.Fatalf("lon/lat ratio=%v want %v", dLon/dLat, lonStretch)
	}
}

// TestSynthOffsetWiderThanRing guards the contract that synthesized
// placements use a visibly larger radius than collision spreading.
func TestSynthOffsetWiderThanRing(t *testing.T) {
	t.Parallel()

	dLat, _ := SynthOffset(1, 4)
	rLat, _ := Offset(1, 4)
	if dLat <= rLat {
		t.Fatalf("synth radius %v not wider than ring radius %v", dLat, rLat)
	}
}

// TestLinkColor walks the bandwidth thresholds, including the exact
// boundary values which belong to the lower band.
func TestLinkColor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kbps int64
		want string
	}{
		{25000, "#d9534f"},
		{20001, "#d9534f"},
		{20000, "#f0834f"},
		{10001, "#f0834f"},
		{10000, "#f0ad4e"},
		{5001, "#f0ad4e"},
		{5000, "#ffd24e"},
		{2001, "#ffd24e"},
		{2000, "#5cb85c"},
		{0, "#5cb85c"},
	}
	for _, tc := range cases {
		if got := LinkColor(tc.kbps); got != tc.want {
			t.Fatalf("LinkColor(%d)=%q want %q", tc.kbps, got, tc.want)
		}
	}
}
