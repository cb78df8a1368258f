package countryresolver

import "sort"

// rawBoxes lists one or a few rectangles per country, biased toward the
// regions media servers actually see traffic from.  Boundaries are
// deliberately rough; buildBoxes sorts them smallest-first so a point
// inside both the Netherlands and the wider German rectangle resolves
// to the Netherlands.
var rawBoxes = []regionBox{
	// Europe
	{code: "NL", name: "Netherlands", minLat: 50.7, maxLat: 53.6, minLon: 3.3, maxLon: 7.2},
	{code: "BE", name: "Belgium", minLat: 49.5, maxLat: 51.5, minLon: 2.5, maxLon: 6.4},
	{code: "LU", name: "Luxembourg", minLat: 49.4, maxLat: 50.2, minLon: 5.7, maxLon: 6.5},
	{code: "CH", name: "Switzerland", minLat: 45.8, maxLat: 47.8, minLon: 5.9, maxLon: 10.5},
	{code: "AT", name: "Austria", minLat: 46.4, maxLat: 49.0, minLon: 9.5, maxLon: 17.2},
	{code: "CZ", name: "Czechia", minLat: 48.5, maxLat: 51.1, minLon: 12.0, maxLon: 18.9},
	{code: "DK", name: "Denmark", minLat: 54.5, maxLat: 57.8, minLon: 8.0, maxLon: 12.7},
	{code: "DE", name: "Germany", minLat: 47.2, maxLat: 55.1, minLon: 5.9, maxLon: 15.0},
	{code: "FR", name: "France", minLat: 42.3, maxLat: 51.1, minLon: -4.8, maxLon: 8.2},
	{code: "GB", name: "United Kingdom", minLat: 49.9, maxLat: 58.7, minLon: -8.2, maxLon: 1.8},
	{code: "IE", name: "Ireland", minLat: 51.4, maxLat: 55.4, minLon: -10.5, maxLon: -5.9},
	{code: "PT", name: "Portugal", minLat: 36.9, maxLat: 42.2, minLon: -9.5, maxLon: -6.2},
	{code: "ES", name: "Spain", minLat: 36.0, maxLat: 43.8, minLon: -9.3, maxLon: 3.3},
	{code: "IT", name: "Italy", minLat: 36.6, maxLat: 47.1, minLon: 6.6, maxLon: 18.5},
	{code: "GR", name: "Greece", minLat: 34.8, maxLat: 41.8, minLon: 19.3, maxLon: 28.3},
	{code: "PL", name: "Poland", minLat: 49.0, maxLat: 54.9, minLon: 14.1, maxLon: 24.2},
	{code: "NO", name: "Norway", minLat: 57.9, maxLat: 71.2, minLon: 4.5, maxLon: 31.1},
	{code: "SE", name: "Sweden", minLat: 55.3, maxLat: 69.1, minLon: 10.9, maxLon: 24.2},
	{code: "FI", name: "Finland", minLat: 59.7, maxLat: 70.1, minLon: 20.5, maxLon: 31.6},
	{code: "UA", name: "Ukraine", minLat: 44.3, maxLat: 52.4, minLon: 22.1, maxLon: 40.2},
	{code: "RO", name: "Romania", minLat: 43.6, maxLat: 48.3, minLon: 20.2, maxLon: 29.7},
	{code: "HU", name: "Hungary", minLat: 45.7, maxLat: 48.6, minLon: 16.1, maxLon: 22.9},
	{code: "RU", name: "Russia", minLat: 50.0, maxLat: 70.0, minLon: 30.0, maxLon: 180.0},
	{code: "TR", name: "Turkey", minLat: 35.8, maxLat: 42.1, minLon: 26.0, maxLon: 44.8},

	// Americas
	{code: "US", name: "United States", minLat: 24.5, maxLat: 49.4, minLon: -125.0, maxLon: -66.9},
	{code: "US", name: "United States", minLat: 54.0, maxLat: 71.5, minLon: -168.0, maxLon: -130.0},
	{code: "CA", name: "Canada", minLat: 49.4, maxLat: 70.0, minLon: -141.0, maxLon: -52.6},
	{code: "CA", name: "Canada", minLat: 43.0, maxLat: 49.4, minLon: -84.0, maxLon: -52.6},
	{code: "MX", name: "Mexico", minLat: 14.5, maxLat: 32.7, minLon: -117.1, maxLon: -86.7},
	{code: "BR", name: "Brazil", minLat: -33.8, maxLat: 5.3, minLon: -74.0, maxLon: -34.8},
	{code: "AR", name: "Argentina", minLat: -55.1, maxLat: -21.8, minLon: -73.6, maxLon: -53.6},
	{code: "CL", name: "Chile", minLat: -55.9, maxLat: -17.5, minLon: -75.7, maxLon: -66.4},
	{code: "CO", name: "Colombia", minLat: -4.2, maxLat: 12.5, minLon: -79.0, maxLon: -66.9},

	// Asia-Pacific
	{code: "JP", name: "Japan", minLat: 30.9, maxLat: 45.6, minLon: 129.4, maxLon: 146.0},
	{code: "KR", name: "South Korea", minLat: 33.1, maxLat: 38.6, minLon: 125.9, maxLon: 129.6},
	{code: "CN", name: "China", minLat: 18.1, maxLat: 49.0, minLon: 73.5, maxLon: 134.8},
	{code: "TW", name: "Taiwan", minLat: 21.9, maxLat: 25.3, minLon: 120.0, maxLon: 122.0},
	{code: "IN", name: "India", minLat: 6.5, maxLat: 35.5, minLon: 68.1, maxLon: 97.4},
	{code: "TH", name: "Thailand", minLat: 5.6, maxLat: 20.5, minLon: 97.3, maxLon: 105.6},
	{code: "VN", name: "Vietnam", minLat: 8.4, maxLat: 23.4, minLon: 102.1, maxLon: 109.5},
	{code: "PH", name: "Philippines", minLat: 4.6, maxLat: 21.1, minLon: 116.9, maxLon: 126.6},
	{code: "ID", name: "Indonesia", minLat: -11.0, maxLat: 6.1, minLon: 95.0, maxLon: 141.0},
	{code: "SG", name: "Singapore", minLat: 1.1, maxLat: 1.5, minLon: 103.6, maxLon: 104.1},
	{code: "AU", name: "Australia", minLat: -43.7, maxLat: -10.6, minLon: 113.1, maxLon: 153.7},
	{code: "NZ", name: "New Zealand", minLat: -47.3, maxLat: -34.3, minLon: 166.4, maxLon: 178.6},

	// Middle East & Africa
	{code: "IL", name: "Israel", minLat: 29.4, maxLat: 33.4, minLon: 34.2, maxLon: 35.9},
	{code: "AE", name: "United Arab Emirates", minLat: 22.6, maxLat: 26.1, minLon: 51.5, maxLon: 56.4},
	{code: "SA", name: "Saudi Arabia", minLat: 16.3, maxLat: 32.2, minLon: 34.5, maxLon: 55.7},
	{code: "EG", name: "Egypt", minLat: 22.0, maxLat: 31.7, minLon: 24.7, maxLon: 36.9},
	{code: "ZA", name: "South Africa", minLat: -34.9, maxLat: -22.1, minLon: 16.4, maxLon: 32.9},
	{code: "NG", name: "Nigeria", minLat: 4.2, maxLat: 13.9, minLon: 2.7, maxLon: 14.7},
}

// buildBoxes sorts the raw rectangles by ascending area so the first
// containment hit is always the most specific one.
func buildBoxes() []regionBox {
	out := make([]regionBox, len(rawBoxes))
	copy(out, rawBoxes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].area() < out[j].area() })
	return out
}
