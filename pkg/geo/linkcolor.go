package geo

// LinkColor grades the server-to-player connection line by stream
// bandwidth in kbps.  Thresholds match what operators expect from the
// quality badges in the web UI, so a red line always means a stream that
// is heavier than a typical 4K transcode.
func LinkColor(bandwidthKbps int64) string {
	switch {
	case bandwidthKbps > 20000:
		return "#d9534f" // red
	case bandwidthKbps > 10000:
		return "#f0834f" // orange
	case bandwidthKbps > 5000:
		return "#f0ad4e" // yellow-orange
	case bandwidthKbps > 2000:
		return "#ffd24e" // yellow
	default:
		return "#5cb85c" // green
	}
}
