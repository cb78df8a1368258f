//go:build cgo && duckdb && (linux || darwin || windows) && (amd64 || arm64)

// DuckDB talks to its C/C++ engine over CGO, so registration stays
// behind a build tag and default builds remain CGO-free.
// Build example:
//
//	CGO_ENABLED=1 go build -tags duckdb
package drivers

import (
	_ "github.com/marcboeker/go-duckdb"
)
