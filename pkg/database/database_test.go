package database

import (
	"strings"
	"testing"

	"media-stream-map/pkg/session"
)

// TestPlaceholderPerDriver keeps the statement builders honest about
// PostgreSQL's numbered parameters versus everyone else's "?".
func TestPlaceholderPerDriver(t *testing.T) {
	t.Parallel()

	if got := placeholder("pgx", 3); got != "$3" {
		t.Fatalf("pgx placeholder = %q, want $3", got)
	}
	if got := placeholder("sqlite", 3); got != "?" {
		t.Fatalf("sqlite placeholder = %q, want ?", got)
	}
	if got := placeholders("pgx", 3); got != "$1,$2,$3" {
		t.Fatalf("pgx placeholders = %q", got)
	}
	if got := placeholders("genji", 2); got != "?,?" {
		t.Fatalf("genji placeholders = %q", got)
	}
}

// TestSessionArgsMatchColumns guards what the insert and scan paths
// both depend on: one argument per column, in column order.
func TestSessionArgsMatchColumns(t *testing.T) {
	t.Parallel()

	columns := strings.Split(sessionColumns, ",")
	args := sessionArgs(session.Session{Key: "k", IsSynthesizedLocation: true})
	if len(args) != len(columns) {
		t.Fatalf("sessionArgs produced %d values for %d columns", len(args), len(columns))
	}
	if args[0] != "k" {
		t.Fatalf("first argument = %v, want the key", args[0])
	}
	// synthesized flag lands right before started_at (last three columns
	// are the instants).
	if args[len(args)-4] != 1 {
		t.Fatalf("synthesized flag = %v, want 1", args[len(args)-4])
	}
}

// TestNormalizeDBType tolerates the whitespace and casing operators
// actually type into flags.
func TestNormalizeDBType(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		" SQLite ": "sqlite",
		"PGX":      "pgx",
		"genji":    "genji",
	} {
		if got := normalizeDBType(in); got != want {
			t.Fatalf("normalizeDBType(%q) = %q, want %q", in, got, want)
		}
	}
}
