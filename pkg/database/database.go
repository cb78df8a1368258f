// Package database persists synchronized playback history so the map
// can build timelines and stats without hammering the upstream API on
// every page load.  It speaks plain database/sql; driver registration
// lives in the drivers subpackage so tests stay light.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

// Database wraps the SQL connection together with the normalized driver
// name so query builders can stay declarative.
type Database struct {
	DB     *sql.DB
	Driver string
}

// Config holds everything needed to open a backend.
type Config struct {
	DBType    string // sqlite (default), genji, duckdb, or pgx (PostgreSQL)
	DBPath    string // file path for the file-based drivers
	DBConn    string // raw DSN for pgx, overrides the host/port fields
	DBHost    string
	DBPort    int
	DBUser    string
	DBPass    string
	DBName    string
	PGSSLMode string
	Port      int // server port, used in default database file names
}

// normalizeDBType trims and lowercases driver names so the switch
// blocks below never miss a backend over incidental whitespace.
func normalizeDBType(dbType string) string {
	return strings.ToLower(strings.TrimSpace(dbType))
}

// New opens the configured backend and applies connection policy.  The
// file-based drivers are forced into single-connection mode: one
// physical connection, no concurrent statements at the DB layer.
func New(config Config) (*Database, error) {
	driver := normalizeDBType(config.DBType)
	var dsn string

	switch driver {
	case "sqlite", "genji", "duckdb":
		dsn = config.DBPath
		if dsn == "" {
			dsn = fmt.Sprintf("sessions-%d.%s", config.Port, driver)
		}
	case "pgx":
		if strings.TrimSpace(config.DBConn) != "" {
			dsn = config.DBConn
		} else {
			dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				config.DBUser, config.DBPass, config.DBHost, config.DBPort, config.DBName, config.PGSSLMode)
		}
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.DBType)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	switch driver {
	case "sqlite", "genji":
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		if driver == "sqlite" {
			tuneCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := tuneSQLite(tuneCtx, db); err != nil {
				log.Printf("sqlite tuning: %v", err)
			}
			cancel()
		}
	}

	d := &Database{DB: db, Driver: driver}
	if err := d.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// tuneSQLite keeps history sync writes fast enough for large backfills.
func tuneSQLite(ctx context.Context, db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// InitSchema creates the sessions table when missing.  Column types
// stick to the portable subset every supported driver understands.
func (db *Database) InitSchema(ctx context.Context) error {
	create := `CREATE TABLE IF NOT EXISTS sessions (
  key TEXT PRIMARY KEY,
  reference_id TEXT,
  username TEXT,
  user_id TEXT,
  title TEXT,
  media_type TEXT,
  year INTEGER,
  parent_title TEXT,
  grandparent_title TEXT,
  player TEXT,
  platform TEXT,
  quality TEXT,
  bandwidth_kbps BIGINT,
  lat DOUBLE PRECISION,
  lon DOUBLE PRECISION,
  city TEXT,
  country TEXT,
  synthesized INTEGER,
  started_at BIGINT,
  stopped_at BIGINT,
  paused_ms BIGINT
)`
	if _, err := db.DB.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	// The range query below filters on started_at constantly; an index
	// keeps month-long windows cheap on every backend except genji,
	// which indexes the primary key only.
	if db.Driver != "genji" {
		index := `CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions (started_at)`
		if _, err := db.DB.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("create started index: %w", err)
		}
	}
	return nil
}

// placeholder renders the n-th statement parameter for the driver: $n
// for PostgreSQL, ? for everything else.
func placeholder(driver string, n int) string {
	if driver == "pgx" {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// placeholders renders "p1,p2,...,pn" for insert value lists.
func placeholders(driver string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = placeholder(driver, i+1)
	}
	return strings.Join(parts, ",")
}

// Close releases the underlying connection.
func (db *Database) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}
