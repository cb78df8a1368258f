package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"media-stream-map/pkg/session"
)

// copyThreshold is the batch size above which PostgreSQL inserts switch
// from per-row statements to COPY.  Small live-poll batches stay on the
// simple path; history backfills take the fast one.
const copyThreshold = 200

// insertSessionsPostgreSQLCopy streams a batch into PostgreSQL using
// COPY through a temporary table, so the key-dedup policy of the main
// table still applies without giving up COPY throughput.
func (db *Database) insertSessionsPostgreSQLCopy(ctx context.Context, batch []session.Session) error {
	if len(batch) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	conn, err := db.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open postgres connection: %w", err)
	}
	defer conn.Close()

	// Timestamp suffix keeps the name unique per call while staying
	// predictable for debugging.  No ON COMMIT DROP: the table must
	// survive autocommit between COPY and the merge insert.
	tempTable := fmt.Sprintf("temp_sessions_%d", time.Now().UnixNano())
	createTemp := fmt.Sprintf(`CREATE TEMP TABLE %s (
key TEXT,
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
)`, tempTable)
	if _, err := conn.ExecContext(ctx, createTemp); err != nil {
		return fmt.Errorf("create temp table: %w", err)
	}

	// Drop with a detached context so shutdown is never blocked by a
	// caller's already-cancelled context.
	dropCtx, dropCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer dropCancel()
	defer conn.ExecContext(dropCtx, fmt.Sprintf("DROP TABLE IF EXISTS %s", tempTable))

	rows := make([][]interface{}, 0, len(batch))
	for _, s := range batch {
		rows = append(rows, sessionArgs(s))
	}

	columns := []string{
		"key", "reference_id", "username", "user_id", "title", "media_type", "year",
		"parent_title", "grandparent_title", "player", "platform", "quality", "bandwidth_kbps",
		"lat", "lon", "city", "country", "synthesized", "started_at", "stopped_at", "paused_ms",
	}
	copyErr := conn.Raw(func(driverConn any) error {
		direct, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected postgres driver %T", driverConn)
		}
		_, err := direct.Conn().CopyFrom(
			ctx,
			pgx.Identifier{tempTable},
			columns,
			pgx.CopyFromRows(rows),
		)
		return err
	})
	if copyErr != nil {
		return fmt.Errorf("copy sessions into temp table: %w", copyErr)
	}

	insertFromTemp := fmt.Sprintf(`INSERT INTO sessions (%s)
SELECT %s FROM %s
ON CONFLICT (key) DO NOTHING`, sessionColumns, sessionColumns, tempTable)
	if _, err := conn.ExecContext(ctx, insertFromTemp); err != nil {
		return fmt.Errorf("merge temp sessions: %w", err)
	}

	return nil
}
