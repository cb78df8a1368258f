package database

import (
	"context"
	"database/sql"
	"fmt"

	"media-stream-map/pkg/session"
)

// sessionColumns is the canonical column order shared by inserts and
// scans so the two can never drift apart.
const sessionColumns = `key, reference_id, username, user_id, title, media_type, year,
parent_title, grandparent_title, player, platform, quality, bandwidth_kbps,
lat, lon, city, country, synthesized, started_at, stopped_at, paused_ms`

// sessionArgs flattens a session into the insert argument list,
// matching sessionColumns.
func sessionArgs(s session.Session) []any {
	synthesized := 0
	if s.IsSynthesizedLocation {
		synthesized = 1
	}
	return []any{
		s.Key, "", s.Username, s.UserID, s.Media.Title, s.Media.Type, s.Media.Year,
		s.Media.ParentTitle, s.Media.GrandparentTitle, s.Stream.Player, s.Stream.Platform,
		s.Stream.Quality, s.Stream.BandwidthKbps,
		s.Location.Lat, s.Location.Lon, s.Location.City, s.Location.Country,
		synthesized, s.StartedAt, s.StoppedAt, s.PausedMs,
	}
}

// scanSession reads one row in sessionColumns order.
func scanSession(rows *sql.Rows) (session.Session, error) {
	var (
		s           session.Session
		refID       string
		synthesized int
	)
	err := rows.Scan(
		&s.Key, &refID, &s.Username, &s.UserID, &s.Media.Title, &s.Media.Type, &s.Media.Year,
		&s.Media.ParentTitle, &s.Media.GrandparentTitle, &s.Stream.Player, &s.Stream.Platform,
		&s.Stream.Quality, &s.Stream.BandwidthKbps,
		&s.Location.Lat, &s.Location.Lon, &s.Location.City, &s.Location.Country,
		&synthesized, &s.StartedAt, &s.StoppedAt, &s.PausedMs,
	)
	if err != nil {
		return session.Session{}, err
	}
	s.IsSynthesizedLocation = synthesized != 0
	return s, nil
}

// InsertSessions stores a normalized batch, skipping keys already
// present so repeated syncs of overlapping windows stay idempotent.
// PostgreSQL batches above copyThreshold go through the COPY fast path.
func (db *Database) InsertSessions(ctx context.Context, batch []session.Session) error {
	if db == nil || db.DB == nil {
		return fmt.Errorf("database unavailable")
	}
	if len(batch) == 0 {
		return nil
	}
	if db.Driver == "pgx" && len(batch) >= copyThreshold {
		return db.insertSessionsPostgreSQLCopy(ctx, batch)
	}

	var insert string
	switch db.Driver {
	case "sqlite":
		insert = fmt.Sprintf(`INSERT OR IGNORE INTO sessions (%s) VALUES (%s)`,
			sessionColumns, placeholders(db.Driver, 21))
	default:
		insert = fmt.Sprintf(`INSERT INTO sessions (%s) VALUES (%s) ON CONFLICT DO NOTHING`,
			sessionColumns, placeholders(db.Driver, 21))
	}

	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	for _, s := range batch {
		if _, err := tx.ExecContext(ctx, insert, sessionArgs(s)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert session %s: %w", s.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert tx: %w", err)
	}
	return nil
}

// StreamSessionsByRange streams stored sessions whose start falls inside
// [from, to] ordered by start, row by row through a channel.  This keeps
// month-long windows out of memory and stops cleanly on context end.
func (db *Database) StreamSessionsByRange(ctx context.Context, from, to int64) (<-chan session.Session, <-chan error) {
	out := make(chan session.Session)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		query := fmt.Sprintf(`SELECT %s FROM sessions WHERE started_at >= %s AND started_at <= %s ORDER BY started_at`,
			sessionColumns, placeholder(db.Driver, 1), placeholder(db.Driver, 2))

		rows, err := db.DB.QueryContext(ctx, query, from, to)
		if err != nil {
			errCh <- fmt.Errorf("query sessions: %w", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			s, err := scanSession(rows)
			if err != nil {
				errCh <- fmt.Errorf("scan session: %w", err)
				return
			}
			select {
			case out <- s:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- fmt.Errorf("iterate sessions: %w", err)
		}
	}()

	return out, errCh
}

// SessionsByRange collects the stream into a slice for callers that
// need the whole window anyway, like the timeline builder.
func (db *Database) SessionsByRange(ctx context.Context, from, to int64) ([]session.Session, error) {
	out, errCh := db.StreamSessionsByRange(ctx, from, to)
	var batch []session.Session
	for s := range out {
		batch = append(batch, s)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return batch, nil
}

// CountSessions reports the stored total for the API overview.
func (db *Database) CountSessions(ctx context.Context) (int64, error) {
	var count int64
	err := db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// LatestStart returns the newest stored start instant, zero when the
// table is empty, so incremental syncs know where to resume.
func (db *Database) LatestStart(ctx context.Context) (int64, error) {
	var latest sql.NullInt64
	err := db.DB.QueryRowContext(ctx, `SELECT MAX(started_at) FROM sessions`).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("latest start: %w", err)
	}
	return latest.Int64, nil
}
