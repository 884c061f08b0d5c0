// File: internal/store/store.go
// Description: Embedded checkpoint database. Cooldown windows must survive a
// restart within their hour, and session summaries feed the daily-cap
// accounting, so both live in a small local SQLite file.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/xaelith/ghostpilot/api/schemas"
)

// SQLiteStore implements schemas.Checkpointer over an embedded database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// New opens or creates the checkpoint database at the given path.
func New(path string, logger *zap.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger.Named("store")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cooldowns (
		action_key       TEXT PRIMARY KEY,
		last_used_at     TEXT NOT NULL,
		cooldown_seconds REAL NOT NULL,
		max_per_hour     INTEGER NOT NULL,
		window_start     TEXT NOT NULL,
		count            INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_summaries (
		session_id   TEXT PRIMARY KEY,
		role         TEXT NOT NULL,
		started_at   TEXT NOT NULL,
		ended_at     TEXT NOT NULL,
		duration_ms  INTEGER NOT NULL,
		action_count INTEGER NOT NULL,
		end_reason   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_events (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		type       TEXT NOT NULL,
		at         TEXT NOT NULL,
		message    TEXT,
		fields     TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_session ON session_events(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveCooldowns replaces the checkpointed cooldown set atomically.
func (s *SQLiteStore) SaveCooldowns(ctx context.Context, entries []schemas.CooldownEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cooldowns`); err != nil {
		return fmt.Errorf("clear cooldowns: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cooldowns (action_key, last_used_at, cooldown_seconds, max_per_hour, window_start, count)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			e.ActionKey,
			timeText(e.LastUsedAt),
			e.CooldownSeconds,
			e.Rate.MaxPerHour,
			timeText(e.Rate.WindowStart),
			e.Rate.Count,
		)
		if err != nil {
			return fmt.Errorf("insert cooldown %s: %w", e.ActionKey, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("Checkpointed cooldowns", zap.Int("entries", len(entries)))
	return nil
}

// LoadCooldowns reads the checkpointed cooldown set.
func (s *SQLiteStore) LoadCooldowns(ctx context.Context) ([]schemas.CooldownEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action_key, last_used_at, cooldown_seconds, max_per_hour, window_start, count
		FROM cooldowns ORDER BY action_key`)
	if err != nil {
		return nil, fmt.Errorf("query cooldowns: %w", err)
	}
	defer rows.Close()

	var out []schemas.CooldownEntry
	for rows.Next() {
		var e schemas.CooldownEntry
		var lastUsed, windowStart string
		if err := rows.Scan(&e.ActionKey, &lastUsed, &e.CooldownSeconds, &e.Rate.MaxPerHour, &windowStart, &e.Rate.Count); err != nil {
			return nil, fmt.Errorf("scan cooldown: %w", err)
		}
		e.LastUsedAt = parseTimeText(lastUsed)
		e.Rate.WindowStart = parseTimeText(windowStart)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveSummary records an ended session.
func (s *SQLiteStore) SaveSummary(ctx context.Context, sum schemas.SessionSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO session_summaries
			(session_id, role, started_at, ended_at, duration_ms, action_count, end_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sum.SessionID,
		string(sum.Role),
		timeText(sum.StartedAt),
		timeText(sum.EndedAt),
		sum.Duration.Milliseconds(),
		sum.ActionCount,
		sum.EndReason,
	)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// DailyUse sums play time of sessions that started on the same local day as
// now, for the humanizer's daily cap.
func (s *SQLiteStore) DailyUse(ctx context.Context, now time.Time) (time.Duration, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var totalMs sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(duration_ms) FROM session_summaries WHERE started_at >= ?`,
		timeText(dayStart),
	).Scan(&totalMs)
	if err != nil {
		return 0, fmt.Errorf("daily use: %w", err)
	}
	return time.Duration(totalMs.Int64) * time.Millisecond, nil
}

// AppendEvent persists one session log event.
func (s *SQLiteStore) AppendEvent(ctx context.Context, ev schemas.SessionEvent) error {
	var fields []byte
	if len(ev.Fields) > 0 {
		var err error
		fields, err = json.Marshal(ev.Fields)
		if err != nil {
			return fmt.Errorf("marshal event fields: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_events (id, session_id, type, at, message, fields)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SessionID, string(ev.Type), timeText(ev.At), ev.Message, string(fields),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// EventsForSession returns a session's log in ID (ULID, i.e. time) order.
func (s *SQLiteStore) EventsForSession(ctx context.Context, sessionID string) ([]schemas.SessionEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, type, at, message, fields
		FROM session_events WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []schemas.SessionEvent
	for rows.Next() {
		var ev schemas.SessionEvent
		var typ, at string
		var message, fields sql.NullString
		if err := rows.Scan(&ev.ID, &ev.SessionID, &typ, &at, &message, &fields); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = schemas.EventType(typ)
		ev.At = parseTimeText(at)
		ev.Message = message.String
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &ev.Fields); err != nil {
				return nil, fmt.Errorf("unmarshal event fields: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Times are stored as RFC3339Nano text; the zero time round-trips as "".
func timeText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTimeText(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
