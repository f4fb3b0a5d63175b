package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/occurrence"
	"github.com/jtomassoni/monaghans-sub000/internal/recurrence"
)

type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (and migrates) the database at path, creating parent
// directories as needed.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			zone TEXT NOT NULL,
			start_local TEXT NOT NULL,
			end_local TEXT,
			start_date TEXT NOT NULL,
			all_day INTEGER NOT NULL DEFAULT 0,
			rrule TEXT NOT NULL DEFAULT '',
			until_date TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS event_exceptions (
			event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			date TEXT NOT NULL,
			PRIMARY KEY (event_id, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start_date ON events(start_date)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Add(ctx context.Context, in CreateInput) (*Record, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, errors.New("title is required")
	}
	if _, err := occurrence.NewDefinition("", in.Title, in.Start, in.End, in.AllDay); err != nil {
		return nil, err
	}
	rule, err := recurrence.NewRule(in.Rule.Pattern, in.Rule.Bounds, in.Start.Date)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	var endLocal, until sql.NullString
	if in.End != nil {
		endLocal = sql.NullString{String: civil.Format(*in.End), Valid: true}
	}
	if rule.Until != nil {
		until = sql.NullString{String: rule.Until.String(), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, `INSERT INTO events
		(id, title, notes, zone, start_local, end_local, start_date, all_day, rrule, until_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Title, in.Notes, in.Start.Zone(), civil.Format(in.Start), endLocal, in.Start.Date.String(),
		boolInt(in.AllDay), rule.RRule(in.Start), until, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	for _, d := range rule.Exceptions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO event_exceptions (event_id, date) VALUES (?, ?)`, id, d.String()); err != nil {
			return nil, fmt.Errorf("insert exception: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *SQLite) AddException(ctx context.Context, id string, d civil.Date) (*Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Before(rec.Start.Date) {
		return nil, &recurrence.InvalidRuleError{Field: "exceptions", Reason: fmt.Sprintf("%s is before the start date %s", d, rec.Start.Date)}
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR IGNORE INTO event_exceptions (event_id, date) VALUES (?, ?)`, id, d.String())
	if err != nil {
		return nil, fmt.Errorf("insert exception: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE events SET updated_at = ? WHERE id = ?`, time.Now().UTC().Format(time.RFC3339), id); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

const selectEvents = `SELECT id, title, notes, zone, start_local, end_local, all_day, rrule, created_at, updated_at FROM events`

func (s *SQLite) Get(ctx context.Context, id string) (*Record, error) {
	rows, err := s.db.QueryContext(ctx, selectEvents+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	recs, err := s.scan(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return &recs[0], nil
}

// List returns definitions whose series can touch [From, To]: started on or
// before To and not ended (UNTIL) before From. Single events are bounded by
// their start date.
func (s *SQLite) List(ctx context.Context, f Filter) ([]Record, error) {
	var where []string
	var args []any
	if !f.To.IsZero() {
		where = append(where, `start_date <= ?`)
		args = append(args, f.To.String())
	}
	if !f.From.IsZero() {
		// a single event may end after midnight but is still dated on its start day
		where = append(where, `(CASE WHEN rrule = '' THEN start_date >= ? ELSE (until_date IS NULL OR until_date >= ?) END)`)
		args = append(args, f.From.String(), f.From.String())
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, `(lower(title) LIKE ? OR lower(notes) LIKE ?)`)
		like := "%" + strings.ToLower(q) + "%"
		args = append(args, like, like)
	}
	query := selectEvents
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY start_date, start_local, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return s.scan(ctx, rows)
}

type rawEvent struct {
	id, title, notes, zone, startLocal string
	endLocal                           sql.NullString
	allDay                             int
	rrule                              string
	createdAt, updatedAt               string
}

func (s *SQLite) scan(ctx context.Context, rows *sql.Rows) ([]Record, error) {
	var raws []rawEvent
	for rows.Next() {
		var r rawEvent
		if err := rows.Scan(&r.id, &r.title, &r.notes, &r.zone, &r.startLocal, &r.endLocal, &r.allDay, &r.rrule, &r.createdAt, &r.updatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		raws = append(raws, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]Record, 0, len(raws))
	for _, r := range raws {
		ex, err := s.exceptions(ctx, r.id)
		if err != nil {
			return nil, err
		}
		rec, err := decode(r, ex)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", r.id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *SQLite) exceptions(ctx context.Context, id string) ([]civil.Date, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date FROM event_exceptions WHERE event_id = ? ORDER BY date`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []civil.Date
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		d, err := civil.ParseDate(v)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func decode(r rawEvent, ex []civil.Date) (Record, error) {
	loc, err := civil.LoadZone(r.zone)
	if err != nil {
		return Record{}, err
	}
	start, err := civil.Parse(r.startLocal, loc)
	if err != nil {
		return Record{}, err
	}
	rec := Record{ID: r.id, Title: r.title, Notes: r.notes, Start: start, AllDay: r.allDay != 0}
	if r.endLocal.Valid {
		end, err := civil.Parse(r.endLocal.String, loc)
		if err != nil {
			return Record{}, err
		}
		rec.End = &end
	}
	rec.Rule, err = recurrence.ParseRRule(r.rrule, ex, start.Date, loc)
	if err != nil {
		return Record{}, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, r.createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, r.updatedAt)
	return rec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
