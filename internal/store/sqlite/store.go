// Package sqlite provides a SQLite-backed RecordStore so job results survive
// process restarts.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/echelon/internal/advisory"
	"github.com/talgya/echelon/internal/market"
	"github.com/talgya/echelon/internal/store"
)

// Store wraps a SQLite connection. The market state and report are stored
// as JSON columns; everything queried on lives in its own column.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates the database at path and runs migrations.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL,
		idea TEXT NOT NULL,
		region TEXT NOT NULL,
		created_at TEXT NOT NULL,
		completed_at TEXT,
		market_state_json TEXT,
		report_json TEXT,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	`
	_, err := s.conn.Exec(schema)
	return err
}

type row struct {
	ID          string         `db:"id"`
	Status      string         `db:"status"`
	Progress    int            `db:"progress"`
	Idea        string         `db:"idea"`
	Region      string         `db:"region"`
	CreatedAt   string         `db:"created_at"`
	CompletedAt sql.NullString `db:"completed_at"`
	StateJSON   sql.NullString `db:"market_state_json"`
	ReportJSON  sql.NullString `db:"report_json"`
	Error       string         `db:"error"`
}

func encodeRecord(rec *store.Record) (*row, error) {
	r := &row{
		ID:        rec.ID,
		Status:    string(rec.Status),
		Progress:  rec.Progress,
		Idea:      rec.Idea,
		Region:    rec.Region,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		Error:     rec.Error,
	}
	if rec.CompletedAt != nil {
		r.CompletedAt = sql.NullString{String: rec.CompletedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	if rec.MarketState != nil {
		b, err := json.Marshal(rec.MarketState)
		if err != nil {
			return nil, fmt.Errorf("marshal market state: %w", err)
		}
		r.StateJSON = sql.NullString{String: string(b), Valid: true}
	}
	if rec.Report != nil {
		b, err := json.Marshal(rec.Report)
		if err != nil {
			return nil, fmt.Errorf("marshal report: %w", err)
		}
		r.ReportJSON = sql.NullString{String: string(b), Valid: true}
	}
	return r, nil
}

func (r *row) decode() (*store.Record, error) {
	created, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	rec := &store.Record{
		ID:        r.ID,
		Status:    store.Status(r.Status),
		Progress:  r.Progress,
		Idea:      r.Idea,
		Region:    r.Region,
		CreatedAt: created,
		Error:     r.Error,
	}
	if r.CompletedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, r.CompletedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		rec.CompletedAt = &t
	}
	if r.StateJSON.Valid {
		var state market.State
		if err := json.Unmarshal([]byte(r.StateJSON.String), &state); err != nil {
			return nil, fmt.Errorf("unmarshal market state: %w", err)
		}
		rec.MarketState = &state
	}
	if r.ReportJSON.Valid {
		var report advisory.Report
		if err := json.Unmarshal([]byte(r.ReportJSON.String), &report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		rec.Report = &report
	}
	return rec, nil
}

func (s *Store) Create(rec *store.Record) error {
	r, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	var exists int
	if err := s.conn.Get(&exists, "SELECT COUNT(*) FROM jobs WHERE id = ?", rec.ID); err != nil {
		return fmt.Errorf("check id: %w", err)
	}
	if exists > 0 {
		return store.ErrDuplicateID
	}

	_, err = s.conn.NamedExec(`INSERT INTO jobs
		(id, status, progress, idea, region, created_at, completed_at, market_state_json, report_json, error)
		VALUES (:id, :status, :progress, :idea, :region, :created_at, :completed_at, :market_state_json, :report_json, :error)`, r)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) Get(id string) (*store.Record, error) {
	var r row
	err := s.conn.Get(&r, "SELECT * FROM jobs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select job %s: %w", id, err)
	}
	return r.decode()
}

func (s *Store) Update(rec *store.Record) error {
	r, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	res, err := s.conn.NamedExec(`UPDATE jobs SET
		status = :status, progress = :progress, idea = :idea, region = :region,
		completed_at = :completed_at, market_state_json = :market_state_json,
		report_json = :report_json, error = :error
		WHERE id = :id`, r)
	if err != nil {
		return fmt.Errorf("update job %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %s: %w", rec.ID, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
