// Package storage persists run bookkeeping and rendered report slots in an
// embedded sqlite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"eriehall.dev/gapfinder/engine"
)

// Run status values.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	started_at TIMESTAMP,
	completed_at TIMESTAMP,
	slots_found INTEGER NOT NULL DEFAULT 0,
	records_skipped INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS report_slots (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES runs(id),
	court TEXT NOT NULL,
	slot_date TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	duration_hours REAL NOT NULL,
	label TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS report_slots_unique
	ON report_slots (run_id, court, slot_date, start_time, label);
`

// Store wraps the sqlite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a pending run record and returns its id.
func (s *Store) CreateRun(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, status, created_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, id, StatusPending)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// UpdateRun moves a run through its lifecycle. started_at is stamped on the
// transition to running, completed_at on completed or failed.
func (s *Store) UpdateRun(ctx context.Context, runID, status string, slotsFound, recordsSkipped int, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			status = ?,
			slots_found = ?,
			records_skipped = ?,
			error_message = ?,
			started_at = CASE WHEN ? = 'running' THEN CURRENT_TIMESTAMP ELSE started_at END,
			completed_at = CASE WHEN ? IN ('completed', 'failed') THEN CURRENT_TIMESTAMP ELSE completed_at END
		WHERE id = ?
	`, status, slotsFound, recordsSkipped, errMsg, status, status, runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// SaveReport stores every rendered slot of the report under runID and
// returns how many rows were written. A slot that fails to insert is logged
// and skipped; the rest of the report is still saved.
func (s *Store) SaveReport(ctx context.Context, runID string, rep *engine.Report) (int, error) {
	saved := 0
	for court, days := range rep.Courts {
		for _, day := range days {
			for _, slot := range day.Slots {
				_, err := s.db.ExecContext(ctx, `
					INSERT INTO report_slots
						(id, run_id, court, slot_date, start_time, end_time, duration_hours, label)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT DO NOTHING
				`, uuid.New().String(), runID, court, day.Date, slot.Start, slot.End, slot.DurationHours, slot.Label)
				if err != nil {
					slog.Warn("failed to save slot", "court", court, "date", day.Date, "error", err)
					continue
				}
				saved++
			}
		}
	}
	return saved, nil
}

// Run is one row of run bookkeeping.
type Run struct {
	ID             string
	Status         string
	SlotsFound     int
	RecordsSkipped int
	ErrorMessage   string
	CreatedAt      time.Time
}

// LatestRun returns the most recent run, or nil when none exist.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, slots_found, records_skipped, error_message, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT 1
	`)
	var r Run
	if err := row.Scan(&r.ID, &r.Status, &r.SlotsFound, &r.RecordsSkipped, &r.ErrorMessage, &r.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	return &r, nil
}

// SlotsForRun loads the saved slots of one run, date then start ordered.
type SavedSlot struct {
	Court         string
	Date          string
	Start         string
	End           string
	DurationHours float64
	Label         string
}

func (s *Store) SlotsForRun(ctx context.Context, runID string) ([]SavedSlot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT court, slot_date, start_time, end_time, duration_hours, label
		FROM report_slots WHERE run_id = ?
		ORDER BY court, slot_date, start_time
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	var slots []SavedSlot
	for rows.Next() {
		var sl SavedSlot
		if err := rows.Scan(&sl.Court, &sl.Date, &sl.Start, &sl.End, &sl.DurationHours, &sl.Label); err != nil {
			slog.Warn("failed to scan slot row", "error", err)
			continue
		}
		slots = append(slots, sl)
	}
	return slots, rows.Err()
}
