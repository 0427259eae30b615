package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Counts summarizes what a run did.
type Counts struct {
	New      int `json:"new"`
	Revised  int `json:"revised"`
	Changed  int `json:"changed"`
	Obsolete int `json:"obsolete"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// Run is one journal entry.
type Run struct {
	ID         string    `json:"id"`
	Directory  string    `json:"directory"`
	Type       string    `json:"type"`
	Number     int       `json:"number"`
	First      bool      `json:"first_delivery"`
	Status     Status    `json:"status"`
	Counts     Counts    `json:"counts"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns how long a finished run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

const runColumns = `id, directory, delivery_type, delivery_number, first_delivery, status,
    new_count, revised_count, changed_count, obsolete_count, archived_count, failed_count,
    error_message, started_at, finished_at`

// Begin records a run as started and returns it with its assigned ID.
func (s *Store) Begin(ctx context.Context, directory, deliveryType string, number int, first bool) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Directory: directory,
		Type:      deliveryType,
		Number:    number,
		First:     first,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, directory, delivery_type, delivery_number, first_delivery, status, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Directory,
		run.Type,
		run.Number,
		boolToInt(run.First),
		run.Status,
		run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Finish stores the outcome of a run. A non-nil runErr marks it failed.
func (s *Store) Finish(ctx context.Context, id string, counts Counts, runErr error) error {
	status := StatusCompleted
	var message any
	if runErr != nil {
		status = StatusFailed
		message = runErr.Error()
	}
	res, err := s.exec(ctx,
		`UPDATE runs
         SET status = ?, new_count = ?, revised_count = ?, changed_count = ?, obsolete_count = ?,
             archived_count = ?, failed_count = ?, error_message = ?, finished_at = ?
         WHERE id = ?`,
		status,
		counts.New,
		counts.Revised,
		counts.Changed,
		counts.Obsolete,
		counts.Archived,
		counts.Failed,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: unknown id %s", id)
	}
	return nil
}

// Get fetches a run by ID. A missing run returns (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Recent lists the newest runs first, optionally restricted to a directory.
func (s *Store) Recent(ctx context.Context, directory string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if strings.TrimSpace(directory) != "" {
		query += ` WHERE directory = ?`
		args = append(args, directory)
	}
	query += ` ORDER BY started_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run      Run
		first    int
		status   string
		message  sql.NullString
		started  string
		finished sql.NullString
	)
	if err := row.Scan(
		&run.ID,
		&run.Directory,
		&run.Type,
		&run.Number,
		&first,
		&status,
		&run.Counts.New,
		&run.Counts.Revised,
		&run.Counts.Changed,
		&run.Counts.Obsolete,
		&run.Counts.Archived,
		&run.Counts.Failed,
		&message,
		&started,
		&finished,
	); err != nil {
		return nil, err
	}
	run.First = first != 0
	run.Status = Status(status)
	run.Error = message.String
	run.StartedAt = parseTime(started)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	return &run, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
