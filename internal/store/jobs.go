package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoTransition indicates a status update matched no row, either because the
// job does not exist or because it was not in the expected state.
var ErrNoTransition = errors.New("no matching job for status transition")

// CreateJob inserts a new job in the queued state.
func (s *Store) CreateJob(ctx context.Context, kind Kind, trigger Trigger, categoryID int64) (*Job, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (kind, status, trigger_source, category_id, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		kind,
		StatusQueued,
		trigger,
		categoryID,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier. Returns nil when the job does not exist.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs ordered newest first, optionally filtered by status.
func (s *Store) ListJobs(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkProcessing transitions a job from queued to processing.
func (s *Store) MarkProcessing(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = NULL, updated_at = ? WHERE id = ? AND status IN (?, ?)`,
		StatusProcessing,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusQueued,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return requireTransition(res)
}

// MarkCompleted finalizes a job and records how many items it produced.
func (s *Store) MarkCompleted(ctx context.Context, id int64, totalItems int64) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = NULL, total_items = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted,
		totalItems,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return requireTransition(res)
}

// MarkArticleCompleted finalizes an article job and bumps its completed count.
func (s *Store) MarkArticleCompleted(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = NULL, completed_items = completed_items + 1, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark article completed: %w", err)
	}
	return requireTransition(res)
}

// MarkFailed finalizes a job with a failure reason.
func (s *Store) MarkFailed(ctx context.Context, id int64, reason string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusFailed,
		nullableString(reason),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
		StatusQueued,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireTransition(res)
}

// ResetForRetry moves a failed job back to queued with the retry trigger so a
// fresh pass can run on the same identifier.
func (s *Store) ResetForRetry(ctx context.Context, id int64) (*Job, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, trigger_source = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusQueued,
		TriggerRetry,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("reset for retry: %w", err)
	}
	if err := requireTransition(res); err != nil {
		return nil, err
	}
	return s.GetJob(ctx, id)
}

// Stats summarizes job counts grouped by status.
func (s *Store) Stats(ctx context.Context) (JobStats, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return JobStats{}, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := JobStats{ByStatus: make(map[Status]int64, len(allStatuses))}
	for rows.Next() {
		var (
			statusStr string
			count     int64
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return JobStats{}, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByStatus[Status(statusStr)] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

func requireTransition(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNoTransition
	}
	return nil
}
