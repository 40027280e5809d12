package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const usageDateLayout = "2006-01-02"

// RecordUsage persists one token accounting row for a job.
func (s *Store) RecordUsage(ctx context.Context, record UsageRecord) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO usage_metrics (
            job_id, trigger_source, date, prompt_tokens, completion_tokens,
            total_tokens, successful_requests, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.JobID,
		record.Trigger,
		record.Date.UTC().Format(usageDateLayout),
		record.PromptTokens,
		record.CompletionTokens,
		record.TotalTokens,
		record.SuccessfulRequests,
		timestamp,
	); err != nil {
		return fmt.Errorf("insert usage metric: %w", err)
	}
	return nil
}

// UsageByJob returns the usage rows recorded for a job, oldest first.
func (s *Store) UsageByJob(ctx context.Context, jobID int64) ([]UsageRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, job_id, trigger_source, date, prompt_tokens, completion_tokens,
                total_tokens, successful_requests, created_at
         FROM usage_metrics WHERE job_id = ? ORDER BY id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("usage by job: %w", err)
	}
	defer rows.Close()

	var records []UsageRecord
	for rows.Next() {
		var (
			record     UsageRecord
			triggerStr string
			dateRaw    string
			createdRaw sql.NullString
		)
		if err := rows.Scan(
			&record.ID,
			&record.JobID,
			&triggerStr,
			&dateRaw,
			&record.PromptTokens,
			&record.CompletionTokens,
			&record.TotalTokens,
			&record.SuccessfulRequests,
			&createdRaw,
		); err != nil {
			return nil, fmt.Errorf("scan usage metric: %w", err)
		}
		record.Trigger = Trigger(triggerStr)
		if date, err := time.ParseInLocation(usageDateLayout, dateRaw, time.UTC); err == nil {
			record.Date = date
		}
		if created, err := parseTimeString(createdRaw.String); err == nil {
			record.CreatedAt = created
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
