package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateTopics bulk-inserts the topics produced by one job in a single
// transaction. The returned count is the number of rows written.
func (s *Store) CreateTopics(ctx context.Context, topics []Topic) (int64, error) {
	if len(topics) == 0 {
		return 0, nil
	}
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	var written int64
	err := retryOnBusy(ctx, func() error {
		written = 0
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin topics tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO topics (job_id, category_id, title, summary, sources_json, published, status, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare topic insert: %w", err)
		}
		defer stmt.Close()

		for _, topic := range topics {
			sources, err := marshalStrings(topic.Sources)
			if err != nil {
				return fmt.Errorf("marshal topic sources: %w", err)
			}
			status := topic.Status
			if status == "" {
				status = TopicPending
			}
			if _, err := stmt.ExecContext(ctx,
				topic.JobID,
				topic.CategoryID,
				topic.Title,
				nullableString(topic.Summary),
				sources,
				nullableString(topic.Published),
				string(status),
				timestamp,
			); err != nil {
				return fmt.Errorf("insert topic: %w", err)
			}
			written++
		}

		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// TopicsByJob returns the topics persisted for a job, oldest first.
func (s *Store) TopicsByJob(ctx context.Context, jobID int64) ([]Topic, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, job_id, category_id, title, summary, sources_json, published, status, created_at
         FROM topics WHERE job_id = ? ORDER BY id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("topics by job: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		var (
			topic      Topic
			summary    sql.NullString
			sources    sql.NullString
			published  sql.NullString
			status     string
			createdRaw sql.NullString
		)
		if err := rows.Scan(&topic.ID, &topic.JobID, &topic.CategoryID, &topic.Title, &summary, &sources, &published, &status, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topic.Summary = summary.String
		topic.Sources = unmarshalStrings(sources.String)
		topic.Published = published.String
		topic.Status = TopicStatus(status)
		if created, err := parseTimeString(createdRaw.String); err == nil {
			topic.CreatedAt = created
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}
