package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateArticle persists a drafted and reviewed article.
func (s *Store) CreateArticle(ctx context.Context, article Article) (*Article, error) {
	tags, err := marshalStrings(article.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal article tags: %w", err)
	}
	sources, err := marshalStrings(article.Sources)
	if err != nil {
		return nil, fmt.Errorf("marshal article sources: %w", err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO articles (
            job_id, topic_id, category_id, user_id, title, summary, content,
            tags_json, sources_json, status, accuracy, reasoning, feedback, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		article.JobID,
		article.TopicID,
		article.CategoryID,
		nullableString(article.UserID),
		article.Title,
		nullableString(article.Summary),
		article.Content,
		tags,
		sources,
		article.Status,
		article.Accuracy,
		nullableString(article.Reasoning),
		nullableString(article.Feedback),
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert article: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetArticle(ctx, id)
}

// GetArticle fetches an article by identifier. Returns nil when absent.
func (s *Store) GetArticle(ctx context.Context, id int64) (*Article, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id, job_id, topic_id, category_id, user_id, title, summary, content,
                tags_json, sources_json, status, accuracy, reasoning, feedback, created_at
         FROM articles WHERE id = ?`,
		id,
	)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return article, nil
}

// ArticleByJob returns the article persisted for a job, if any.
func (s *Store) ArticleByJob(ctx context.Context, jobID int64) (*Article, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id, job_id, topic_id, category_id, user_id, title, summary, content,
                tags_json, sources_json, status, accuracy, reasoning, feedback, created_at
         FROM articles WHERE job_id = ? ORDER BY id DESC LIMIT 1`,
		jobID,
	)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("article by job: %w", err)
	}
	return article, nil
}

func scanArticle(scanner interface{ Scan(dest ...any) error }) (*Article, error) {
	var (
		article    Article
		topicID    sql.NullInt64
		userID     sql.NullString
		summary    sql.NullString
		tags       sql.NullString
		sources    sql.NullString
		accuracy   sql.NullInt64
		reasoning  sql.NullString
		feedback   sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(
		&article.ID,
		&article.JobID,
		&topicID,
		&article.CategoryID,
		&userID,
		&article.Title,
		&summary,
		&article.Content,
		&tags,
		&sources,
		&article.Status,
		&accuracy,
		&reasoning,
		&feedback,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	article.TopicID = topicID.Int64
	article.UserID = userID.String
	article.Summary = summary.String
	article.Tags = unmarshalStrings(tags.String)
	article.Sources = unmarshalStrings(sources.String)
	article.Accuracy = int(accuracy.Int64)
	article.Reasoning = reasoning.String
	article.Feedback = feedback.String
	if created, err := parseTimeString(createdRaw.String); err == nil {
		article.CreatedAt = created
	}
	return &article, nil
}
