package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abhisek/tutorly/internal/model"
)

// quizResultRepo implements QuizResultRepo on SQLite.
type quizResultRepo struct {
	db *sql.DB
}

func (r *quizResultRepo) Save(ctx context.Context, result *QuizResult) error {
	topics := result.FlaggedTopics
	if topics == nil {
		topics = []string{}
	}
	raw, err := json.Marshal(topics)
	if err != nil {
		return fmt.Errorf("marshal flagged topics: %w", err)
	}
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `INSERT INTO quiz_results
		(user_id, subject, score, total, flagged_topics, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		result.UserID, string(result.Subject), result.Score, result.Total, string(raw),
		result.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save quiz result: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		result.ID = id
	}
	return nil
}

func (r *quizResultRepo) Recent(ctx context.Context, userID string, limit int) ([]QuizResult, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, subject, score, total, flagged_topics, finished_at
		FROM quiz_results WHERE user_id = ? ORDER BY finished_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query quiz results: %w", err)
	}
	defer rows.Close()

	var out []QuizResult
	for rows.Next() {
		var (
			qr       QuizResult
			subject  string
			raw      string
			finished int64
		)
		if err := rows.Scan(&qr.ID, &qr.UserID, &subject, &qr.Score, &qr.Total, &raw, &finished); err != nil {
			return nil, fmt.Errorf("scan quiz result: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &qr.FlaggedTopics); err != nil {
			return nil, fmt.Errorf("unmarshal flagged topics: %w", err)
		}
		qr.Subject = model.Subject(subject)
		qr.FinishedAt = time.UnixMilli(finished)
		out = append(out, qr)
	}
	return out, rows.Err()
}

func (r *quizResultRepo) Prune(ctx context.Context, userID string, keep int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM quiz_results WHERE user_id = ? AND id NOT IN (
		SELECT id FROM quiz_results WHERE user_id = ? ORDER BY finished_at DESC, id DESC LIMIT ?)`,
		userID, userID, keep)
	if err != nil {
		return fmt.Errorf("prune quiz results: %w", err)
	}
	return nil
}
