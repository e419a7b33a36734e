package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/tutorly/internal/model"
)

// documentRepo implements DocumentRepo with JSON columns in SQLite.
type documentRepo struct {
	db *sql.DB
}

func (r *documentRepo) LoadConversations(ctx context.Context, userID string) (map[model.Subject][]model.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT subject, messages FROM conversations WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	out := make(map[model.Subject][]model.ChatMessage)
	for rows.Next() {
		var subject, raw string
		if err := rows.Scan(&subject, &raw); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		var msgs []model.ChatMessage
		if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
			return nil, fmt.Errorf("decode conversation %q: %w", subject, err)
		}
		out[model.Subject(subject)] = msgs
	}
	return out, rows.Err()
}

func (r *documentRepo) SaveConversation(ctx context.Context, userID string, subject model.Subject, msgs []model.ChatMessage) error {
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO conversations (user_id, subject, messages, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, subject) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at`,
		userID, string(subject), string(raw), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (r *documentRepo) LoadProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM profiles WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	var p model.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

func (r *documentRepo) SaveProfile(ctx context.Context, profile model.Profile) error {
	if profile.UserID == "" {
		return fmt.Errorf("save profile: empty user id")
	}
	profile.UpdatedAt = time.Now().UnixMilli()
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO profiles (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		profile.UserID, string(raw), profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
