package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// authRepo implements AuthRepo on SQLite.
type authRepo struct {
	db *sql.DB
}

func (r *authRepo) SaveLink(ctx context.Context, link SignInLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO sign_in_links
		(id, secret_hash, email, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		link.ID, link.SecretHash, link.Email, link.ExpiresAt.UnixMilli(), link.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save sign-in link: %w", err)
	}
	return nil
}

func (r *authRepo) GetLink(ctx context.Context, id string) (*SignInLink, error) {
	var (
		link             SignInLink
		expires, created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, secret_hash, email, expires_at, created_at FROM sign_in_links WHERE id = ?`, id,
	).Scan(&link.ID, &link.SecretHash, &link.Email, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sign-in link: %w", err)
	}
	link.ExpiresAt = time.UnixMilli(expires)
	link.CreatedAt = time.UnixMilli(created)
	return &link, nil
}

func (r *authRepo) DeleteLink(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sign_in_links WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sign-in link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sign-in link: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *authRepo) SaveSession(ctx context.Context, session Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions
		(token_hash, user_id, email, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		session.TokenHash, session.UserID, session.Email,
		session.ExpiresAt.UnixMilli(), session.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *authRepo) GetSession(ctx context.Context, tokenHash string) (*Session, error) {
	var (
		sess             Session
		expires, created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, email, expires_at, created_at FROM sessions WHERE token_hash = ?`, tokenHash,
	).Scan(&sess.TokenHash, &sess.UserID, &sess.Email, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.ExpiresAt = time.UnixMilli(expires)
	sess.CreatedAt = time.UnixMilli(created)
	return &sess, nil
}

func (r *authRepo) DeleteSession(ctx context.Context, tokenHash string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *authRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"sign_in_links", "sessions"} {
		res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE expires_at < ?`, now.UnixMilli())
		if err != nil {
			return total, fmt.Errorf("delete expired %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}
