package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ceycent/internal/log"
	"ceycent/internal/session"
)

// SessionStore adapts the repository to session.Store.
type SessionStore struct {
	repo *SQLiteRepository
}

func NewSessionStore(repo *SQLiteRepository) *SessionStore {
	return &SessionStore{repo: repo}
}

func (s *SessionStore) Get(ctx context.Context, id string) (session.Session, error) {
	var (
		sess                session.Session
		createdAt, lastSeen int64
	)
	err := s.repo.db.QueryRowContext(ctx,
		`SELECT id, token, username, created_at, last_seen
		   FROM sessions
		  WHERE id = ? AND expires_at > ?`,
		id, toMillis(s.repo.now())).
		Scan(&sess.ID, &sess.Token, &sess.Username, &createdAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("select session: %w", err)
	}
	sess.CreatedAt = fromMillis(createdAt)
	sess.LastSeen = fromMillis(lastSeen)
	return sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess session.Session, ttl time.Duration) error {
	expires := s.repo.now().Add(ttl)
	_, err := s.repo.db.ExecContext(ctx,
		`INSERT INTO sessions (id, token, username, created_at, last_seen, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     token = excluded.token,
		     username = excluded.username,
		     last_seen = excluded.last_seen,
		     expires_at = excluded.expires_at`,
		sess.ID, sess.Token, sess.Username,
		toMillis(sess.CreatedAt), toMillis(sess.LastSeen), toMillis(expires))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Refresh extends a live session. A deleted or expired row is left alone.
func (s *SessionStore) Refresh(ctx context.Context, sess session.Session, ttl time.Duration) error {
	now := s.repo.now()
	res, err := s.repo.db.ExecContext(ctx,
		`UPDATE sessions
		    SET last_seen = ?, expires_at = ?
		  WHERE id = ? AND expires_at > ?`,
		toMillis(sess.LastSeen), toMillis(now.Add(ttl)), sess.ID, toMillis(now))
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanExpired removes expired sessions so the cache manager can sweep
// this store alongside the in-memory caches.
func (s *SessionStore) CleanExpired() int {
	res, err := s.repo.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, toMillis(s.repo.now()))
	if err != nil {
		s.repo.logger.Error("Failed to clean expired sessions",
			log.NewFields().WithOperation(log.OpDelete).WithError(err).ToSlice()...)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}
