package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skillswap/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type SessionsStore struct {
	db *DB
}

func NewSessionsStore(db *DB) *SessionsStore {
	return &SessionsStore{db: db}
}

func (s *SessionsStore) CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error) {
	const q = `
		INSERT INTO sessions (user_id, expires_at, ip, user_agent)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id pgtype.UUID
	err := s.db.conn(ctx).QueryRow(ctx, q, userID, expiresAt, nullIfEmpty(ip), nullIfEmpty(userAgent)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return uuidOrEmpty(id), nil
}

func (s *SessionsStore) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if !validID(sessionID) {
		return domain.Session{}, domain.ErrNotFound
	}
	const q = `
		SELECT id, user_id, created_at, expires_at, revoked_at
		FROM sessions
		WHERE id = $1 AND revoked_at IS NULL AND expires_at > now()
	`

	var (
		sess    domain.Session
		id      pgtype.UUID
		userID  pgtype.UUID
		revoked pgtype.Timestamptz
	)
	err := s.db.conn(ctx).QueryRow(ctx, q, sessionID).Scan(&id, &userID, &sess.CreatedAt, &sess.ExpiresAt, &revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}

	sess.ID = uuidOrEmpty(id)
	sess.UserID = uuidOrEmpty(userID)
	sess.RevokedAt = timestamptzPtr(revoked)
	return sess, nil
}

func (s *SessionsStore) RevokeSession(ctx context.Context, sessionID string, when time.Time) error {
	if !validID(sessionID) {
		return nil
	}
	const q = `UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	if _, err := s.db.conn(ctx).Exec(ctx, q, sessionID, when); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeUserSessions revokes every live session of userID and returns how
// many were revoked.
func (s *SessionsStore) RevokeUserSessions(ctx context.Context, userID string, when time.Time) (int64, error) {
	const q = `UPDATE sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	tag, err := s.db.conn(ctx).Exec(ctx, q, userID, when)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
