package postgres

import (
	"context"
	"fmt"
	"time"

	"skillswap/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
)

type NotificationTokensStore struct {
	db *DB
}

func NewNotificationTokensStore(db *DB) *NotificationTokensStore {
	return &NotificationTokensStore{db: db}
}

// UpsertToken registers token for userID. A token already registered to
// another user moves to userID.
func (s *NotificationTokensStore) UpsertToken(ctx context.Context, userID, token, platform string, when time.Time) (domain.NotificationToken, error) {
	const q = `
		INSERT INTO notification_tokens (user_id, token, platform, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (token)
		DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, token, platform, created_at, updated_at
	`
	var (
		t        domain.NotificationToken
		id, user pgtype.UUID
	)
	err := s.db.conn(ctx).QueryRow(ctx, q, userID, token, platform, when).Scan(
		&id, &user, &t.Token, &t.Platform, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.NotificationToken{}, fmt.Errorf("upsert notification token: %w", err)
	}
	t.ID = uuidOrEmpty(id)
	t.UserID = uuidOrEmpty(user)
	return t, nil
}

func (s *NotificationTokensStore) DeleteToken(ctx context.Context, userID, token string) error {
	const q = `DELETE FROM notification_tokens WHERE user_id = $1 AND token = $2`
	if _, err := s.db.conn(ctx).Exec(ctx, q, userID, token); err != nil {
		return fmt.Errorf("delete notification token: %w", err)
	}
	return nil
}

// DeleteTokenValue drops a token regardless of owner. Used when the push
// provider reports it as unregistered.
func (s *NotificationTokensStore) DeleteTokenValue(ctx context.Context, token string) error {
	if _, err := s.db.conn(ctx).Exec(ctx, `DELETE FROM notification_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete notification token: %w", err)
	}
	return nil
}

func (s *NotificationTokensStore) ListTokens(ctx context.Context, userID string) ([]domain.NotificationToken, error) {
	const q = `
		SELECT id, user_id, token, platform, created_at, updated_at
		FROM notification_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := s.db.conn(ctx).Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list notification tokens: %w", err)
	}
	defer rows.Close()

	var out []domain.NotificationToken
	for rows.Next() {
		var (
			t        domain.NotificationToken
			id, user pgtype.UUID
		)
		if err := rows.Scan(&id, &user, &t.Token, &t.Platform, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan notification token: %w", err)
		}
		t.ID = uuidOrEmpty(id)
		t.UserID = uuidOrEmpty(user)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notification tokens: %w", err)
	}
	return out, nil
}
