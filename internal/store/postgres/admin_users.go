package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skillswap/internal/domain"

	"github.com/jackc/pgx/v5"
)

type AdminUsersStore struct {
	db *DB
}

func NewAdminUsersStore(db *DB) *AdminUsersStore {
	return &AdminUsersStore{db: db}
}

// ListUsers returns every user, banned and private ones included, newest
// first. A non-empty query filters on name or email.
func (s *AdminUsersStore) ListUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, int, error) {
	cond := ""
	var args []any
	if query = strings.TrimSpace(query); query != "" {
		args = append(args, likePattern(query))
		cond = ` WHERE name ILIKE $1 OR email ILIKE $1`
	}

	var total int
	if err := s.db.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM users`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		userColumns, cond, len(args)-1, len(args))

	rows, err := s.db.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	users, err := collectUsers(rows, "list users")
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SetBanned flips the ban flag. banned_at is stamped on ban and cleared on
// unban.
func (s *AdminUsersStore) SetBanned(ctx context.Context, userID string, banned bool, when time.Time) (domain.User, error) {
	if !validID(userID) {
		return domain.User{}, domain.ErrNotFound
	}
	q := `
		UPDATE users SET
			is_banned = $2,
			banned_at = CASE WHEN $2 THEN COALESCE(banned_at, $3) ELSE NULL END,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(s.db.conn(ctx).QueryRow(ctx, q, userID, banned, when))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("set banned: %w", err)
	}
	return u, nil
}

func (s *AdminUsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return (&UsersStore{db: s.db}).GetUserByID(ctx, id)
}

// GetUserForUpdate locks the user row until the surrounding transaction
// ends, so role changes cannot slip in before a moderation write.
func (s *AdminUsersStore) GetUserForUpdate(ctx context.Context, id string) (domain.User, error) {
	if !validID(id) {
		return domain.User{}, domain.ErrNotFound
	}
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	u, err := scanUser(s.db.conn(ctx).QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("lock user: %w", err)
	}
	return u, nil
}
