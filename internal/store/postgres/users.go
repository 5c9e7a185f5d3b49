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

const userColumns = `
	id, email, name, location, bio, profile_photo,
	skills_offered, skills_wanted, availability,
	is_public, is_admin, is_banned, banned_at,
	rating::float8, total_ratings, rating_sum,
	created_at, updated_at, last_login_at`

// scanUser reads userColumns followed by any extra destinations.
func scanUser(row pgx.Row, extra ...any) (domain.User, error) {
	var (
		u         domain.User
		id        pgtype.UUID
		bannedAt  pgtype.Timestamptz
		lastLogin pgtype.Timestamptz
	)
	dest := []any{
		&id, &u.Email, &u.Name, &u.Location, &u.Bio, &u.ProfilePhoto,
		&u.SkillsOffered, &u.SkillsWanted, &u.Availability,
		&u.IsPublic, &u.IsAdmin, &u.IsBanned, &bannedAt,
		&u.Rating, &u.TotalRatings, &u.RatingSum,
		&u.CreatedAt, &u.UpdatedAt, &lastLogin,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.User{}, err
	}
	u.ID = uuidOrEmpty(id)
	u.BannedAt = timestamptzPtr(bannedAt)
	u.LastLoginAt = timestamptzPtr(lastLogin)
	u.SkillsOffered = nonNil(u.SkillsOffered)
	u.SkillsWanted = nonNil(u.SkillsWanted)
	u.Availability = nonNil(u.Availability)
	return u, nil
}

func collectUsers(rows pgx.Rows, op string) ([]domain.User, error) {
	defer rows.Close()
	out := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan user: %w", op, err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

type UsersStore struct {
	db *DB
}

func NewUsersStore(db *DB) *UsersStore {
	return &UsersStore{db: db}
}

// CreateUser inserts a user. An empty passwordHash stores NULL, which no
// password can match.
func (s *UsersStore) CreateUser(ctx context.Context, email, name, passwordHash string) (domain.User, error) {
	q := `
		INSERT INTO users (email, name, password_hash)
		VALUES (lower($1), $2, $3)
		RETURNING ` + userColumns

	u, err := scanUser(s.db.conn(ctx).QueryRow(ctx, q, email, name, nullIfEmpty(passwordHash)))
	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == "users_email_uq" {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	if !validID(id) {
		return domain.User{}, domain.ErrNotFound
	}
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.db.conn(ctx).QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	q := `SELECT ` + userColumns + `, password_hash FROM users WHERE lower(email) = lower($1)`

	var hash pgtype.Text
	u, err := scanUser(s.db.conn(ctx).QueryRow(ctx, q, email), &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by email: %w", err)
	}
	return domain.UserWithPassword{User: u, PasswordHash: textOrEmpty(hash)}, nil
}

func (s *UsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	const q = `UPDATE users SET last_login_at = $2 WHERE id = $1`
	if _, err := s.db.conn(ctx).Exec(ctx, q, userID, when); err != nil {
		return fmt.Errorf("set last login: %w", err)
	}
	return nil
}

func (s *UsersStore) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	if _, err := s.db.conn(ctx).Exec(ctx, q, userID, passwordHash); err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return nil
}

func (s *UsersStore) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	const q = `UPDATE users SET is_admin = $2, updated_at = now() WHERE id = $1`
	tag, err := s.db.conn(ctx).Exec(ctx, q, userID, isAdmin)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateProfile applies the non-nil fields of p. The skill and
// availability lists are replaced only when their Set flag is true.
func (s *UsersStore) UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate) (domain.User, error) {
	if !validID(userID) {
		return domain.User{}, domain.ErrNotFound
	}
	q := `
		UPDATE users SET
			name           = COALESCE($2, name),
			location       = COALESCE($3, location),
			bio            = COALESCE($4, bio),
			profile_photo  = COALESCE($5, profile_photo),
			is_public      = COALESCE($6, is_public),
			skills_offered = CASE WHEN $7 THEN $8::text[] ELSE skills_offered END,
			skills_wanted  = CASE WHEN $9 THEN $10::text[] ELSE skills_wanted END,
			availability   = CASE WHEN $11 THEN $12::text[] ELSE availability END,
			updated_at     = now()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(s.db.conn(ctx).QueryRow(ctx, q,
		userID,
		p.Name, p.Location, p.Bio, p.ProfilePhoto, p.IsPublic,
		p.SetSkillsOffered, nonNil(p.SkillsOffered),
		p.SetSkillsWanted, nonNil(p.SkillsWanted),
		p.SetAvailability, nonNil(p.Availability),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}
