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

const announcementColumns = `id, title, message, type, is_active, created_by, expires_at, created_at, updated_at`

func scanAnnouncement(row pgx.Row) (domain.Announcement, error) {
	var (
		a         domain.Announcement
		id, by    pgtype.UUID
		expiresAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &a.Title, &a.Message, &a.Type, &a.IsActive, &by, &expiresAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return domain.Announcement{}, err
	}
	a.ID = uuidOrEmpty(id)
	a.CreatedBy = uuidOrEmpty(by)
	a.ExpiresAt = timestamptzPtr(expiresAt)
	return a, nil
}

type AnnouncementsStore struct {
	db *DB
}

func NewAnnouncementsStore(db *DB) *AnnouncementsStore {
	return &AnnouncementsStore{db: db}
}

func (s *AnnouncementsStore) CreateAnnouncement(ctx context.Context, createdBy string, in domain.AnnouncementInput) (domain.Announcement, error) {
	q := `
		INSERT INTO announcements (title, message, type, created_by, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + announcementColumns

	a, err := scanAnnouncement(s.db.conn(ctx).QueryRow(ctx, q, in.Title, in.Message, in.Type, nullIfEmpty(createdBy), in.ExpiresAt))
	if err != nil {
		return domain.Announcement{}, fmt.Errorf("create announcement: %w", err)
	}
	return a, nil
}

// ListAnnouncements returns all announcements, or only the live ones when
// activeOnly is set.
func (s *AnnouncementsStore) ListAnnouncements(ctx context.Context, activeOnly bool, now time.Time) ([]domain.Announcement, error) {
	q := `SELECT ` + announcementColumns + ` FROM announcements`
	var args []any
	if activeOnly {
		q += ` WHERE is_active AND (expires_at IS NULL OR expires_at > $1)`
		args = append(args, now)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()

	out := []domain.Announcement{}
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return out, nil
}

func (s *AnnouncementsStore) SetAnnouncementActive(ctx context.Context, id string, active bool) (domain.Announcement, error) {
	if !validID(id) {
		return domain.Announcement{}, domain.ErrNotFound
	}
	q := `UPDATE announcements SET is_active = $2, updated_at = now() WHERE id = $1 RETURNING ` + announcementColumns
	a, err := scanAnnouncement(s.db.conn(ctx).QueryRow(ctx, q, id, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Announcement{}, domain.ErrNotFound
		}
		return domain.Announcement{}, fmt.Errorf("set announcement active: %w", err)
	}
	return a, nil
}

func (s *AnnouncementsStore) DeleteAnnouncement(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := s.db.conn(ctx).Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteExpiredAnnouncements removes announcements whose expiry has passed.
func (s *AnnouncementsStore) DeleteExpiredAnnouncements(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.conn(ctx).Exec(ctx, `DELETE FROM announcements WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired announcements: %w", err)
	}
	return tag.RowsAffected(), nil
}
