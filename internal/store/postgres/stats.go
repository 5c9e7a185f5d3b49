package postgres

import (
	"context"
	"fmt"
	"time"

	"skillswap/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
)

type StatsStore struct {
	db *DB
}

func NewStatsStore(db *DB) *StatsStore {
	return &StatsStore{db: db}
}

// UserSwapStats counts the requests where userID is either party, by
// status.
func (s *StatsStore) UserSwapStats(ctx context.Context, userID string) (domain.SwapStats, error) {
	var st domain.SwapStats
	if !validID(userID) {
		return st, nil
	}
	const q = `
		SELECT status, count(*)
		FROM swap_requests
		WHERE requester_id = $1 OR receiver_id = $1
		GROUP BY status
	`
	if err := s.countByStatus(ctx, &st, q, userID); err != nil {
		return domain.SwapStats{}, fmt.Errorf("user swap stats: %w", err)
	}
	return st, nil
}

func (s *StatsStore) countByStatus(ctx context.Context, st *domain.SwapStats, q string, args ...any) error {
	rows, err := s.db.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return err
		}
		st.Add(domain.SwapStatus(status), n)
	}
	return rows.Err()
}

func (s *StatsStore) PlatformStats(ctx context.Context, now time.Time) (domain.PlatformStats, error) {
	var ps domain.PlatformStats

	const usersQ = `
		SELECT
			count(*),
			count(*) FILTER (WHERE is_public AND NOT is_banned),
			count(*) FILTER (WHERE is_banned),
			count(*) FILTER (WHERE is_admin)
		FROM users
	`
	if err := s.db.conn(ctx).QueryRow(ctx, usersQ).Scan(
		&ps.Users.Total, &ps.Users.Public, &ps.Users.Banned, &ps.Users.Admins,
	); err != nil {
		return ps, fmt.Errorf("platform user counts: %w", err)
	}

	if err := s.countByStatus(ctx, &ps.Swaps, `SELECT status, count(*) FROM swap_requests GROUP BY status`); err != nil {
		return ps, fmt.Errorf("platform swap counts: %w", err)
	}

	const annQ = `
		SELECT count(*) FROM announcements
		WHERE is_active AND (expires_at IS NULL OR expires_at > $1)
	`
	if err := s.db.conn(ctx).QueryRow(ctx, annQ, now).Scan(&ps.ActiveAnnouncements); err != nil {
		return ps, fmt.Errorf("platform announcement count: %w", err)
	}

	var err error
	if ps.TopSkillsOffered, err = s.topSkills(ctx, "skills_offered"); err != nil {
		return ps, err
	}
	if ps.TopSkillsWanted, err = s.topSkills(ctx, "skills_wanted"); err != nil {
		return ps, err
	}
	return ps, nil
}

// topSkills ranks the ten most listed skills in column among users who are
// not banned. column is always a constant from this file.
func (s *StatsStore) topSkills(ctx context.Context, column string) ([]domain.SkillCount, error) {
	q := `
		SELECT skill, count(*) AS n
		FROM users, unnest(` + column + `) AS skill
		WHERE NOT is_banned
		GROUP BY skill
		ORDER BY n DESC, skill ASC
		LIMIT 10
	`
	rows, err := s.db.conn(ctx).Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("top %s: %w", column, err)
	}
	defer rows.Close()

	out := []domain.SkillCount{}
	for rows.Next() {
		var sc domain.SkillCount
		if err := rows.Scan(&sc.Skill, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan %s: %w", column, err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// ActivityReport lists users by swap volume, busiest first.
func (s *StatsStore) ActivityReport(ctx context.Context, limit, offset int) ([]domain.ActivityRow, error) {
	const q = `
		SELECT
			u.id, u.name, u.profile_photo, u.rating::float8, u.email, u.is_banned, u.total_ratings,
			count(sr.id),
			count(sr.id) FILTER (WHERE sr.status = 'pending'),
			count(sr.id) FILTER (WHERE sr.status = 'accepted'),
			count(sr.id) FILTER (WHERE sr.status = 'rejected'),
			count(sr.id) FILTER (WHERE sr.status = 'completed'),
			count(sr.id) FILTER (WHERE sr.status = 'cancelled')
		FROM users u
		LEFT JOIN swap_requests sr ON sr.requester_id = u.id OR sr.receiver_id = u.id
		GROUP BY u.id
		ORDER BY count(sr.id) DESC, u.created_at ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.db.conn(ctx).Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("activity report: %w", err)
	}
	defer rows.Close()

	out := []domain.ActivityRow{}
	for rows.Next() {
		var (
			row domain.ActivityRow
			id  pgtype.UUID
			sw  = &row.Swaps
		)
		if err := rows.Scan(
			&id, &row.User.Name, &row.User.ProfilePhoto, &row.User.Rating, &row.Email, &row.IsBanned, &row.TotalRatings,
			&sw.Total, &sw.Pending, &sw.Accepted, &sw.Rejected, &sw.Completed, &sw.Cancelled,
		); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		row.User.ID = uuidOrEmpty(id)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activity report: %w", err)
	}
	return out, nil
}
