package postgres

import (
	"context"
	"fmt"
	"strings"

	"skillswap/internal/domain"
)

// likePattern escapes LIKE metacharacters in s and wraps it in wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

type DirectoryStore struct {
	db *DB
}

func NewDirectoryStore(db *DB) *DirectoryStore {
	return &DirectoryStore{db: db}
}

// SearchDirectory pages through public, non-banned users matching q.
// q.Page is 1-based and q.Limit must already be clamped by the caller.
func (s *DirectoryStore) SearchDirectory(ctx context.Context, q domain.DirectoryQuery) ([]domain.User, int, error) {
	where := []string{"is_public", "NOT is_banned"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.ExcludeUserID != "" && validID(q.ExcludeUserID) {
		where = append(where, "id <> "+arg(q.ExcludeUserID))
	}
	if v := strings.TrimSpace(q.Q); v != "" {
		p := arg(likePattern(v))
		where = append(where, "(name ILIKE "+p+" OR bio ILIKE "+p+
			" OR EXISTS (SELECT 1 FROM unnest(skills_offered || skills_wanted) sk WHERE sk ILIKE "+p+"))")
	}
	if v := strings.TrimSpace(q.Skill); v != "" {
		p := arg(v)
		where = append(where, "EXISTS (SELECT 1 FROM unnest(skills_offered || skills_wanted) sk WHERE lower(sk) = lower("+p+"))")
	}
	if v := strings.TrimSpace(q.Location); v != "" {
		where = append(where, "location ILIKE "+arg(likePattern(v)))
	}
	if v := strings.TrimSpace(q.Availability); v != "" {
		where = append(where, arg(strings.ToLower(v))+" = ANY(availability)")
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := s.db.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM users`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count directory: %w", err)
	}

	offset := (q.Page - 1) * q.Limit
	sql := `SELECT ` + userColumns + ` FROM users` + cond +
		` ORDER BY rating DESC, created_at DESC, id LIMIT ` + arg(q.Limit) + ` OFFSET ` + arg(offset)

	rows, err := s.db.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search directory: %w", err)
	}
	users, err := collectUsers(rows, "search directory")
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
