package postgres

import (
	"context"
	"errors"
	"fmt"

	"skillswap/internal/domain"

	"github.com/jackc/pgx/v5"
)

type RatingsStore struct {
	db *DB
}

func NewRatingsStore(db *DB) *RatingsStore {
	return &RatingsStore{db: db}
}

// GetRatingForUpdate locks the user's row and returns its rating state.
func (s *RatingsStore) GetRatingForUpdate(ctx context.Context, userID string) (domain.RatingState, error) {
	if !validID(userID) {
		return domain.RatingState{}, domain.ErrNotFound
	}
	const q = `
		SELECT rating::float8, total_ratings, rating_sum
		FROM users
		WHERE id = $1
		FOR UPDATE
	`
	var st domain.RatingState
	err := s.db.conn(ctx).QueryRow(ctx, q, userID).Scan(&st.Rating, &st.TotalRatings, &st.RatingSum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RatingState{}, domain.ErrNotFound
		}
		return domain.RatingState{}, fmt.Errorf("lock user rating: %w", err)
	}
	return st, nil
}

func (s *RatingsStore) SetRating(ctx context.Context, userID string, st domain.RatingState) error {
	const q = `
		UPDATE users
		SET rating = $2, total_ratings = $3, rating_sum = $4, updated_at = now()
		WHERE id = $1
	`
	tag, err := s.db.conn(ctx).Exec(ctx, q, userID, st.Rating, st.TotalRatings, st.RatingSum)
	if err != nil {
		return fmt.Errorf("set user rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
