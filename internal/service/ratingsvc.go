package service

import (
	"context"

	"skillswap/internal/domain"
)

type RatingStore interface {
	GetRatingForUpdate(ctx context.Context, userID string) (domain.RatingState, error)
	SetRating(ctx context.Context, userID string, st domain.RatingState) error
}

// RatingService owns the rating fields on users. It only runs inside the
// swap completion transaction.
type RatingService struct {
	Store RatingStore
}

func (s *RatingService) HandleSwapCompleted(ctx context.Context, ev domain.SwapCompletedEvent) error {
	st, err := s.Store.GetRatingForUpdate(ctx, ev.RatedUserID)
	if err != nil {
		return err
	}
	next, err := domain.ApplyRating(st, ev.Rating)
	if err != nil {
		return err
	}
	return s.Store.SetRating(ctx, ev.RatedUserID, next)
}
