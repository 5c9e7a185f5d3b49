package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/domain"
)

type mapRatingStore map[string]domain.RatingState

func (m mapRatingStore) GetRatingForUpdate(_ context.Context, userID string) (domain.RatingState, error) {
	st, ok := m[userID]
	if !ok {
		return domain.RatingState{}, domain.ErrNotFound
	}
	return st, nil
}

func (m mapRatingStore) SetRating(_ context.Context, userID string, st domain.RatingState) error {
	m[userID] = st
	return nil
}

func TestHandleSwapCompletedFoldsRating(t *testing.T) {
	store := mapRatingStore{"bob": {Rating: 4.0, TotalRatings: 1, RatingSum: 4}}
	svc := &RatingService{Store: store}

	err := svc.HandleSwapCompleted(context.Background(), domain.SwapCompletedEvent{
		RequestID:   "swap-1",
		RatedUserID: "bob",
		Rating:      5,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RatingState{Rating: 4.5, TotalRatings: 2, RatingSum: 9}, store["bob"])
}

func TestHandleSwapCompletedRejectsBadInput(t *testing.T) {
	store := mapRatingStore{"bob": {Rating: domain.DefaultRating}}
	svc := &RatingService{Store: store}

	err := svc.HandleSwapCompleted(context.Background(), domain.SwapCompletedEvent{RatedUserID: "bob", Rating: 6})
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, 0, store["bob"].TotalRatings)

	err = svc.HandleSwapCompleted(context.Background(), domain.SwapCompletedEvent{RatedUserID: "ghost", Rating: 3})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
