package service

import (
	"context"
	"log/slog"

	"skillswap/internal/domain"
)

type ProfileStore interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate) (domain.User, error)
}

type ProfileService struct {
	Users  ProfileStore
	Stats  StatsInvalidator
	Logger *slog.Logger
}

func (s *ProfileService) Me(ctx context.Context, userID string) (domain.User, error) {
	return s.Users.GetUserByID(ctx, userID)
}

// Update applies a partial profile edit. Field errors are collected and
// returned together.
func (s *ProfileService) Update(ctx context.Context, userID string, p domain.ProfileUpdate) (domain.User, error) {
	if err := p.Normalize(); err != nil {
		return domain.User{}, err
	}
	u, err := s.Users.UpdateProfile(ctx, userID, p)
	if err != nil {
		return domain.User{}, err
	}
	if s.Stats != nil && (p.SetSkillsOffered || p.SetSkillsWanted || p.IsPublic != nil) {
		if err := s.Stats.Invalidate(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("stats cache invalidate failed", "err", err)
		}
	}
	return u, nil
}
