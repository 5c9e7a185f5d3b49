package service

import (
	"context"
	"log/slog"
	"time"

	"skillswap/internal/domain"
)

type StatsStore interface {
	UserSwapStats(ctx context.Context, userID string) (domain.SwapStats, error)
	PlatformStats(ctx context.Context, now time.Time) (domain.PlatformStats, error)
	ActivityReport(ctx context.Context, limit, offset int) ([]domain.ActivityRow, error)
}

type PlatformStatsCache interface {
	GetPlatformStats(ctx context.Context) (domain.PlatformStats, bool, error)
	SetPlatformStats(ctx context.Context, ps domain.PlatformStats) error
	Invalidate(ctx context.Context) error
}

type StatsService struct {
	Store  StatsStore
	Cache  PlatformStatsCache
	Logger *slog.Logger
	Now    func() time.Time
}

func (s *StatsService) GetUserStats(ctx context.Context, userID string) (domain.SwapStats, error) {
	return s.Store.UserSwapStats(ctx, userID)
}

// PlatformStats serves from the cache when possible. Cache failures fall
// back to the database and are only logged.
func (s *StatsService) PlatformStats(ctx context.Context) (domain.PlatformStats, error) {
	if s.Cache != nil {
		ps, ok, err := s.Cache.GetPlatformStats(ctx)
		if err != nil {
			s.logger().Warn("stats cache read failed", "err", err)
		} else if ok {
			return ps, nil
		}
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ps, err := s.Store.PlatformStats(ctx, now().UTC())
	if err != nil {
		return domain.PlatformStats{}, err
	}

	if s.Cache != nil {
		if err := s.Cache.SetPlatformStats(ctx, ps); err != nil {
			s.logger().Warn("stats cache write failed", "err", err)
		}
	}
	return ps, nil
}

func (s *StatsService) ActivityReport(ctx context.Context, limit, offset int) ([]domain.ActivityRow, error) {
	limit, offset = clampPage(limit, offset, 50, 200)
	return s.Store.ActivityReport(ctx, limit, offset)
}

func (s *StatsService) Invalidate(ctx context.Context) error {
	if s == nil || s.Cache == nil {
		return nil
	}
	return s.Cache.Invalidate(ctx)
}

func (s *StatsService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
