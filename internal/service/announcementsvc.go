package service

import (
	"context"
	"log/slog"
	"time"

	"skillswap/internal/domain"
)

type AnnouncementsStore interface {
	CreateAnnouncement(ctx context.Context, createdBy string, in domain.AnnouncementInput) (domain.Announcement, error)
	ListAnnouncements(ctx context.Context, activeOnly bool, now time.Time) ([]domain.Announcement, error)
	SetAnnouncementActive(ctx context.Context, id string, active bool) (domain.Announcement, error)
	DeleteAnnouncement(ctx context.Context, id string) error
	DeleteExpiredAnnouncements(ctx context.Context, now time.Time) (int64, error)
}

type AnnouncementService struct {
	Store  AnnouncementsStore
	Stats  StatsInvalidator
	Logger *slog.Logger
	Now    func() time.Time
}

func (s *AnnouncementService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *AnnouncementService) Create(ctx context.Context, creatorID string, in domain.AnnouncementInput) (domain.Announcement, error) {
	if err := in.Validate(s.now()); err != nil {
		return domain.Announcement{}, err
	}
	a, err := s.Store.CreateAnnouncement(ctx, creatorID, in)
	if err != nil {
		return domain.Announcement{}, err
	}
	s.invalidate(ctx)
	return a, nil
}

// ListActive returns announcements readers should see right now.
func (s *AnnouncementService) ListActive(ctx context.Context) ([]domain.Announcement, error) {
	return s.Store.ListAnnouncements(ctx, true, s.now())
}

func (s *AnnouncementService) ListAll(ctx context.Context) ([]domain.Announcement, error) {
	return s.Store.ListAnnouncements(ctx, false, s.now())
}

func (s *AnnouncementService) SetActive(ctx context.Context, id string, active bool) (domain.Announcement, error) {
	a, err := s.Store.SetAnnouncementActive(ctx, id, active)
	if err != nil {
		return domain.Announcement{}, err
	}
	s.invalidate(ctx)
	return a, nil
}

func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if err := s.Store.DeleteAnnouncement(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// SweepExpired deletes announcements past their expiry and reports how
// many were removed.
func (s *AnnouncementService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.Store.DeleteExpiredAnnouncements(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidate(ctx)
	}
	return n, nil
}

func (s *AnnouncementService) invalidate(ctx context.Context) {
	if s.Stats == nil {
		return
	}
	if err := s.Stats.Invalidate(ctx); err != nil && s.Logger != nil {
		s.Logger.Warn("stats cache invalidate failed", "err", err)
	}
}
