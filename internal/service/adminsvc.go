package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"skillswap/internal/domain"
)

type AdminUsersStore interface {
	ListUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, int, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserForUpdate(ctx context.Context, id string) (domain.User, error)
	SetBanned(ctx context.Context, userID string, banned bool, when time.Time) (domain.User, error)
}

type SessionRevoker interface {
	RevokeUserSessions(ctx context.Context, userID string, when time.Time) (int64, error)
}

type BanResult struct {
	User           domain.User `json:"user"`
	CancelledSwaps int         `json:"cancelled_swaps"`
}

type AdminService struct {
	Tx       TxRunner
	Users    AdminUsersStore
	Swaps    *SwapService
	Sessions SessionRevoker
	Stats    *StatsService
	Notifier Notifier
	Logger   *slog.Logger
	Now      func() time.Time
}

func (s *AdminService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *AdminService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *AdminService) ListUsers(ctx context.Context, query string, limit, offset int) (domain.UserPage, error) {
	limit, offset = clampPage(limit, offset, 50, 200)
	users, total, err := s.Users.ListUsers(ctx, strings.TrimSpace(query), limit, offset)
	if err != nil {
		return domain.UserPage{}, err
	}
	return domain.UserPage{Users: users, Total: total, Limit: limit, Offset: offset}, nil
}

// Ban marks userID banned and cancels their pending swaps in one
// transaction. The target row stays locked from the admin check until
// commit. Sessions are revoked and notifications sent after commit.
func (s *AdminService) Ban(ctx context.Context, admin domain.Principal, userID, reason string) (BanResult, error) {
	if admin.ID == userID {
		return BanResult{}, domain.NewInvalidOperation("you cannot ban yourself")
	}

	now := s.now()
	var (
		banned    domain.User
		cancelled []domain.SwapRequest
	)
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		target, err := s.Users.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if target.IsAdmin {
			return domain.ErrForbidden
		}
		if banned, err = s.Users.SetBanned(ctx, userID, true, now); err != nil {
			return err
		}
		cancelled, err = s.Swaps.CancelPendingForUser(ctx, userID)
		return err
	})
	if err != nil {
		return BanResult{}, err
	}

	log := s.logger().With("user_id", userID, "admin_id", admin.ID)
	if err := s.Stats.Invalidate(ctx); err != nil {
		log.Warn("stats cache invalidate failed", "err", err)
	}
	if s.Sessions != nil {
		if _, err := s.Sessions.RevokeUserSessions(ctx, userID, now); err != nil {
			log.Error("revoke sessions after ban failed", "err", err)
		}
	}
	log.Info("user banned", "cancelled_swaps", len(cancelled))

	if s.Notifier != nil {
		reason = strings.TrimSpace(reason)
		s.Notifier.Notify(ctx, domain.Event{Kind: domain.EventUserBanned, UserID: userID, ActorID: admin.ID, Reason: reason})
		for _, r := range cancelled {
			s.Notifier.Notify(ctx, domain.Event{
				Kind:        domain.EventSwapCancelled,
				UserID:      r.Counterpart(userID),
				ActorID:     userID,
				SwapID:      r.ID,
				SkillWanted: r.SkillWanted,
				Reason:      "the other member was removed from the platform",
			})
		}
	}
	return BanResult{User: banned, CancelledSwaps: len(cancelled)}, nil
}

func (s *AdminService) Unban(ctx context.Context, admin domain.Principal, userID string) (domain.User, error) {
	u, err := s.Users.SetBanned(ctx, userID, false, s.now())
	if err != nil {
		return domain.User{}, err
	}
	if err := s.Stats.Invalidate(ctx); err != nil {
		s.logger().Warn("stats cache invalidate failed", "err", err)
	}
	s.logger().Info("user unbanned", "user_id", userID, "admin_id", admin.ID)
	return u, nil
}

// UserStats reports swap counts for any user, banned ones included.
func (s *AdminService) UserStats(ctx context.Context, userID string) (domain.SwapStats, error) {
	if _, err := s.Users.GetUserByID(ctx, userID); err != nil {
		return domain.SwapStats{}, err
	}
	return s.Stats.GetUserStats(ctx, userID)
}

func (s *AdminService) PlatformStats(ctx context.Context) (domain.PlatformStats, error) {
	return s.Stats.PlatformStats(ctx)
}

func (s *AdminService) ActivityReport(ctx context.Context, limit, offset int) ([]domain.ActivityRow, error) {
	return s.Stats.ActivityReport(ctx, limit, offset)
}

func (s *AdminService) ListSwaps(ctx context.Context, f domain.SwapListFilter) (domain.SwapPage, error) {
	return s.Swaps.ListAll(ctx, f)
}
