package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"skillswap/internal/domain"
	"skillswap/internal/metrics"
)

// TxRunner runs fn inside one store transaction. Store calls made with the
// ctx handed to fn take part in it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type SwapsStore interface {
	InsertSwap(ctx context.Context, r domain.SwapRequest) (string, error)
	GetSwap(ctx context.Context, id string) (domain.SwapRequest, error)
	GetSwapForUpdate(ctx context.Context, id string) (domain.SwapRequest, error)
	UpdateSwap(ctx context.Context, r domain.SwapRequest) error
	DeleteSwap(ctx context.Context, id string) error
	ListSwaps(ctx context.Context, f domain.SwapListFilter) ([]domain.SwapRequest, int, error)
	CancelPendingForUser(ctx context.Context, userID string, when time.Time) ([]domain.SwapRequest, error)
}

type UserReader interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
}

// Notifier delivers events out of band. Notify must not block on delivery.
type Notifier interface {
	Notify(ctx context.Context, ev domain.Event)
}

type StatsInvalidator interface {
	Invalidate(ctx context.Context) error
}

const (
	defaultSwapPageSize = 20
	maxSwapPageSize     = 100
)

type SwapService struct {
	Tx       TxRunner
	Swaps    SwapsStore
	Users    UserReader
	Ratings  *RatingService
	Notifier Notifier
	Stats    StatsInvalidator
	Logger   *slog.Logger
	Now      func() time.Time
}

func (s *SwapService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *SwapService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Create opens a pending request from requesterID. Preconditions are
// checked in order and the first failure is returned.
func (s *SwapService) Create(ctx context.Context, requesterID string, p domain.CreateSwapParams) (domain.SwapRequest, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return domain.SwapRequest{}, err
	}

	receiver, err := s.Users.GetUserByID(ctx, p.ReceiverID)
	if err != nil {
		return domain.SwapRequest{}, err
	}
	if !receiver.Available() {
		return domain.SwapRequest{}, domain.ErrNotFound
	}
	if receiver.ID == requesterID {
		return domain.SwapRequest{}, domain.NewInvalidOperation("cannot request a swap with yourself")
	}

	requester, err := s.Users.GetUserByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SwapRequest{}, domain.ErrUnauthorized
		}
		return domain.SwapRequest{}, err
	}
	if !requester.Offers(p.SkillOffered) {
		return domain.SwapRequest{}, domain.NewInvalidOperation("you do not offer " + p.SkillOffered)
	}
	if !receiver.Offers(p.SkillWanted) {
		return domain.SwapRequest{}, domain.NewInvalidOperation(receiver.Name + " does not offer " + p.SkillWanted)
	}

	id, err := s.Swaps.InsertSwap(ctx, domain.SwapRequest{
		RequesterID:  requesterID,
		ReceiverID:   receiver.ID,
		SkillOffered: p.SkillOffered,
		SkillWanted:  p.SkillWanted,
		Message:      p.Message,
		Status:       domain.SwapPending,
	})
	if err != nil {
		return domain.SwapRequest{}, err
	}

	r, err := s.Swaps.GetSwap(ctx, id)
	if err != nil {
		return domain.SwapRequest{}, err
	}
	s.changed(ctx, r, domain.Event{Kind: domain.EventSwapRequested, UserID: r.ReceiverID})
	return r, nil
}

func (s *SwapService) Accept(ctx context.Context, requestID, actorID string) (domain.SwapRequest, error) {
	return s.receiverDecision(ctx, requestID, actorID, domain.SwapAccepted, domain.EventSwapAccepted)
}

func (s *SwapService) Reject(ctx context.Context, requestID, actorID string) (domain.SwapRequest, error) {
	return s.receiverDecision(ctx, requestID, actorID, domain.SwapRejected, domain.EventSwapRejected)
}

func (s *SwapService) receiverDecision(ctx context.Context, requestID, actorID string, to domain.SwapStatus, kind domain.EventKind) (domain.SwapRequest, error) {
	r, err := s.mutate(ctx, requestID, func(ctx context.Context, r *domain.SwapRequest) error {
		if r.ReceiverID != actorID {
			return domain.ErrForbidden
		}
		if r.Status != domain.SwapPending {
			return domain.NewInvalidOperation("only pending requests can be " + string(to))
		}
		return r.Transition(to, s.now())
	})
	if err != nil {
		return domain.SwapRequest{}, err
	}
	s.changed(ctx, r, domain.Event{Kind: kind, UserID: r.RequesterID})
	return r, nil
}

// Complete closes an accepted swap. The rating goes to the actor's
// counterpart and is folded into their aggregate in the same transaction.
func (s *SwapService) Complete(ctx context.Context, requestID, actorID string, rating int, feedback string) (domain.SwapRequest, error) {
	if err := domain.ValidateCompletion(rating, feedback); err != nil {
		return domain.SwapRequest{}, err
	}

	r, err := s.mutate(ctx, requestID, func(ctx context.Context, r *domain.SwapRequest) error {
		if !r.IsParty(actorID) {
			return domain.ErrForbidden
		}
		if r.Status != domain.SwapAccepted {
			return domain.NewInvalidOperation("only accepted requests can be completed")
		}
		if err := r.Transition(domain.SwapCompleted, s.now()); err != nil {
			return err
		}
		r.Rating = &rating
		r.Feedback = feedback
		r.RatedUserID = r.Counterpart(actorID)
		return nil
	}, func(ctx context.Context, r domain.SwapRequest) error {
		return s.Ratings.HandleSwapCompleted(ctx, domain.SwapCompletedEvent{
			RequestID:   r.ID,
			RatedUserID: r.RatedUserID,
			Rating:      rating,
		})
	})
	if err != nil {
		return domain.SwapRequest{}, err
	}
	s.changed(ctx, r, domain.Event{Kind: domain.EventSwapCompleted, UserID: r.RatedUserID})
	return r, nil
}

// Cancel withdraws a pending or accepted request. Only the requester may
// cancel.
func (s *SwapService) Cancel(ctx context.Context, requestID, actorID string) (domain.SwapRequest, error) {
	r, err := s.mutate(ctx, requestID, func(ctx context.Context, r *domain.SwapRequest) error {
		if r.RequesterID != actorID {
			return domain.ErrForbidden
		}
		if !r.Status.Open() {
			return domain.NewInvalidOperation("only pending or accepted requests can be cancelled")
		}
		return r.Transition(domain.SwapCancelled, s.now())
	})
	if err != nil {
		return domain.SwapRequest{}, err
	}
	s.changed(ctx, r, domain.Event{Kind: domain.EventSwapCancelled, UserID: r.ReceiverID})
	return r, nil
}

// Delete removes a request that has not been completed. Only the requester
// may delete.
func (s *SwapService) Delete(ctx context.Context, requestID, actorID string) error {
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		r, err := s.Swaps.GetSwapForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if r.RequesterID != actorID {
			return domain.ErrForbidden
		}
		if r.Status == domain.SwapCompleted {
			return domain.NewInvalidOperation("completed requests cannot be deleted")
		}
		return s.Swaps.DeleteSwap(ctx, requestID)
	})
	if err != nil {
		return err
	}
	s.invalidateStats(ctx)
	return nil
}

// CancelPendingForUser cancels every pending request involving userID
// without per-request authorization. It joins the caller's transaction
// when ctx carries one.
func (s *SwapService) CancelPendingForUser(ctx context.Context, userID string) ([]domain.SwapRequest, error) {
	cancelled, err := s.Swaps.CancelPendingForUser(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	for range cancelled {
		metrics.RecordSwapTransition(string(domain.SwapCancelled))
	}
	return cancelled, nil
}

// Get returns a request visible to p: either party, or an admin.
func (s *SwapService) Get(ctx context.Context, requestID string, p domain.Principal) (domain.SwapRequest, error) {
	r, err := s.Swaps.GetSwap(ctx, requestID)
	if err != nil {
		return domain.SwapRequest{}, err
	}
	if !r.IsParty(p.ID) && !p.IsAdmin {
		return domain.SwapRequest{}, domain.ErrForbidden
	}
	return r, nil
}

func (s *SwapService) ListForUser(ctx context.Context, userID string, f domain.SwapListFilter) (domain.SwapPage, error) {
	f.UserID = userID
	if f.Role == "" {
		f.Role = domain.SwapRoleAll
	}
	switch f.Role {
	case domain.SwapRoleAll, domain.SwapRoleSent, domain.SwapRoleReceived:
	default:
		return domain.SwapPage{}, domain.NewValidationError(map[string]string{"role": "must be one of all, sent, received"})
	}
	return s.list(ctx, f)
}

func (s *SwapService) ListAll(ctx context.Context, f domain.SwapListFilter) (domain.SwapPage, error) {
	f.UserID = ""
	return s.list(ctx, f)
}

func (s *SwapService) list(ctx context.Context, f domain.SwapListFilter) (domain.SwapPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return domain.SwapPage{}, domain.NewValidationError(map[string]string{"status": "unknown status"})
	}
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset, defaultSwapPageSize, maxSwapPageSize)

	swaps, total, err := s.Swaps.ListSwaps(ctx, f)
	if err != nil {
		return domain.SwapPage{}, err
	}
	return domain.SwapPage{Swaps: swaps, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// mutate locks the request, lets apply change it in memory, persists it
// and then runs each follow-up inside the same transaction. The returned
// request is re-read with party summaries after commit.
func (s *SwapService) mutate(
	ctx context.Context,
	requestID string,
	apply func(ctx context.Context, r *domain.SwapRequest) error,
	followUps ...func(ctx context.Context, r domain.SwapRequest) error,
) (domain.SwapRequest, error) {
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		r, err := s.Swaps.GetSwapForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := apply(ctx, &r); err != nil {
			return err
		}
		if err := s.Swaps.UpdateSwap(ctx, r); err != nil {
			return err
		}
		for _, f := range followUps {
			if err := f(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.SwapRequest{}, err
	}
	return s.Swaps.GetSwap(ctx, requestID)
}

func (s *SwapService) changed(ctx context.Context, r domain.SwapRequest, ev domain.Event) {
	metrics.RecordSwapTransition(string(r.Status))
	s.invalidateStats(ctx)

	if s.Notifier == nil || ev.UserID == "" {
		return
	}
	ev.SwapID = r.ID
	ev.SkillWanted = r.SkillWanted
	if ev.ActorID == "" {
		ev.ActorID = r.Counterpart(ev.UserID)
	}
	s.Notifier.Notify(ctx, ev)
}

func (s *SwapService) invalidateStats(ctx context.Context) {
	if s.Stats == nil {
		return
	}
	if err := s.Stats.Invalidate(ctx); err != nil {
		s.logger().Warn("stats cache invalidate failed", "err", err)
	}
}

func clampPage(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
