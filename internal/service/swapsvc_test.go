package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/domain"
)

type swapFixture struct {
	store    *memStore
	notifier *recordingNotifier
	stats    *countingInvalidator
	svc      *SwapService
	clock    time.Time
}

func newSwapFixture(t *testing.T, users ...domain.User) *swapFixture {
	t.Helper()
	f := &swapFixture{
		store:    newMemStore(users...),
		notifier: &recordingNotifier{},
		stats:    &countingInvalidator{},
		clock:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = &SwapService{
		Tx:       f.store,
		Swaps:    f.store,
		Users:    f.store,
		Ratings:  &RatingService{Store: f.store},
		Notifier: f.notifier,
		Stats:    f.stats,
		Now: func() time.Time {
			f.clock = f.clock.Add(time.Minute)
			return f.clock
		},
	}
	return f
}

var (
	alice = domain.User{ID: "alice", Name: "Alice", IsPublic: true, SkillsOffered: []string{"Cooking"}, SkillsWanted: []string{"Guitar"}}
	bob   = domain.User{ID: "bob", Name: "Bob", IsPublic: true, SkillsOffered: []string{"Guitar"}, SkillsWanted: []string{"Cooking"}}
	carol = domain.User{ID: "carol", Name: "Carol", IsPublic: true, SkillsOffered: []string{"Guitar", "Chess"}}
)

func cookingForGuitar() domain.CreateSwapParams {
	return domain.CreateSwapParams{ReceiverID: "bob", SkillOffered: "Cooking", SkillWanted: "Guitar", Message: "hi"}
}

func TestSwapLifecycleRequestAcceptComplete(t *testing.T) {
	f := newSwapFixture(t, alice, bob)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)
	assert.Equal(t, domain.SwapPending, r.Status)
	assert.Equal(t, "Bob", r.Receiver.Name)

	r, err = f.svc.Accept(ctx, r.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.SwapAccepted, r.Status)
	require.NotNil(t, r.AcceptedAt)

	r, err = f.svc.Complete(ctx, r.ID, "alice", 5, "great lesson")
	require.NoError(t, err)
	assert.Equal(t, domain.SwapCompleted, r.Status)
	require.NotNil(t, r.CompletedAt)
	require.NotNil(t, r.Rating)
	assert.Equal(t, 5, *r.Rating)
	assert.Equal(t, "bob", r.RatedUserID)
	assert.Equal(t, "great lesson", r.Feedback)

	b := f.store.user("bob")
	assert.Equal(t, 1, b.TotalRatings)
	assert.Equal(t, 5, b.RatingSum)
	assert.Equal(t, 5.0, b.Rating)
	assert.Equal(t, 0, f.store.user("alice").TotalRatings)

	assert.Equal(t, []domain.EventKind{
		domain.EventSwapRequested,
		domain.EventSwapAccepted,
		domain.EventSwapCompleted,
	}, f.notifier.kinds())
	assert.Equal(t, "bob", f.notifier.events[0].UserID)
	assert.Equal(t, "alice", f.notifier.events[0].ActorID)
	assert.Equal(t, "alice", f.notifier.events[1].UserID)
	assert.Equal(t, 3, f.stats.n)
}

func TestCompleteFoldsIntoExistingRating(t *testing.T) {
	b := bob
	b.Rating, b.TotalRatings, b.RatingSum = 4.0, 2, 8
	f := newSwapFixture(t, alice, b)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, r.ID, "bob")
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, r.ID, "alice", 5, "")
	require.NoError(t, err)

	got := f.store.user("bob")
	assert.Equal(t, 3, got.TotalRatings)
	assert.Equal(t, 13, got.RatingSum)
	assert.Equal(t, 4.3, got.Rating)
}

func TestCompleteByReceiverRatesRequester(t *testing.T) {
	f := newSwapFixture(t, alice, bob)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, r.ID, "bob")
	require.NoError(t, err)
	r, err = f.svc.Complete(ctx, r.ID, "bob", 3, "")
	require.NoError(t, err)

	assert.Equal(t, "alice", r.RatedUserID)
	assert.Equal(t, 1, f.store.user("alice").TotalRatings)
	assert.Equal(t, 0, f.store.user("bob").TotalRatings)
}

func TestCreatePreconditions(t *testing.T) {
	private := domain.User{ID: "dave", Name: "Dave", SkillsOffered: []string{"Guitar"}}
	banned := domain.User{ID: "erin", Name: "Erin", IsPublic: true, IsBanned: true, SkillsOffered: []string{"Guitar"}}
	f := newSwapFixture(t, alice, bob, private, banned)
	ctx := context.Background()

	tests := []struct {
		name   string
		actor  string
		params domain.CreateSwapParams
		want   error
	}{
		{"missing fields", "alice", domain.CreateSwapParams{}, domain.ErrValidation},
		{"unknown receiver", "alice", domain.CreateSwapParams{ReceiverID: "nobody", SkillOffered: "Cooking", SkillWanted: "Guitar"}, domain.ErrNotFound},
		{"private receiver", "alice", domain.CreateSwapParams{ReceiverID: "dave", SkillOffered: "Cooking", SkillWanted: "Guitar"}, domain.ErrNotFound},
		{"banned receiver", "alice", domain.CreateSwapParams{ReceiverID: "erin", SkillOffered: "Cooking", SkillWanted: "Guitar"}, domain.ErrNotFound},
		{"self", "bob", domain.CreateSwapParams{ReceiverID: "bob", SkillOffered: "Guitar", SkillWanted: "Guitar"}, domain.ErrInvalidOperation},
		{"requester lacks skill", "alice", domain.CreateSwapParams{ReceiverID: "bob", SkillOffered: "Painting", SkillWanted: "Guitar"}, domain.ErrInvalidOperation},
		{"receiver lacks skill", "alice", domain.CreateSwapParams{ReceiverID: "bob", SkillOffered: "Cooking", SkillWanted: "Drums"}, domain.ErrInvalidOperation},
		{"skill match is case sensitive", "alice", domain.CreateSwapParams{ReceiverID: "bob", SkillOffered: "cooking", SkillWanted: "Guitar"}, domain.ErrInvalidOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.actor, tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.notifier.kinds())
}

func TestCreateDuplicateOpenRequest(t *testing.T) {
	f := newSwapFixture(t, alice, bob)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, "alice", cookingForGuitar())
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.svc.Accept(ctx, first.ID, "bob")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "alice", cookingForGuitar())
	assert.ErrorIs(t, err, domain.ErrConflict, "accepted requests still block duplicates")

	// The reverse pair is a different request.
	_, err = f.svc.Create(ctx, "bob", domain.CreateSwapParams{ReceiverID: "alice", SkillOffered: "Guitar", SkillWanted: "Cooking"})
	assert.NoError(t, err)
}

func TestCreateAllowedAgainAfterTerminalStatus(t *testing.T) {
	for _, end := range []domain.SwapStatus{domain.SwapRejected, domain.SwapCancelled, domain.SwapCompleted} {
		t.Run(string(end), func(t *testing.T) {
			f := newSwapFixture(t, alice, bob)
			ctx := context.Background()

			r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
			require.NoError(t, err)
			switch end {
			case domain.SwapRejected:
				_, err = f.svc.Reject(ctx, r.ID, "bob")
			case domain.SwapCancelled:
				_, err = f.svc.Cancel(ctx, r.ID, "alice")
			case domain.SwapCompleted:
				_, err = f.svc.Accept(ctx, r.ID, "bob")
				require.NoError(t, err)
				_, err = f.svc.Complete(ctx, r.ID, "bob", 4, "")
			}
			require.NoError(t, err)

			again, err := f.svc.Create(ctx, "alice", cookingForGuitar())
			require.NoError(t, err)
			assert.NotEqual(t, r.ID, again.ID)
		})
	}
}

func TestAcceptTwiceDoesNotRestamp(t *testing.T) {
	f := newSwapFixture(t, alice, bob)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)
	accepted, err := f.svc.Accept(ctx, r.ID, "bob")
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, r.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	after, err := f.store.GetSwap(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, *accepted.AcceptedAt, *after.AcceptedAt)
	assert.Equal(t, domain.SwapAccepted, after.Status)
}

func TestReceiverDecisionAuthorization(t *testing.T) {
	f := newSwapFixture(t, alice, bob, carol)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, r.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Reject(ctx, r.ID, "carol")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Accept(ctx, "missing", "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	r, err = f.svc.Reject(ctx, r.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.SwapRejected, r.Status)
	assert.NotNil(t, r.RejectedAt)
	assert.Nil(t, r.AcceptedAt)

	_, err = f.svc.Accept(ctx, r.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestCompleteFromWrongStateLeavesRecordUnchanged(t *testing.T) {
	f := newSwapFixture(t, alice, bob)
	ctx := context.Background()

	pending, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)
	before, err := f.store.GetSwap(ctx, pending.ID)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, pending.ID, "alice", 5, "")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	after, err := f.store.GetSwap(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = f.svc.Reject(ctx, pending.ID, "bob")
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, pending.ID, "alice", 5, "")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, r.ID, "bob")
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, r.ID, "alice", 5, "")
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, r.ID, "bob", 5, "")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	assert.Equal(t, 1, f.store.user("bob").TotalRatings)
	assert.Equal(t, 0, f.store.user("alice").TotalRatings)
}

func TestCompleteValidationAndAuthorization(t *testing.T) {
	f := newSwapFixture(t, alice, bob, carol)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, r.ID, "bob")
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, r.ID, "alice", 0, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.Complete(ctx, r.ID, "alice", 6, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.Complete(ctx, r.ID, "carol", 5, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCompleteRollsBackWhenRatedUserMissing(t *testing.T) {
	f := newSwapFixture(t, alice, bob)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, r.ID, "bob")
	require.NoError(t, err)

	f.store.mu.Lock()
	delete(f.store.users, "bob")
	f.store.mu.Unlock()

	_, err = f.svc.Complete(ctx, r.ID, "alice", 5, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	after, err := f.store.GetSwap(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SwapAccepted, after.Status)
	assert.Nil(t, after.CompletedAt)
	assert.Nil(t, after.Rating)
}

func TestCancelAndDelete(t *testing.T) {
	f := newSwapFixture(t, alice, bob)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, r.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Accept(ctx, r.ID, "bob")
	require.NoError(t, err)
	r, err = f.svc.Cancel(ctx, r.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.SwapCancelled, r.Status)
	assert.NotNil(t, r.CancelledAt)

	_, err = f.svc.Cancel(ctx, r.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	assert.ErrorIs(t, f.svc.Delete(ctx, r.ID, "bob"), domain.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, r.ID, "alice"))
	_, err = f.store.GetSwap(ctx, r.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, r.ID, "alice"), domain.ErrNotFound)
}

func TestDeleteCompletedIsInvalid(t *testing.T) {
	f := newSwapFixture(t, alice, bob)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, r.ID, "bob")
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, r.ID, "bob", 5, "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, r.ID, "alice"), domain.ErrInvalidOperation)
	_, err = f.store.GetSwap(ctx, r.ID)
	assert.NoError(t, err)
}

func TestConcurrentAcceptOnlyOneWins(t *testing.T) {
	f := newSwapFixture(t, alice, bob)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Accept(ctx, r.ID, "bob")
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	}
	assert.Equal(t, 1, wins)
}

func TestMutateRollsBackOnStoreFailure(t *testing.T) {
	f := newSwapFixture(t, alice, bob)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)

	boom := errors.New("disk on fire")
	f.store.failUpdate = boom
	_, err = f.svc.Accept(ctx, r.ID, "bob")
	assert.ErrorIs(t, err, boom)
	f.store.failUpdate = nil

	after, err := f.store.GetSwap(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SwapPending, after.Status)
}

func TestGetVisibility(t *testing.T) {
	f := newSwapFixture(t, alice, bob, carol)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, r.ID, domain.Principal{ID: "bob"})
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, r.ID, domain.Principal{ID: "carol"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Get(ctx, r.ID, domain.Principal{ID: "carol", IsAdmin: true})
	assert.NoError(t, err)
}

func TestListForUserRoles(t *testing.T) {
	f := newSwapFixture(t, alice, bob, carol)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "alice", cookingForGuitar())
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "alice", domain.CreateSwapParams{ReceiverID: "carol", SkillOffered: "Cooking", SkillWanted: "Chess"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "bob", domain.CreateSwapParams{ReceiverID: "alice", SkillOffered: "Guitar", SkillWanted: "Cooking"})
	require.NoError(t, err)

	page, err := f.svc.ListForUser(ctx, "alice", domain.SwapListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, defaultSwapPageSize, page.Limit)

	page, err = f.svc.ListForUser(ctx, "alice", domain.SwapListFilter{Role: domain.SwapRoleSent})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = f.svc.ListForUser(ctx, "alice", domain.SwapListFilter{Role: domain.SwapRoleReceived, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, maxSwapPageSize, page.Limit)

	_, err = f.svc.ListForUser(ctx, "alice", domain.SwapListFilter{Role: "both"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.ListForUser(ctx, "alice", domain.SwapListFilter{Status: "done"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	all, err := f.svc.ListAll(ctx, domain.SwapListFilter{Status: domain.SwapPending})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
}
