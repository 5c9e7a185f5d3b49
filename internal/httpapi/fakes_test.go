package httpapi

import (
	"context"
	"strconv"
	"sync"
	"time"

	"skillswap/internal/domain"
)

// fakeStore backs every service the router needs. Transactions take a
// single lock, which is enough for handler tests.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users    map[string]domain.User
	sessions map[string]domain.Session
	swaps    map[string]domain.SwapRequest
	seq      int
}

func newFakeStore(users ...domain.User) *fakeStore {
	s := &fakeStore{
		users:    map[string]domain.User{},
		sessions: map[string]domain.Session{},
		swaps:    map[string]domain.SwapRequest{},
	}
	for _, u := range users {
		u.Rating = domain.DefaultRating
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeStore) next(prefix string) string {
	s.seq++
	return prefix + strconv.Itoa(s.seq)
}

func (s *fakeStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

func (s *fakeStore) CreateUser(_ context.Context, email, name, hash string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return domain.User{}, domain.ErrEmailTaken
		}
	}
	u := domain.User{ID: s.next("user-"), Email: email, Name: name, IsPublic: true, Rating: domain.DefaultRating}
	s.users[u.ID] = u
	return u, nil
}

func (s *fakeStore) GetUserByID(_ context.Context, id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) GetUserForUpdate(ctx context.Context, id string) (domain.User, error) {
	return s.GetUserByID(ctx, id)
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (domain.UserWithPassword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return domain.UserWithPassword{User: u}, nil
		}
	}
	return domain.UserWithPassword{}, domain.ErrNotFound
}

func (s *fakeStore) SetLastLogin(context.Context, string, time.Time) error { return nil }

func (s *fakeStore) SetPasswordHash(context.Context, string, string) error { return nil }

func (s *fakeStore) CreateSession(_ context.Context, userID string, expiresAt time.Time, _, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next("sess-")
	s.sessions[id] = domain.Session{ID: id, UserID: userID, ExpiresAt: expiresAt}
	return id, nil
}

func (s *fakeStore) GetSession(_ context.Context, id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.RevokedAt != nil {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s *fakeStore) RevokeSession(_ context.Context, id string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.RevokedAt = &when
		s.sessions[id] = sess
	}
	return nil
}

func (s *fakeStore) RevokeUserSessions(_ context.Context, userID string, when time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			sess.RevokedAt = &when
			s.sessions[id] = sess
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) InsertSwap(_ context.Context, r domain.SwapRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.swaps {
		if o.Status.Open() && o.RequesterID == r.RequesterID && o.ReceiverID == r.ReceiverID &&
			o.SkillOffered == r.SkillOffered && o.SkillWanted == r.SkillWanted {
			return "", domain.ErrDuplicateSwap
		}
	}
	r.ID = s.next("swap-")
	s.swaps[r.ID] = r
	return r.ID, nil
}

func (s *fakeStore) GetSwap(_ context.Context, id string) (domain.SwapRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.swaps[id]
	if !ok {
		return domain.SwapRequest{}, domain.ErrNotFound
	}
	r.Requester = s.users[r.RequesterID].Summary()
	r.Receiver = s.users[r.ReceiverID].Summary()
	return r, nil
}

func (s *fakeStore) GetSwapForUpdate(ctx context.Context, id string) (domain.SwapRequest, error) {
	return s.GetSwap(ctx, id)
}

func (s *fakeStore) UpdateSwap(_ context.Context, r domain.SwapRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swaps[r.ID] = r
	return nil
}

func (s *fakeStore) DeleteSwap(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.swaps, id)
	return nil
}

func (s *fakeStore) ListSwaps(_ context.Context, f domain.SwapListFilter) ([]domain.SwapRequest, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.SwapRequest{}
	for _, r := range s.swaps {
		if f.UserID == "" || r.IsParty(f.UserID) {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func (s *fakeStore) CancelPendingForUser(_ context.Context, userID string, when time.Time) ([]domain.SwapRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.SwapRequest{}
	for id, r := range s.swaps {
		if r.Status == domain.SwapPending && r.IsParty(userID) {
			_ = r.Transition(domain.SwapCancelled, when)
			s.swaps[id] = r
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) GetRatingForUpdate(_ context.Context, userID string) (domain.RatingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.RatingState{}, domain.ErrNotFound
	}
	return domain.RatingState{Rating: u.Rating, TotalRatings: u.TotalRatings, RatingSum: u.RatingSum}, nil
}

func (s *fakeStore) SetRating(_ context.Context, userID string, st domain.RatingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.Rating, u.TotalRatings, u.RatingSum = st.Rating, st.TotalRatings, st.RatingSum
	s.users[userID] = u
	return nil
}

func (s *fakeStore) ListUsers(_ context.Context, _ string, _, _ int) ([]domain.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (s *fakeStore) SetBanned(_ context.Context, userID string, banned bool, when time.Time) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	u.IsBanned = banned
	u.BannedAt = nil
	if banned {
		u.BannedAt = &when
	}
	s.users[userID] = u
	return u, nil
}

func (s *fakeStore) UserSwapStats(_ context.Context, userID string) (domain.SwapStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st domain.SwapStats
	for _, r := range s.swaps {
		if r.IsParty(userID) {
			st.Add(r.Status, 1)
		}
	}
	return st, nil
}

func (s *fakeStore) PlatformStats(context.Context, time.Time) (domain.PlatformStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ps domain.PlatformStats
	ps.Users.Total = len(s.users)
	for _, r := range s.swaps {
		ps.Swaps.Add(r.Status, 1)
	}
	return ps, nil
}

func (s *fakeStore) ActivityReport(context.Context, int, int) ([]domain.ActivityRow, error) {
	return nil, nil
}
