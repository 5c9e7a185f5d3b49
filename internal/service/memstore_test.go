package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"skillswap/internal/domain"
)

type memTxKey struct{}

// memStore is an in-memory stand-in for the postgres stores. Transactions
// are serialized and roll back to a snapshot when fn fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users   map[string]domain.User
	swaps   map[string]domain.SwapRequest
	revoked map[string]int
	seq     int

	failUpdate error
}

func newMemStore(users ...domain.User) *memStore {
	m := &memStore{
		users:   map[string]domain.User{},
		swaps:   map[string]domain.SwapRequest{},
		revoked: map[string]int{},
	}
	for _, u := range users {
		if u.Rating == 0 && u.TotalRatings == 0 {
			u.Rating = domain.DefaultRating
		}
		m.users[u.ID] = u
	}
	return m
}

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	users := make(map[string]domain.User, len(m.users))
	for k, v := range m.users {
		users[k] = v
	}
	swaps := make(map[string]domain.SwapRequest, len(m.swaps))
	for k, v := range m.swaps {
		swaps[k] = v
	}
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.mu.Lock()
		m.users, m.swaps = users, swaps
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserForUpdate(ctx context.Context, id string) (domain.User, error) {
	return m.GetUserByID(ctx, id)
}

func (m *memStore) user(id string) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memStore) InsertSwap(_ context.Context, r domain.SwapRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.swaps {
		if s.Status.Open() && s.RequesterID == r.RequesterID && s.ReceiverID == r.ReceiverID &&
			s.SkillOffered == r.SkillOffered && s.SkillWanted == r.SkillWanted {
			return "", domain.ErrDuplicateSwap
		}
	}
	m.seq++
	r.ID = "swap-" + strconv.Itoa(m.seq)
	r.CreatedAt = time.Date(2025, 1, 1, 0, 0, m.seq, 0, time.UTC)
	r.UpdatedAt = r.CreatedAt
	m.swaps[r.ID] = r
	return r.ID, nil
}

func (m *memStore) GetSwap(_ context.Context, id string) (domain.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.swaps[id]
	if !ok {
		return domain.SwapRequest{}, domain.ErrNotFound
	}
	r.Requester = m.users[r.RequesterID].Summary()
	r.Receiver = m.users[r.ReceiverID].Summary()
	return r, nil
}

func (m *memStore) GetSwapForUpdate(ctx context.Context, id string) (domain.SwapRequest, error) {
	return m.GetSwap(ctx, id)
}

func (m *memStore) UpdateSwap(_ context.Context, r domain.SwapRequest) error {
	if m.failUpdate != nil {
		return m.failUpdate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.swaps[r.ID]; !ok {
		return domain.ErrNotFound
	}
	r.Requester, r.Receiver = domain.UserSummary{}, domain.UserSummary{}
	m.swaps[r.ID] = r
	return nil
}

func (m *memStore) DeleteSwap(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.swaps[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.swaps, id)
	return nil
}

func (m *memStore) ListSwaps(_ context.Context, f domain.SwapListFilter) ([]domain.SwapRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.SwapRequest
	for _, r := range m.swaps {
		if f.UserID != "" {
			switch f.Role {
			case domain.SwapRoleSent:
				if r.RequesterID != f.UserID {
					continue
				}
			case domain.SwapRoleReceived:
				if r.ReceiverID != f.UserID {
					continue
				}
			default:
				if !r.IsParty(f.UserID) {
					continue
				}
			}
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if f.Offset >= total {
		return []domain.SwapRequest{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

func (m *memStore) CancelPendingForUser(_ context.Context, userID string, when time.Time) ([]domain.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.SwapRequest{}
	for id, r := range m.swaps {
		if r.Status != domain.SwapPending || !r.IsParty(userID) {
			continue
		}
		if err := r.Transition(domain.SwapCancelled, when); err != nil {
			return nil, err
		}
		m.swaps[id] = r
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) GetRatingForUpdate(_ context.Context, userID string) (domain.RatingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.RatingState{}, domain.ErrNotFound
	}
	return domain.RatingState{Rating: u.Rating, TotalRatings: u.TotalRatings, RatingSum: u.RatingSum}, nil
}

func (m *memStore) SetRating(_ context.Context, userID string, st domain.RatingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Rating, u.TotalRatings, u.RatingSum = st.Rating, st.TotalRatings, st.RatingSum
	m.users[userID] = u
	return nil
}

func (m *memStore) UserSwapStats(_ context.Context, userID string) (domain.SwapStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st domain.SwapStats
	for _, r := range m.swaps {
		if r.IsParty(userID) {
			st.Add(r.Status, 1)
		}
	}
	return st, nil
}

func (m *memStore) PlatformStats(_ context.Context, _ time.Time) (domain.PlatformStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ps domain.PlatformStats
	for _, u := range m.users {
		ps.Users.Total++
		if u.IsPublic {
			ps.Users.Public++
		}
		if u.IsBanned {
			ps.Users.Banned++
		}
		if u.IsAdmin {
			ps.Users.Admins++
		}
	}
	for _, r := range m.swaps {
		ps.Swaps.Add(r.Status, 1)
	}
	return ps, nil
}

func (m *memStore) ActivityReport(context.Context, int, int) ([]domain.ActivityRow, error) {
	return nil, nil
}

func (m *memStore) ListUsers(_ context.Context, query string, limit, offset int) ([]domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if query == "" || strings.Contains(strings.ToLower(u.Name), strings.ToLower(query)) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if offset >= total {
		return []domain.User{}, total, nil
	}
	if end := offset + limit; end < total {
		out = out[:end]
	}
	return out[offset:], total, nil
}

func (m *memStore) SetBanned(_ context.Context, userID string, banned bool, when time.Time) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	u.IsBanned = banned
	u.BannedAt = nil
	if banned {
		w := when
		u.BannedAt = &w
	}
	m.users[userID] = u
	return u, nil
}

func (m *memStore) RevokeUserSessions(_ context.Context, userID string, _ time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[userID]++
	return 1, nil
}

func (m *memStore) SearchDirectory(_ context.Context, q domain.DirectoryQuery) ([]domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if !u.Available() || u.ID == q.ExcludeUserID {
			continue
		}
		if q.Skill != "" && !u.Offers(q.Skill) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if offset := (q.Page - 1) * q.Limit; offset < total {
		out = out[offset:]
	} else {
		out = nil
	}
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, total, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) kinds() []domain.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.EventKind, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Kind)
	}
	return out
}

type countingInvalidator struct {
	n int
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.n++
	return nil
}
