package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skillswap/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const swapColumns = `
	s.id, s.requester_id, s.receiver_id, s.skill_offered, s.skill_wanted, s.message,
	s.status, s.rating, s.feedback, s.rated_user_id,
	s.accepted_at, s.rejected_at, s.completed_at, s.cancelled_at,
	s.created_at, s.updated_at`

const swapPartyColumns = `,
	rq.name, rq.profile_photo, rq.rating::float8,
	rv.name, rv.profile_photo, rv.rating::float8`

const swapPartyJoins = `
	JOIN users rq ON rq.id = s.requester_id
	JOIN users rv ON rv.id = s.receiver_id`

func scanSwap(row pgx.Row, withParties bool) (domain.SwapRequest, error) {
	var (
		r                                       domain.SwapRequest
		id, requester, receiver, rated          pgtype.UUID
		rating                                  pgtype.Int4
		feedback                                pgtype.Text
		acceptedAt, rejectedAt, completedAt, ca pgtype.Timestamptz
	)
	dest := []any{
		&id, &requester, &receiver, &r.SkillOffered, &r.SkillWanted, &r.Message,
		&r.Status, &rating, &feedback, &rated,
		&acceptedAt, &rejectedAt, &completedAt, &ca,
		&r.CreatedAt, &r.UpdatedAt,
	}
	if withParties {
		dest = append(dest,
			&r.Requester.Name, &r.Requester.ProfilePhoto, &r.Requester.Rating,
			&r.Receiver.Name, &r.Receiver.ProfilePhoto, &r.Receiver.Rating,
		)
	}
	if err := row.Scan(dest...); err != nil {
		return domain.SwapRequest{}, err
	}

	r.ID = uuidOrEmpty(id)
	r.RequesterID = uuidOrEmpty(requester)
	r.ReceiverID = uuidOrEmpty(receiver)
	r.RatedUserID = uuidOrEmpty(rated)
	r.Rating = int4Ptr(rating)
	r.Feedback = textOrEmpty(feedback)
	r.AcceptedAt = timestamptzPtr(acceptedAt)
	r.RejectedAt = timestamptzPtr(rejectedAt)
	r.CompletedAt = timestamptzPtr(completedAt)
	r.CancelledAt = timestamptzPtr(ca)
	if withParties {
		r.Requester.ID = r.RequesterID
		r.Receiver.ID = r.ReceiverID
	}
	return r, nil
}

type SwapsStore struct {
	db *DB
}

func NewSwapsStore(db *DB) *SwapsStore {
	return &SwapsStore{db: db}
}

// InsertSwap stores a new pending request and returns its id. An open
// request for the same requester, receiver and skill pair yields
// domain.ErrDuplicateSwap.
func (s *SwapsStore) InsertSwap(ctx context.Context, r domain.SwapRequest) (string, error) {
	const q = `
		INSERT INTO swap_requests (requester_id, receiver_id, skill_offered, skill_wanted, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id pgtype.UUID
	err := s.db.conn(ctx).QueryRow(ctx, q,
		r.RequesterID, r.ReceiverID, r.SkillOffered, r.SkillWanted, r.Message, r.Status,
	).Scan(&id)
	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == "swap_requests_open_uq" {
			return "", domain.ErrDuplicateSwap
		}
		return "", fmt.Errorf("insert swap request: %w", err)
	}
	return uuidOrEmpty(id), nil
}

// GetSwap returns the request with requester and receiver summaries.
func (s *SwapsStore) GetSwap(ctx context.Context, id string) (domain.SwapRequest, error) {
	if !validID(id) {
		return domain.SwapRequest{}, domain.ErrNotFound
	}
	q := `SELECT ` + swapColumns + swapPartyColumns + ` FROM swap_requests s` + swapPartyJoins + ` WHERE s.id = $1`

	r, err := scanSwap(s.db.conn(ctx).QueryRow(ctx, q, id), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SwapRequest{}, domain.ErrNotFound
		}
		return domain.SwapRequest{}, fmt.Errorf("get swap request: %w", err)
	}
	return r, nil
}

// GetSwapForUpdate locks the request row until the surrounding transaction
// ends. It must be called with a context from DB.RunInTx.
func (s *SwapsStore) GetSwapForUpdate(ctx context.Context, id string) (domain.SwapRequest, error) {
	if !validID(id) {
		return domain.SwapRequest{}, domain.ErrNotFound
	}
	q := `SELECT ` + swapColumns + ` FROM swap_requests s WHERE s.id = $1 FOR UPDATE`

	r, err := scanSwap(s.db.conn(ctx).QueryRow(ctx, q, id), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SwapRequest{}, domain.ErrNotFound
		}
		return domain.SwapRequest{}, fmt.Errorf("lock swap request: %w", err)
	}
	return r, nil
}

// UpdateSwap persists the mutable lifecycle fields of r. Transition
// timestamps already set in the row are never overwritten.
func (s *SwapsStore) UpdateSwap(ctx context.Context, r domain.SwapRequest) error {
	const q = `
		UPDATE swap_requests SET
			status        = $2,
			rating        = $3,
			feedback      = $4,
			rated_user_id = $5,
			accepted_at   = COALESCE(accepted_at, $6),
			rejected_at   = COALESCE(rejected_at, $7),
			completed_at  = COALESCE(completed_at, $8),
			cancelled_at  = COALESCE(cancelled_at, $9),
			updated_at    = now()
		WHERE id = $1
	`
	tag, err := s.db.conn(ctx).Exec(ctx, q,
		r.ID, r.Status, r.Rating, nullIfEmpty(r.Feedback), nullIfEmpty(r.RatedUserID),
		r.AcceptedAt, r.RejectedAt, r.CompletedAt, r.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update swap request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *SwapsStore) DeleteSwap(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := s.db.conn(ctx).Exec(ctx, `DELETE FROM swap_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete swap request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListSwaps returns one page of requests matching f plus the total match
// count. An empty f.UserID lists across all users.
func (s *SwapsStore) ListSwaps(ctx context.Context, f domain.SwapListFilter) ([]domain.SwapRequest, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.UserID != "" {
		if !validID(f.UserID) {
			return []domain.SwapRequest{}, 0, nil
		}
		p := arg(f.UserID)
		switch f.Role {
		case domain.SwapRoleSent:
			where = append(where, "s.requester_id = "+p)
		case domain.SwapRoleReceived:
			where = append(where, "s.receiver_id = "+p)
		default:
			where = append(where, "(s.requester_id = "+p+" OR s.receiver_id = "+p+")")
		}
	}
	if f.Status != "" {
		where = append(where, "s.status = "+arg(string(f.Status)))
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM swap_requests s`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count swap requests: %w", err)
	}

	q := `SELECT ` + swapColumns + swapPartyColumns + ` FROM swap_requests s` + swapPartyJoins + cond +
		` ORDER BY s.created_at DESC, s.id LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)

	rows, err := s.db.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list swap requests: %w", err)
	}
	defer rows.Close()

	out := []domain.SwapRequest{}
	for rows.Next() {
		r, err := scanSwap(rows, true)
		if err != nil {
			return nil, 0, fmt.Errorf("scan swap request: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list swap requests: %w", err)
	}
	return out, total, nil
}

// CancelPendingForUser cancels every pending request where userID is
// either party, in one statement, and returns the cancelled rows.
func (s *SwapsStore) CancelPendingForUser(ctx context.Context, userID string, when time.Time) ([]domain.SwapRequest, error) {
	q := `
		UPDATE swap_requests s SET
			status = 'cancelled',
			cancelled_at = COALESCE(s.cancelled_at, $2),
			updated_at = now()
		WHERE (s.requester_id = $1 OR s.receiver_id = $1) AND s.status = 'pending'
		RETURNING ` + swapColumns

	rows, err := s.db.conn(ctx).Query(ctx, q, userID, when)
	if err != nil {
		return nil, fmt.Errorf("cancel pending swaps: %w", err)
	}
	defer rows.Close()

	out := []domain.SwapRequest{}
	for rows.Next() {
		r, err := scanSwap(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan cancelled swap: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cancel pending swaps: %w", err)
	}
	return out, nil
}
