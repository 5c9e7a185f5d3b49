package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapAccepted  SwapStatus = "accepted"
	SwapRejected  SwapStatus = "rejected"
	SwapCompleted SwapStatus = "completed"
	SwapCancelled SwapStatus = "cancelled"
)

var SwapStatuses = []SwapStatus{SwapPending, SwapAccepted, SwapRejected, SwapCompleted, SwapCancelled}

var swapTransitions = map[SwapStatus][]SwapStatus{
	SwapPending:  {SwapAccepted, SwapRejected, SwapCancelled},
	SwapAccepted: {SwapCompleted, SwapCancelled},
}

func (s SwapStatus) Valid() bool {
	for _, v := range SwapStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Open statuses are covered by the duplicate-request constraint.
func (s SwapStatus) Open() bool {
	return s == SwapPending || s == SwapAccepted
}

func (s SwapStatus) Terminal() bool {
	return s == SwapRejected || s == SwapCompleted || s == SwapCancelled
}

func CanTransition(from, to SwapStatus) bool {
	for _, next := range swapTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	MaxSkillLength    = 50
	MaxSkills         = 20
	MaxMessageLength  = 500
	MaxFeedbackLength = 500
	MinRating         = 1
	MaxRating         = 5
)

type SwapRequest struct {
	ID           string      `json:"id"`
	RequesterID  string      `json:"requester_id"`
	ReceiverID   string      `json:"receiver_id"`
	Requester    UserSummary `json:"requester"`
	Receiver     UserSummary `json:"receiver"`
	SkillOffered string      `json:"skill_offered"`
	SkillWanted  string      `json:"skill_wanted"`
	Message      string      `json:"message,omitempty"`
	Status       SwapStatus  `json:"status"`
	Rating       *int        `json:"rating,omitempty"`
	Feedback     string      `json:"feedback,omitempty"`
	RatedUserID  string      `json:"rated_user_id,omitempty"`
	AcceptedAt   *time.Time  `json:"accepted_at,omitempty"`
	RejectedAt   *time.Time  `json:"rejected_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	CancelledAt  *time.Time  `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (r SwapRequest) IsParty(userID string) bool {
	return userID != "" && (r.RequesterID == userID || r.ReceiverID == userID)
}

// Counterpart returns the other party of the swap, or "" when userID is
// not a party.
func (r SwapRequest) Counterpart(userID string) string {
	switch userID {
	case r.RequesterID:
		return r.ReceiverID
	case r.ReceiverID:
		return r.RequesterID
	}
	return ""
}

// Transition moves r to next and stamps the matching timestamp if it is
// not set yet.
func (r *SwapRequest) Transition(next SwapStatus, when time.Time) error {
	if !CanTransition(r.Status, next) {
		return NewInvalidOperation("cannot move swap from " + string(r.Status) + " to " + string(next))
	}
	r.Status = next
	r.UpdatedAt = when
	stamp := func(t **time.Time) {
		if *t == nil {
			w := when
			*t = &w
		}
	}
	switch next {
	case SwapAccepted:
		stamp(&r.AcceptedAt)
	case SwapRejected:
		stamp(&r.RejectedAt)
	case SwapCompleted:
		stamp(&r.CompletedAt)
	case SwapCancelled:
		stamp(&r.CancelledAt)
	}
	return nil
}

type CreateSwapParams struct {
	ReceiverID   string
	SkillOffered string
	SkillWanted  string
	Message      string
}

func (p *CreateSwapParams) Normalize() {
	p.ReceiverID = strings.TrimSpace(p.ReceiverID)
	p.SkillOffered = strings.TrimSpace(p.SkillOffered)
	p.SkillWanted = strings.TrimSpace(p.SkillWanted)
	p.Message = strings.TrimSpace(p.Message)
}

func (p CreateSwapParams) Validate() error {
	fields := map[string]string{}
	if p.ReceiverID == "" {
		fields["receiver_id"] = "required"
	}
	validateSkill(fields, "skill_offered", p.SkillOffered)
	validateSkill(fields, "skill_wanted", p.SkillWanted)
	if utf8.RuneCountInString(p.Message) > MaxMessageLength {
		fields["message"] = "must be 500 characters or less"
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

func ValidateCompletion(rating int, feedback string) error {
	fields := map[string]string{}
	if rating < MinRating || rating > MaxRating {
		fields["rating"] = "must be between 1 and 5"
	}
	if utf8.RuneCountInString(feedback) > MaxFeedbackLength {
		fields["feedback"] = "must be 500 characters or less"
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

func validateSkill(fields map[string]string, key, skill string) {
	switch {
	case skill == "":
		fields[key] = "required"
	case utf8.RuneCountInString(skill) > MaxSkillLength:
		fields[key] = "must be 50 characters or less"
	}
}

// SwapCompletedEvent is emitted inside the completion transaction and consumed
// by the rating aggregator.
type SwapCompletedEvent struct {
	RequestID   string
	RatedUserID string
	Rating      int
}

type SwapListRole string

const (
	SwapRoleAll      SwapListRole = "all"
	SwapRoleSent     SwapListRole = "sent"
	SwapRoleReceived SwapListRole = "received"
)

type SwapListFilter struct {
	UserID string
	Role   SwapListRole
	Status SwapStatus
	Limit  int
	Offset int
}

// SwapStats holds swap counts grouped by status. Every status is always
// reported, so the counts sum to Total.
type SwapStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

func (s *SwapStats) Add(status SwapStatus, n int) {
	switch status {
	case SwapPending:
		s.Pending += n
	case SwapAccepted:
		s.Accepted += n
	case SwapRejected:
		s.Rejected += n
	case SwapCompleted:
		s.Completed += n
	case SwapCancelled:
		s.Cancelled += n
	default:
		return
	}
	s.Total += n
}

type SwapPage struct {
	Swaps  []SwapRequest `json:"swaps"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}
