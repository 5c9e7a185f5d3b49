package domain

import "time"

type NotificationToken struct {
	ID        string    `json:"-"`
	UserID    string    `json:"-"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EventKind string

const (
	EventSwapRequested EventKind = "swap_requested"
	EventSwapAccepted  EventKind = "swap_accepted"
	EventSwapRejected  EventKind = "swap_rejected"
	EventSwapCompleted EventKind = "swap_completed"
	EventSwapCancelled EventKind = "swap_cancelled"
	EventUserBanned    EventKind = "user_banned"
)

// Event is a notification addressed to a single user.
type Event struct {
	Kind        EventKind
	UserID      string
	ActorID     string
	SwapID      string
	SkillWanted string
	Reason      string
}
