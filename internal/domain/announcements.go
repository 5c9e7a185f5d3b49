package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

type AnnouncementType string

const (
	AnnouncementInfo    AnnouncementType = "info"
	AnnouncementWarning AnnouncementType = "warning"
	AnnouncementSuccess AnnouncementType = "success"
	AnnouncementError   AnnouncementType = "error"
)

func (t AnnouncementType) Valid() bool {
	switch t {
	case AnnouncementInfo, AnnouncementWarning, AnnouncementSuccess, AnnouncementError:
		return true
	}
	return false
}

type Announcement struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      AnnouncementType `json:"type"`
	IsActive  bool             `json:"is_active"`
	CreatedBy string           `json:"created_by"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type AnnouncementInput struct {
	Title     string
	Message   string
	Type      AnnouncementType
	ExpiresAt *time.Time
}

func (in *AnnouncementInput) Validate(now time.Time) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if in.Type == "" {
		in.Type = AnnouncementInfo
	}

	fields := map[string]string{}
	switch n := utf8.RuneCountInString(in.Title); {
	case n == 0:
		fields["title"] = "required"
	case n > 100:
		fields["title"] = "must be 100 characters or less"
	}
	switch n := utf8.RuneCountInString(in.Message); {
	case n == 0:
		fields["message"] = "required"
	case n > 1000:
		fields["message"] = "must be 1000 characters or less"
	}
	if !in.Type.Valid() {
		fields["type"] = "must be one of info, warning, success, error"
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		fields["expires_at"] = "must be in the future"
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}
