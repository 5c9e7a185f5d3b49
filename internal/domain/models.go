package domain

import "time"

const DefaultRating = 5.0

type Availability string

const (
	AvailabilityWeekdays   Availability = "weekdays"
	AvailabilityWeekends   Availability = "weekends"
	AvailabilityMornings   Availability = "mornings"
	AvailabilityAfternoons Availability = "afternoons"
	AvailabilityEvenings   Availability = "evenings"
	AvailabilityFlexible   Availability = "flexible"
)

func (a Availability) Valid() bool {
	switch a {
	case AvailabilityWeekdays, AvailabilityWeekends, AvailabilityMornings,
		AvailabilityAfternoons, AvailabilityEvenings, AvailabilityFlexible:
		return true
	}
	return false
}

type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email,omitempty"`
	Name          string     `json:"name"`
	Location      string     `json:"location,omitempty"`
	Bio           string     `json:"bio,omitempty"`
	ProfilePhoto  string     `json:"profile_photo,omitempty"`
	SkillsOffered []string   `json:"skills_offered"`
	SkillsWanted  []string   `json:"skills_wanted"`
	Availability  []string   `json:"availability"`
	IsPublic      bool       `json:"is_public"`
	IsAdmin       bool       `json:"is_admin"`
	IsBanned      bool       `json:"is_banned"`
	BannedAt      *time.Time `json:"banned_at,omitempty"`
	Rating        float64    `json:"rating"`
	TotalRatings  int        `json:"total_ratings"`
	RatingSum     int        `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

type UserWithPassword struct {
	User
	PasswordHash string
}

// Offers reports whether skill is listed in the user's offered skills.
// Matching is case-sensitive.
func (u User) Offers(skill string) bool {
	for _, s := range u.SkillsOffered {
		if s == skill {
			return true
		}
	}
	return false
}

// Available reports whether the user can be the target of a new swap.
func (u User) Available() bool {
	return u.IsPublic && !u.IsBanned
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Name:         u.Name,
		ProfilePhoto: u.ProfilePhoto,
		Rating:       u.Rating,
	}
}

type UserSummary struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ProfilePhoto string  `json:"profile_photo,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
}

// Principal is the authenticated caller as seen by the services.
type Principal struct {
	ID       string
	IsAdmin  bool
	IsBanned bool
}

func (u User) Principal() Principal {
	return Principal{ID: u.ID, IsAdmin: u.IsAdmin, IsBanned: u.IsBanned}
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

type DirectoryQuery struct {
	Q             string
	Skill         string
	Location      string
	Availability  string
	Page          int
	Limit         int
	ExcludeUserID string
}

type DirectoryPage struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Pages int    `json:"pages"`
}

type UserPage struct {
	Users  []User `json:"users"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}
