package domain

type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

type UserCounts struct {
	Total  int `json:"total"`
	Public int `json:"public"`
	Banned int `json:"banned"`
	Admins int `json:"admins"`
}

type PlatformStats struct {
	Users               UserCounts   `json:"users"`
	Swaps               SwapStats    `json:"swaps"`
	ActiveAnnouncements int          `json:"active_announcements"`
	TopSkillsOffered    []SkillCount `json:"top_skills_offered"`
	TopSkillsWanted     []SkillCount `json:"top_skills_wanted"`
}

type ActivityRow struct {
	User         UserSummary `json:"user"`
	Email        string      `json:"email"`
	IsBanned     bool        `json:"is_banned"`
	TotalRatings int         `json:"total_ratings"`
	Swaps        SwapStats   `json:"swaps"`
}
