package httpapi

import (
	"net/http"
	"strings"

	"skillswap/internal/domain"
)

func (a *api) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	me, err := a.profileSvc.Me(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, me)
}

type updateProfileRequest struct {
	Name          *string   `json:"name"`
	Location      *string   `json:"location"`
	Bio           *string   `json:"bio"`
	ProfilePhoto  *string   `json:"profile_photo"`
	SkillsOffered *[]string `json:"skills_offered"`
	SkillsWanted  *[]string `json:"skills_wanted"`
	Availability  *[]string `json:"availability"`
	IsPublic      *bool     `json:"is_public"`
}

func (req updateProfileRequest) toUpdate() domain.ProfileUpdate {
	p := domain.ProfileUpdate{
		Name:         req.Name,
		Location:     req.Location,
		Bio:          req.Bio,
		ProfilePhoto: req.ProfilePhoto,
		IsPublic:     req.IsPublic,
	}
	if req.SkillsOffered != nil {
		p.SkillsOffered, p.SetSkillsOffered = *req.SkillsOffered, true
	}
	if req.SkillsWanted != nil {
		p.SkillsWanted, p.SetSkillsWanted = *req.SkillsWanted, true
	}
	if req.Availability != nil {
		p.Availability, p.SetAvailability = *req.Availability, true
	}
	return p
}

func (a *api) handleUsersMeUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	updated, err := a.profileSvc.Update(r.Context(), u.ID, req.toUpdate())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

func (a *api) handleUsersMeStats(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	st, err := a.statsSvc.GetUserStats(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

func (a *api) handleUsersSearch(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	fields := map[string]string{}
	q := r.URL.Query()
	query := domain.DirectoryQuery{
		Q:            strings.TrimSpace(q.Get("q")),
		Skill:        strings.TrimSpace(q.Get("skill")),
		Location:     strings.TrimSpace(q.Get("location")),
		Availability: q.Get("availability"),
		Page:         queryInt(r, "page", fields),
		Limit:        queryInt(r, "limit", fields),
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}

	page, err := a.directorySvc.Search(r.Context(), u.ID, query)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

func (a *api) handleUsersGet(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	profile, err := a.directorySvc.PublicProfile(r.Context(), r.PathValue("id"), u.Principal())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}
