package httpapi

import (
	"net/http"
	"time"

	"skillswap/internal/domain"
)

func (a *api) handleAnnouncementsList(w http.ResponseWriter, r *http.Request) {
	items, err := a.announcementSvc.ListActive(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"announcements": items})
}

func (a *api) handleAdminAnnouncementsList(w http.ResponseWriter, r *http.Request) {
	items, err := a.announcementSvc.ListAll(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"announcements": items})
}

type createAnnouncementRequest struct {
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (a *api) handleAdminAnnouncementsCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	var req createAnnouncementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	out, err := a.announcementSvc.Create(r.Context(), u.ID, domain.AnnouncementInput{
		Title:     req.Title,
		Message:   req.Message,
		Type:      domain.AnnouncementType(req.Type),
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, out)
}

type updateAnnouncementRequest struct {
	IsActive *bool `json:"is_active"`
}

func (a *api) handleAdminAnnouncementsUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateAnnouncementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	if req.IsActive == nil {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"is_active": "required"}))
		return
	}
	out, err := a.announcementSvc.SetActive(r.Context(), r.PathValue("id"), *req.IsActive)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func (a *api) handleAdminAnnouncementsDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.announcementSvc.Delete(r.Context(), r.PathValue("id")); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
