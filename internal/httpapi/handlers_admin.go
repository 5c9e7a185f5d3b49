package httpapi

import (
	"net/http"
	"strings"

	"skillswap/internal/domain"
)

func (a *api) handleAdminUsersList(w http.ResponseWriter, r *http.Request) {
	fields := map[string]string{}
	limit := queryInt(r, "limit", fields)
	offset := queryInt(r, "offset", fields)
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}
	page, err := a.adminSvc.ListUsers(r.Context(), r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

type banRequest struct {
	Reason string `json:"reason"`
}

func (a *api) handleAdminBan(w http.ResponseWriter, r *http.Request) {
	admin, _ := CurrentUser(r.Context())

	var req banRequest
	if _, err := decodeJSONAllowEmpty(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	if len([]rune(strings.TrimSpace(req.Reason))) > 500 {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"reason": "must be 500 characters or less"}))
		return
	}

	res, err := a.adminSvc.Ban(r.Context(), admin.Principal(), r.PathValue("id"), req.Reason)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (a *api) handleAdminUnban(w http.ResponseWriter, r *http.Request) {
	admin, _ := CurrentUser(r.Context())
	u, err := a.adminSvc.Unban(r.Context(), admin.Principal(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}

func (a *api) handleAdminUserStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.adminSvc.UserStats(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

func (a *api) handleAdminSwaps(w http.ResponseWriter, r *http.Request) {
	f, err := swapFilterFromQuery(r)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	page, err := a.adminSvc.ListSwaps(r.Context(), f)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

func (a *api) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	ps, err := a.adminSvc.PlatformStats(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ps)
}

func (a *api) handleAdminActivity(w http.ResponseWriter, r *http.Request) {
	fields := map[string]string{}
	limit := queryInt(r, "limit", fields)
	offset := queryInt(r, "offset", fields)
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}
	rows, err := a.adminSvc.ActivityReport(r.Context(), limit, offset)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.ActivityRow{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": rows, "limit": limit, "offset": offset})
}
