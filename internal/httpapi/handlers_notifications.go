package httpapi

import (
	"net/http"
	"strings"

	"skillswap/internal/domain"
)

type notificationTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (a *api) handleNotificationsTokenUpsert(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req notificationTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	out, err := a.notificationsSvc.RegisterToken(r.Context(), u.ID, req.Token, req.Platform)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func (a *api) handleNotificationsTokenDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if err := a.notificationsSvc.DeleteToken(r.Context(), u.ID, token); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
