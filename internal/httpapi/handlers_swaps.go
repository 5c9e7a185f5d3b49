package httpapi

import (
	"context"
	"net/http"

	"skillswap/internal/domain"
)

type createSwapRequest struct {
	ReceiverID   string `json:"receiver_id"`
	SkillOffered string `json:"skill_offered"`
	SkillWanted  string `json:"skill_wanted"`
	Message      string `json:"message"`
}

func (a *api) handleSwapsCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req createSwapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	out, err := a.swapSvc.Create(r.Context(), u.ID, domain.CreateSwapParams{
		ReceiverID:   req.ReceiverID,
		SkillOffered: req.SkillOffered,
		SkillWanted:  req.SkillWanted,
		Message:      req.Message,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, out)
}

func (a *api) handleSwapsList(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	f, err := swapFilterFromQuery(r)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	page, err := a.swapSvc.ListForUser(r.Context(), u.ID, f)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

func (a *api) handleSwapsGet(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	out, err := a.swapSvc.Get(r.Context(), r.PathValue("id"), u.Principal())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func (a *api) handleSwapsDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	if err := a.swapSvc.Delete(r.Context(), r.PathValue("id"), u.ID); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type swapTransition func(ctx context.Context, requestID, actorID string) (domain.SwapRequest, error)

func (a *api) transition(w http.ResponseWriter, r *http.Request, fn swapTransition) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	out, err := fn(r.Context(), r.PathValue("id"), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func (a *api) handleSwapsAccept(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, a.swapSvc.Accept)
}

func (a *api) handleSwapsReject(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, a.swapSvc.Reject)
}

func (a *api) handleSwapsCancel(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, a.swapSvc.Cancel)
}

type completeSwapRequest struct {
	Rating   *int   `json:"rating"`
	Feedback string `json:"feedback"`
}

func (a *api) handleSwapsComplete(w http.ResponseWriter, r *http.Request) {
	var req completeSwapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	if req.Rating == nil {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"rating": "required"}))
		return
	}
	a.transition(w, r, func(ctx context.Context, requestID, actorID string) (domain.SwapRequest, error) {
		return a.swapSvc.Complete(ctx, requestID, actorID, *req.Rating, req.Feedback)
	})
}
