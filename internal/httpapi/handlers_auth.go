package httpapi

import (
	"net/http"
	"strings"
	"time"

	"skillswap/internal/auth"
	"skillswap/internal/domain"
	"skillswap/internal/service"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginResponse struct {
	User        domain.User `json:"user"`
	AccessToken string      `json:"access_token,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
}

func (a *api) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	res, err := a.authSvc.Register(r.Context(), domain.Registration{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	}, clientIP(r), r.UserAgent())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	a.writeLogin(w, http.StatusCreated, res)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	req.Email = domain.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "required", "password": "required"}))
		return
	}

	now := time.Now()
	ip := clientIP(r)
	if !a.loginLimiter.Allow("ip:"+ip, now) || !a.loginLimiter.Allow("login:"+req.Email, now) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
		return
	}

	res, err := a.authSvc.Login(r.Context(), req.Email, req.Password, ip, r.UserAgent())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	a.writeLogin(w, http.StatusOK, res)
}

type externalLoginRequest struct {
	IDToken string `json:"id_token"`
}

func (a *api) handleAuthExternal(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req externalLoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeBadJSON(w)
			return
		}
		req.IDToken = strings.TrimSpace(req.IDToken)
		if req.IDToken == "" {
			WriteDomainError(w, domain.NewValidationError(map[string]string{"id_token": "required"}))
			return
		}

		ip := clientIP(r)
		if !a.loginLimiter.Allow("ip:"+ip, time.Now()) {
			WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
			return
		}

		res, err := a.authSvc.LoginExternal(r.Context(), provider, req.IDToken, ip, r.UserAgent())
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		a.writeLogin(w, http.StatusOK, res)
	}
}

func (a *api) writeLogin(w http.ResponseWriter, status int, res service.LoginResult) {
	auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(res.SessionID), a.sessionTTL, a.cookieSecure)

	out := loginResponse{User: res.User, AccessToken: res.AccessToken}
	if !res.TokenExpiry.IsZero() {
		exp := res.TokenExpiry.UTC()
		out.ExpiresAt = &exp
	}
	WriteJSON(w, status, out)
}

func (a *api) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if sessID, ok := CurrentSessionID(r.Context()); ok {
		if err := a.authSvc.Logout(r.Context(), sessID); err != nil {
			a.logger.Warn("logout failed", "err", err)
		}
	}
	auth.ClearSessionCookie(w, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}
