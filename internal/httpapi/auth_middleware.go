package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"skillswap/internal/auth"
	"skillswap/internal/domain"
)

type authCtxKey int

const (
	authUserKey authCtxKey = iota
	authSessionKey
)

// requireAuth accepts either the session cookie or a bearer access token.
// Banned users are rejected on every authenticated route.
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			u      domain.User
			sessID string
			err    error
		)
		if raw, ok := auth.BearerToken(r); ok {
			u, err = a.authSvc.GetUserForToken(r.Context(), raw)
		} else {
			var ok bool
			sessID, ok = a.cookieCodec.SessionID(r)
			if !ok {
				WriteDomainError(w, domain.ErrUnauthorized)
				return
			}
			u, err = a.authSvc.GetUserForSession(r.Context(), sessID)
		}
		if err != nil {
			WriteDomainError(w, err)
			return
		}

		notePrincipal(r.Context(), u)
		ctx := context.WithValue(r.Context(), authUserKey, u)
		if sessID != "" {
			ctx = context.WithValue(ctx, authSessionKey, sessID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func (a *api) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r.Context())
		if !ok || !u.IsAdmin {
			WriteDomainError(w, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func CurrentUser(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(authUserKey).(domain.User)
	return u, ok
}

func CurrentSessionID(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(authSessionKey).(string)
	return s, ok
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
