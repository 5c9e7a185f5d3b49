package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"skillswap/internal/auth"
	"skillswap/internal/metrics"
	"skillswap/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth          *service.AuthService
	Profile       *service.ProfileService
	Directory     *service.DirectoryService
	Swaps         *service.SwapService
	Stats         *service.StatsService
	Admin         *service.AdminService
	Announcements *service.AnnouncementService
	Notifications *service.NotificationService

	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:           logger,
		isProd:           opts.IsProd,
		dbPing:           opts.DBPing,
		authSvc:          opts.Auth,
		profileSvc:       opts.Profile,
		directorySvc:     opts.Directory,
		swapSvc:          opts.Swaps,
		statsSvc:         opts.Stats,
		adminSvc:         opts.Admin,
		announcementSvc:  opts.Announcements,
		notificationsSvc: opts.Notifications,
		cookieCodec:      opts.CookieCodec,
		cookieSecure:     opts.CookieSecure,
		sessionTTL:       opts.SessionTTL,
		loginLimiter:     newLoginLimiter(),
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)
	publicMux.Handle("GET /metrics", metrics.Handler())

	if api.authSvc == nil {
		apiMux.HandleFunc("/v1/", handleNotImplemented)
	} else {
		apiMux.HandleFunc("POST /v1/auth/register", api.handleAuthRegister)
		apiMux.HandleFunc("POST /v1/auth/login", api.handleAuthLogin)
		apiMux.HandleFunc("POST /v1/auth/google", api.handleAuthExternal(auth.ProviderGoogle))
		apiMux.HandleFunc("POST /v1/auth/apple", api.handleAuthExternal(auth.ProviderApple))
		apiMux.HandleFunc("POST /v1/auth/logout", api.requireAuth(api.handleAuthLogout))

		if api.profileSvc != nil {
			apiMux.HandleFunc("GET /v1/users/me", api.requireAuth(api.handleUsersMe))
			apiMux.HandleFunc("PATCH /v1/users/me", api.requireAuth(api.handleUsersMeUpdate))
		}
		if api.statsSvc != nil {
			apiMux.HandleFunc("GET /v1/users/me/stats", api.requireAuth(api.handleUsersMeStats))
		}
		if api.directorySvc != nil {
			apiMux.HandleFunc("GET /v1/users", api.requireAuth(api.handleUsersSearch))
			apiMux.HandleFunc("GET /v1/users/{id}", api.requireAuth(api.handleUsersGet))
		}

		if api.swapSvc != nil {
			apiMux.HandleFunc("POST /v1/swaps", api.requireAuth(api.handleSwapsCreate))
			apiMux.HandleFunc("GET /v1/swaps", api.requireAuth(api.handleSwapsList))
			apiMux.HandleFunc("GET /v1/swaps/{id}", api.requireAuth(api.handleSwapsGet))
			apiMux.HandleFunc("DELETE /v1/swaps/{id}", api.requireAuth(api.handleSwapsDelete))
			apiMux.HandleFunc("POST /v1/swaps/{id}/accept", api.requireAuth(api.handleSwapsAccept))
			apiMux.HandleFunc("POST /v1/swaps/{id}/reject", api.requireAuth(api.handleSwapsReject))
			apiMux.HandleFunc("POST /v1/swaps/{id}/cancel", api.requireAuth(api.handleSwapsCancel))
			apiMux.HandleFunc("POST /v1/swaps/{id}/complete", api.requireAuth(api.handleSwapsComplete))
		}

		if api.announcementSvc != nil {
			apiMux.HandleFunc("GET /v1/announcements", api.requireAuth(api.handleAnnouncementsList))
		}

		if api.notificationsSvc != nil {
			apiMux.HandleFunc("POST /v1/notifications/tokens", api.requireAuth(api.handleNotificationsTokenUpsert))
			apiMux.HandleFunc("DELETE /v1/notifications/tokens", api.requireAuth(api.handleNotificationsTokenDelete))
		}

		if api.adminSvc != nil {
			apiMux.HandleFunc("GET /v1/admin/users", api.requireAdmin(api.handleAdminUsersList))
			apiMux.HandleFunc("POST /v1/admin/users/{id}/ban", api.requireAdmin(api.handleAdminBan))
			apiMux.HandleFunc("POST /v1/admin/users/{id}/unban", api.requireAdmin(api.handleAdminUnban))
			apiMux.HandleFunc("GET /v1/admin/users/{id}/stats", api.requireAdmin(api.handleAdminUserStats))
			apiMux.HandleFunc("GET /v1/admin/swaps", api.requireAdmin(api.handleAdminSwaps))
			apiMux.HandleFunc("GET /v1/admin/stats", api.requireAdmin(api.handleAdminStats))
			apiMux.HandleFunc("GET /v1/admin/reports/activity", api.requireAdmin(api.handleAdminActivity))
		}
		if api.adminSvc != nil && api.announcementSvc != nil {
			apiMux.HandleFunc("GET /v1/admin/announcements", api.requireAdmin(api.handleAdminAnnouncementsList))
			apiMux.HandleFunc("POST /v1/admin/announcements", api.requireAdmin(api.handleAdminAnnouncementsCreate))
			apiMux.HandleFunc("PATCH /v1/admin/announcements/{id}", api.requireAdmin(api.handleAdminAnnouncementsUpdate))
			apiMux.HandleFunc("DELETE /v1/admin/announcements/{id}", api.requireAdmin(api.handleAdminAnnouncementsDelete))
		}
	}

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Dispatch through ServeHTTP so PathValue and r.Pattern are set.
		if _, pattern := apiMux.Handler(r); pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		apiMux.ServeHTTP(w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = metrics.InstrumentHandler(h)
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc          *service.AuthService
	profileSvc       *service.ProfileService
	directorySvc     *service.DirectoryService
	swapSvc          *service.SwapService
	statsSvc         *service.StatsService
	adminSvc         *service.AdminService
	announcementSvc  *service.AnnouncementService
	notificationsSvc *service.NotificationService

	cookieCodec  auth.CookieCodec
	cookieSecure bool
	sessionTTL   time.Duration

	loginLimiter *loginLimiter
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
