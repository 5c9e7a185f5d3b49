package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"skillswap/internal/auth"
	"skillswap/internal/cache"
	"skillswap/internal/config"
	"skillswap/internal/domain"
	"skillswap/internal/email"
	"skillswap/internal/httpapi"
	"skillswap/internal/jobs"
	"skillswap/internal/notifications"
	"skillswap/internal/service"
	"skillswap/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	var (
		opts = httpapi.RouterOpts{
			Logger:       logger,
			IsProd:       cfg.IsProd(),
			CookieCodec:  auth.NewCookieCodec([]byte(cfg.CookieSecret)),
			CookieSecure: cfg.CookieSecure(),
			SessionTTL:   cfg.SessionTTL,
		}
		notifier  *service.NotificationService
		scheduler *jobs.Scheduler
	)

	if cfg.DBDSN != "" {
		pgPool, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		db := postgres.NewDB(pgPool)
		if err := db.Migrate(ctx, logger); err != nil {
			logger.Error("db migrate failed", "err", err)
			os.Exit(1)
		}

		users := postgres.NewUsersStore(db)
		sessions := postgres.NewSessionsStore(db)

		if err := bootstrapAdminUser(ctx, logger, users, cfg.AdminBootstrapEmail, cfg.AdminBootstrapName, cfg.AdminBootstrapPassword); err != nil {
			logger.Error("bootstrap admin failed", "err", err)
			os.Exit(1)
		}

		statsSvc := &service.StatsService{
			Store:  postgres.NewStatsStore(db),
			Logger: logger,
		}
		redisClient, err := cache.Open(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Error("redis open failed", "err", err)
			os.Exit(1)
		}
		if redisClient != nil {
			defer redisClient.Close()
			statsSvc.Cache = cache.NewStatsCache(redisClient, cfg.StatsCacheTTL)
			logger.Info("stats cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.StatsCacheTTL)
		}

		notifier = &service.NotificationService{
			Tokens: postgres.NewNotificationTokensStore(db),
			Users:  users,
			Logger: logger,
		}
		if cfg.SMTP.Enabled() {
			notifier.Mail = email.NewSender(email.Settings{
				Host:        cfg.SMTP.Host,
				Port:        cfg.SMTP.Port,
				Username:    cfg.SMTP.Username,
				Password:    cfg.SMTP.Password,
				ImplicitTLS: cfg.SMTP.TLS,
				From:        cfg.SMTP.From,
				FromName:    cfg.SMTP.FromName,
			})
		}
		if cfg.FCMProjectID != "" {
			fcm, err := notifications.NewFCMSender(ctx, cfg.FCMProjectID, cfg.FCMCredentials)
			if err != nil {
				logger.Error("fcm init failed", "err", err)
				os.Exit(1)
			}
			notifier.Push = fcm
		}
		logger.Info("notifications", "email", cfg.SMTP.Enabled(), "push", cfg.FCMProjectID != "")

		verifiers := map[string]auth.IdentityVerifier{}
		if cfg.GoogleClientID != "" {
			verifiers["google"] = auth.GoogleVerifier{ClientID: cfg.GoogleClientID}
		}
		if cfg.AppleClientID != "" {
			verifiers["apple"] = auth.AppleVerifier{ClientID: cfg.AppleClientID}
		}

		authSvc := &service.AuthService{
			Users:      users,
			Sessions:   sessions,
			Verifiers:  verifiers,
			SessionTTL: cfg.SessionTTL,
			Logger:     logger,
		}
		if cfg.JWTSecret != "" {
			authSvc.Tokens = auth.NewTokens([]byte(cfg.JWTSecret), cfg.SessionTTL)
		}

		swapSvc := &service.SwapService{
			Tx:       db,
			Swaps:    postgres.NewSwapsStore(db),
			Users:    users,
			Ratings:  &service.RatingService{Store: postgres.NewRatingsStore(db)},
			Notifier: notifier,
			Stats:    statsSvc,
			Logger:   logger,
		}
		announcementSvc := &service.AnnouncementService{
			Store:  postgres.NewAnnouncementsStore(db),
			Stats:  statsSvc,
			Logger: logger,
		}

		opts.DBPing = db.Ping
		opts.Auth = authSvc
		opts.Profile = &service.ProfileService{Users: users, Stats: statsSvc, Logger: logger}
		opts.Directory = &service.DirectoryService{Store: postgres.NewDirectoryStore(db), Users: users}
		opts.Swaps = swapSvc
		opts.Stats = statsSvc
		opts.Admin = &service.AdminService{
			Tx:       db,
			Users:    postgres.NewAdminUsersStore(db),
			Swaps:    swapSvc,
			Sessions: sessions,
			Stats:    statsSvc,
			Notifier: notifier,
			Logger:   logger,
		}
		opts.Announcements = announcementSvc
		opts.Notifications = notifier

		scheduler = jobs.NewScheduler(logger, time.Minute)
		if err := scheduler.Add("announcement_sweep", cfg.AnnouncementSweep, announcementSvc.SweepExpired); err != nil {
			logger.Error("scheduler setup failed", "err", err)
			os.Exit(1)
		}
		scheduler.Start()
	} else {
		logger.Warn("APP_DB_DSN not set: only /healthz and /metrics are served")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
		if scheduler != nil {
			scheduler.Stop(shutdownCtx)
		}
		if notifier != nil {
			notifier.Wait()
		}
		logger.Info("server stopped")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

// bootstrapAdminUser makes sure the configured account exists, carries the
// configured password and is an admin.
func bootstrapAdminUser(ctx context.Context, logger *slog.Logger, users *postgres.UsersStore, email, name, password string) error {
	if password == "" {
		return nil
	}
	if len(password) < 12 {
		return errors.New("APP_ADMIN_BOOTSTRAP_PASSWORD: must be at least 12 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("admin bootstrap: hash password: %w", err)
	}

	var userID string
	existing, err := users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		userID = existing.ID
		if err := users.SetPasswordHash(ctx, userID, hash); err != nil {
			return fmt.Errorf("admin bootstrap: set password: %w", err)
		}
	case errors.Is(err, domain.ErrNotFound):
		u, err := users.CreateUser(ctx, email, name, hash)
		if err != nil {
			return fmt.Errorf("admin bootstrap: create user: %w", err)
		}
		userID = u.ID
		logger.Info("admin bootstrap: created admin user", "email", email)
	default:
		return fmt.Errorf("admin bootstrap: lookup user: %w", err)
	}

	if err := users.SetAdmin(ctx, userID, true); err != nil {
		return fmt.Errorf("admin bootstrap: grant admin: %w", err)
	}
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
