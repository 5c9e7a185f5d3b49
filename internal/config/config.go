package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Env          string
	Addr         string
	PublicURL    *url.URL
	DBDSN        string
	CookieSecret string
	JWTSecret    string
	SessionTTL   time.Duration
	LogLevel     string

	AdminBootstrapEmail    string
	AdminBootstrapName     string
	AdminBootstrapPassword string

	RedisAddr     string
	RedisPassword string
	StatsCacheTTL time.Duration

	SMTP SMTPConfig

	FCMProjectID   string
	FCMCredentials string

	GoogleClientID string
	AppleClientID  string

	AnnouncementSweep string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool
	From     string
	FromName string
}

func (c SMTPConfig) Enabled() bool { return c.Host != "" && c.From != "" }

// Load reads the process environment, first merging APP_ENV_FILE (default
// .env) when it exists. Variables already set win over the file.
func Load() (Config, error) {
	path := os.Getenv("APP_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := loadDotEnvFile(path, os.Setenv, os.Getenv); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:          getenv("APP_ENV"),
		Addr:         getenv("APP_ADDR"),
		DBDSN:        getenv("APP_DB_DSN"),
		LogLevel:     getenv("APP_LOG_LEVEL"),
		CookieSecret: getenv("APP_COOKIE_SECRET"),
		JWTSecret:    getenv("APP_JWT_SECRET"),

		RedisAddr:     strings.TrimSpace(getenv("APP_REDIS_ADDR")),
		RedisPassword: getenv("APP_REDIS_PASSWORD"),

		FCMProjectID:   strings.TrimSpace(getenv("APP_FCM_PROJECT_ID")),
		FCMCredentials: strings.TrimSpace(getenv("APP_FCM_CREDENTIALS")),

		GoogleClientID: strings.TrimSpace(getenv("APP_GOOGLE_CLIENT_ID")),
		AppleClientID:  strings.TrimSpace(getenv("APP_APPLE_CLIENT_ID")),

		AnnouncementSweep: strings.TrimSpace(getenv("APP_ANNOUNCEMENT_SWEEP")),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.AnnouncementSweep == "" {
		cfg.AnnouncementSweep = "@every 10m"
	}
	if _, err := cron.ParseStandard(cfg.AnnouncementSweep); err != nil {
		return Config{}, fmt.Errorf("APP_ANNOUNCEMENT_SWEEP: %w", err)
	}

	publicURLRaw := getenv("APP_PUBLIC_URL")
	if publicURLRaw != "" {
		parsed, err := url.Parse(publicURLRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_PUBLIC_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_PUBLIC_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return Config{}, errors.New("APP_PUBLIC_URL: scheme must be http or https")
		}
		cfg.PublicURL = parsed
	}

	var err error
	if cfg.SessionTTL, err = parseDuration(getenv, "APP_SESSION_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.StatsCacheTTL, err = parseDuration(getenv, "APP_STATS_CACHE_TTL", time.Minute); err != nil {
		return Config{}, err
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	cfg.AdminBootstrapEmail = strings.TrimSpace(strings.ToLower(getenv("APP_ADMIN_BOOTSTRAP_EMAIL")))
	cfg.AdminBootstrapName = strings.TrimSpace(getenv("APP_ADMIN_BOOTSTRAP_NAME"))
	cfg.AdminBootstrapPassword = getenv("APP_ADMIN_BOOTSTRAP_PASSWORD")

	if cfg.AdminBootstrapPassword != "" && cfg.AdminBootstrapEmail == "" {
		return Config{}, errors.New("APP_ADMIN_BOOTSTRAP_EMAIL: required when APP_ADMIN_BOOTSTRAP_PASSWORD is set")
	}
	if cfg.AdminBootstrapPassword != "" && cfg.AdminBootstrapName == "" {
		cfg.AdminBootstrapName = "Administrator"
	}

	cfg.SMTP = SMTPConfig{
		Host:     strings.TrimSpace(getenv("APP_SMTP_HOST")),
		Username: getenv("APP_SMTP_USERNAME"),
		Password: getenv("APP_SMTP_PASSWORD"),
		From:     strings.TrimSpace(getenv("APP_SMTP_FROM")),
		FromName: strings.TrimSpace(getenv("APP_SMTP_FROM_NAME")),
		Port:     587,
	}
	if raw := strings.TrimSpace(getenv("APP_SMTP_PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, errors.New("APP_SMTP_PORT: must be a valid port")
		}
		cfg.SMTP.Port = port
	}
	if raw := strings.TrimSpace(getenv("APP_SMTP_TLS")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_SMTP_TLS: %w", err)
		}
		cfg.SMTP.TLS = v
	}
	if cfg.SMTP.FromName == "" {
		cfg.SMTP.FromName = "Skill Swap"
	}

	if (cfg.FCMProjectID == "") != (cfg.FCMCredentials == "") {
		return Config{}, errors.New("APP_FCM_PROJECT_ID and APP_FCM_CREDENTIALS must be set together")
	}

	if cfg.IsProd() {
		if cfg.PublicURL == nil {
			return Config{}, errors.New("APP_PUBLIC_URL: required in prod")
		}
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.CookieSecret) < 32 {
			return Config{}, errors.New("APP_COOKIE_SECRET: must be at least 32 bytes in prod")
		}
		if len(cfg.JWTSecret) < 32 {
			return Config{}, errors.New("APP_JWT_SECRET: must be at least 32 bytes in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool {
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}

func parseDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be > 0", key)
	}
	return d, nil
}
