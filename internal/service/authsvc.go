package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"skillswap/internal/auth"
	"skillswap/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, email, name, passwordHash string) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	SetLastLogin(ctx context.Context, userID string, when time.Time) error
	SetPasswordHash(ctx context.Context, userID, passwordHash string) error
}

type SessionsStore interface {
	CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	RevokeSession(ctx context.Context, sessionID string, when time.Time) error
}

type AccessTokens interface {
	Enabled() bool
	Issue(userID string, isAdmin bool) (string, time.Time, error)
	Parse(raw string) (*auth.Claims, error)
}

// LoginResult is what a successful sign-in hands back to the transport.
type LoginResult struct {
	User        domain.User
	SessionID   string
	AccessToken string
	TokenExpiry time.Time
}

type AuthService struct {
	Users      UsersStore
	Sessions   SessionsStore
	Tokens     AccessTokens
	Verifiers  map[string]auth.IdentityVerifier
	SessionTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *AuthService) Register(ctx context.Context, reg domain.Registration, ip, userAgent string) (LoginResult, error) {
	if err := reg.Validate(); err != nil {
		return LoginResult{}, err
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return LoginResult{}, err
	}
	u, err := s.Users.CreateUser(ctx, reg.Email, reg.Name, hash)
	if err != nil {
		return LoginResult{}, err
	}
	return s.startSession(ctx, u, ip, userAgent)
}

func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, domain.ErrInvalidCredentials
	}

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return LoginResult{}, domain.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if u.PasswordHash == "" {
		return LoginResult{}, domain.ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		return LoginResult{}, domain.ErrInvalidCredentials
	}
	if u.IsBanned {
		return LoginResult{}, domain.ErrUserBanned
	}

	if auth.NeedsRehash(u.PasswordHash) {
		if hash, err := auth.HashPassword(password); err == nil {
			if err := s.Users.SetPasswordHash(ctx, u.ID, hash); err != nil {
				s.logger().Warn("password rehash failed", "user_id", u.ID, "err", err)
			}
		}
	}
	return s.startSession(ctx, u.User, ip, userAgent)
}

// LoginExternal signs in with a Google or Apple ID token. The verified
// email finds the account, or creates one without a password.
func (s *AuthService) LoginExternal(ctx context.Context, provider, idToken, ip, userAgent string) (LoginResult, error) {
	verifier, ok := s.Verifiers[provider]
	if !ok || verifier == nil {
		return LoginResult{}, domain.ErrNotFound
	}

	id, err := verifier.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, auth.ErrProviderDisabled) {
			return LoginResult{}, domain.ErrNotFound
		}
		s.logger().Info("external id token rejected", "provider", provider, "err", err)
		return LoginResult{}, domain.ErrUnauthorized
	}
	if id.Email == "" {
		return LoginResult{}, domain.NewValidationError(map[string]string{"id_token": "token carries no email"})
	}

	existing, err := s.Users.GetUserByEmail(ctx, id.Email)
	switch {
	case err == nil:
		if existing.IsBanned {
			return LoginResult{}, domain.ErrUserBanned
		}
		return s.startSession(ctx, existing.User, ip, userAgent)
	case !errors.Is(err, domain.ErrNotFound):
		return LoginResult{}, err
	}

	u, err := s.Users.CreateUser(ctx, id.Email, externalDisplayName(id), "")
	if errors.Is(err, domain.ErrEmailTaken) {
		// Lost a race with a concurrent sign-up for the same address.
		existing, err := s.Users.GetUserByEmail(ctx, id.Email)
		if err != nil {
			return LoginResult{}, err
		}
		return s.startSession(ctx, existing.User, ip, userAgent)
	}
	if err != nil {
		return LoginResult{}, err
	}
	return s.startSession(ctx, u, ip, userAgent)
}

func externalDisplayName(id auth.Identity) string {
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name, _, _ = strings.Cut(id.Email, "@")
	}
	if utf8.RuneCountInString(name) < 2 {
		name = "Member"
	}
	if r := []rune(name); len(r) > 50 {
		name = string(r[:50])
	}
	return name
}

func (s *AuthService) startSession(ctx context.Context, u domain.User, ip, userAgent string) (LoginResult, error) {
	now := s.now()
	sessID, err := s.Sessions.CreateSession(ctx, u.ID, now.Add(s.SessionTTL), ip, userAgent)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.Users.SetLastLogin(ctx, u.ID, now); err != nil {
		s.logger().Warn("set last login failed", "user_id", u.ID, "err", err)
	}

	res := LoginResult{User: u, SessionID: sessID}
	if s.Tokens != nil && s.Tokens.Enabled() {
		tok, exp, err := s.Tokens.Issue(u.ID, u.IsAdmin)
		if err != nil {
			return LoginResult{}, fmt.Errorf("issue access token: %w", err)
		}
		res.AccessToken, res.TokenExpiry = tok, exp
	}
	return res, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.Sessions.RevokeSession(ctx, sessionID, s.now())
}

func (s *AuthService) GetUserForSession(ctx context.Context, sessionID string) (domain.User, error) {
	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	return s.activeUser(ctx, sess.UserID)
}

// GetUserForToken resolves a bearer token. The user row is re-read so a
// ban takes effect before the token expires.
func (s *AuthService) GetUserForToken(ctx context.Context, raw string) (domain.User, error) {
	if s.Tokens == nil {
		return domain.User{}, domain.ErrUnauthorized
	}
	claims, err := s.Tokens.Parse(raw)
	if err != nil {
		return domain.User{}, domain.ErrUnauthorized
	}
	return s.activeUser(ctx, claims.UserID)
}

func (s *AuthService) activeUser(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	if u.IsBanned {
		return domain.User{}, domain.ErrUserBanned
	}
	return u, nil
}

func (s *AuthService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
