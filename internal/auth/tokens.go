package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const TokenIssuer = "skillswap"

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID  string `json:"uid"`
	IsAdmin bool   `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	s := make([]byte, len(secret))
	copy(s, secret)
	return &Tokens{secret: s, ttl: ttl, now: time.Now}
}

func (t *Tokens) Enabled() bool { return t != nil && len(t.secret) > 0 }

func (t *Tokens) Issue(userID string, isAdmin bool) (string, time.Time, error) {
	if !t.Enabled() {
		return "", time.Time{}, errors.New("token signing disabled")
	}
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := Claims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    TokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (t *Tokens) Parse(raw string) (*Claims, error) {
	if !t.Enabled() {
		return nil, ErrInvalidToken
	}
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
