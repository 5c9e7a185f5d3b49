package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"google.golang.org/api/idtoken"
)

const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)

var ErrProviderDisabled = errors.New("identity provider not configured")

// Identity is what a verified third-party ID token tells us about the
// caller.
type Identity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (Identity, error)
}

type GoogleVerifier struct {
	ClientID string
}

func (v GoogleVerifier) Verify(ctx context.Context, rawToken string) (Identity, error) {
	if v.ClientID == "" {
		return Identity{}, ErrProviderDisabled
	}
	if strings.TrimSpace(rawToken) == "" {
		return Identity{}, errors.New("missing id token")
	}

	payload, err := idtoken.Validate(ctx, rawToken, v.ClientID)
	if err != nil {
		return Identity{}, err
	}
	switch payload.Issuer {
	case "accounts.google.com", "https://accounts.google.com":
	default:
		return Identity{}, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}

	return Identity{
		Provider: ProviderGoogle,
		Subject:  payload.Subject,
		Email:    strings.ToLower(strings.TrimSpace(claimString(payload.Claims, "email"))),
		Name:     strings.TrimSpace(claimString(payload.Claims, "name")),
	}, nil
}

type AppleVerifier struct {
	ClientID string
}

func (v AppleVerifier) Verify(ctx context.Context, rawToken string) (Identity, error) {
	if v.ClientID == "" {
		return Identity{}, ErrProviderDisabled
	}
	if strings.TrimSpace(rawToken) == "" {
		return Identity{}, errors.New("missing id token")
	}
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	tok, err := validator.NewClient().VerifyIdToken(v.ClientID, rawToken)
	if err != nil {
		return Identity{}, err
	}
	if tok.Iss != "https://appleid.apple.com" {
		return Identity{}, fmt.Errorf("unexpected issuer: %s", tok.Iss)
	}

	return Identity{
		Provider: ProviderApple,
		Subject:  tok.Sub,
		Email:    strings.ToLower(strings.TrimSpace(tok.Email)),
	}, nil
}

func claimString(claims map[string]any, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
