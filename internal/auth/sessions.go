package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

const SessionCookieName = "skillswap_session"

// CookieCodec signs session ids with HMAC-SHA256 so a cookie cannot be
// forged from a guessed id. An empty secret disables signing.
type CookieCodec struct {
	secret []byte
}

func NewCookieCodec(secret []byte) CookieCodec {
	s := make([]byte, len(secret))
	copy(s, secret)
	return CookieCodec{secret: s}
}

func (c CookieCodec) sign(id string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(id))
	return mac.Sum(nil)
}

func (c CookieCodec) EncodeSessionID(sessionID string) string {
	if len(c.secret) == 0 {
		return sessionID
	}
	return sessionID + "." + base64.RawURLEncoding.EncodeToString(c.sign(sessionID))
}

func (c CookieCodec) DecodeSessionID(cookieValue string) (string, bool) {
	if len(c.secret) == 0 {
		return cookieValue, cookieValue != ""
	}

	id, encSig, ok := strings.Cut(cookieValue, ".")
	if !ok || id == "" || encSig == "" {
		return "", false
	}
	sig, err := base64.RawURLEncoding.DecodeString(encSig)
	if err != nil || len(sig) != sha256.Size {
		return "", false
	}
	if subtle.ConstantTimeCompare(sig, c.sign(id)) != 1 {
		return "", false
	}
	return id, true
}

// SessionID returns the decoded session id from r's cookie, if any.
func (c CookieCodec) SessionID(r *http.Request) (string, bool) {
	ck, err := r.Cookie(SessionCookieName)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return c.DecodeSessionID(ck.Value)
}

func SetSessionCookie(w http.ResponseWriter, cookieValue string, ttl time.Duration, secure bool) {
	http.SetCookie(w, sessionCookie(cookieValue, int(ttl.Seconds()), time.Now().Add(ttl), secure))
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, sessionCookie("", -1, time.Unix(0, 0), secure))
}

func sessionCookie(value string, maxAge int, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
		Expires:  expires,
	}
}
