// Package auth authenticates API callers by an HMAC-signed account id.
//
// Browsers carry the value in the "session" cookie; scanner devices and
// other non-browser clients send it as "Authorization: Bearer <value>".
// Both forms are "<account-id>.<base64url signature>".
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/gatepass/httpx"
)

type ctxKey string

const (
	sessionCookieName = "session"
	accountIDCtxKey   = ctxKey("accountID")
	bearerPrefix      = "Bearer "
)

// SessionTTL is how long a session cookie lives in the browser.
const SessionTTL = 14 * 24 * time.Hour

// AccountVerifier is an optional callback to validate that a session's account still exists.
// Set it during bootstrap via SetAccountVerifier. If nil, no extra verification is performed.
type AccountVerifier func(ctx context.Context, accountID uint) bool

var verifier AccountVerifier

// SetAccountVerifier configures the global verifier used by RequireAuth.
func SetAccountVerifier(v AccountVerifier) { verifier = v }

// Secret returns SESSION_SECRET or default dev value.
func Secret() string {
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return s
	}
	return "devsessionsecret"
}

func sign(idStr string) string {
	mac := hmac.New(sha256.New, []byte(Secret()))
	mac.Write([]byte(idStr))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Token returns the signed value for accountID, usable as cookie or bearer.
func Token(accountID uint) string {
	idStr := strconv.FormatUint(uint64(accountID), 10)
	return idStr + "." + sign(idStr)
}

// CreateSession sets a signed cookie with the account id.
func CreateSession(w http.ResponseWriter, accountID uint) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    Token(accountID),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(SessionTTL),
	})
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// ParseToken validates a signed value and returns the account id.
func ParseToken(value string) (uint, bool) {
	idStr, sig, ok := strings.Cut(value, ".")
	if !ok || idStr == "" || strings.Contains(sig, ".") {
		return 0, false
	}
	if !hmac.Equal([]byte(sig), []byte(sign(idStr))) {
		return 0, false
	}
	id64, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	return uint(id64), true
}

// ParseSession reads the bearer header, falling back to the cookie.
func ParseSession(r *http.Request) (uint, bool) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return ParseToken(strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix)))
	}
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	return ParseToken(c.Value)
}

// WithAccountID stores the account id in context.
func WithAccountID(ctx context.Context, accountID uint) context.Context {
	return context.WithValue(ctx, accountIDCtxKey, accountID)
}

// AccountIDFromContext extracts the account id.
func AccountIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(accountIDCtxKey).(uint)
	return id, ok
}

// Middleware attaches the account id to the request context if present.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := ParseSession(r); ok {
			r = r.WithContext(WithAccountID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth answers 401 unless Middleware found a valid, still-known account.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := AccountIDFromContext(r.Context())
		if ok && verifier != nil && !verifier(r.Context(), id) {
			// Session refers to a removed account: clear and treat as unauthorized.
			ClearSession(w)
			ok = false
		}
		if !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
