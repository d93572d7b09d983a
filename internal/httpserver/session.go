// internal/httpserver/session.go
//
// Session tokens: HS256 JWTs that bind a client to one in-memory game session.
// Tokens are read from "Authorization: Bearer <token>" or the session cookie.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/robalobadob/rps/internal/store"
)

const sessionCookieName = "rps_session"

var errInvalidToken = errors.New("invalid session token")

// sessionClaims is the JWT payload.
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// tokenIssuer signs and verifies session tokens.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newTokenIssuer(secret string, ttl time.Duration) *tokenIssuer {
	if secret == "" {
		secret = "dev_secret_change_me"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &tokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// sign creates a token for sessionID and returns it with its expiry.
func (t *tokenIssuer) sign(sessionID string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := tok.SignedString(t.secret)
	return ss, exp, err
}

// verify checks signature and expiry and returns the session ID.
func (t *tokenIssuer) verify(token string) (string, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || !parsed.Valid {
		return "", errInvalidToken
	}
	if claims.SessionID == "" {
		return "", errInvalidToken
	}
	return claims.SessionID, nil
}

// setSessionCookie writes the token cookie with appropriate security attributes.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.cookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// clearSessionCookie deletes the token cookie.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	sameSite := http.SameSiteLaxMode
	if s.cookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: sameSite,
		MaxAge:   -1,
	})
}

// bearerOrCookie extracts a bearer token from the Authorization header or session cookie.
func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// ctxSessionKey is the context key type for the resolved session ID.
type ctxSessionKey struct{}

func sessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxSessionKey{}).(string)
	return id
}

// requireSession enforces a valid token whose session still exists and
// puts the session ID into the request context.
func (s *Server) requireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerOrCookie(r)
			if tok == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			id, err := s.tokens.verify(tok)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			if _, err := s.store.Get(r.Context(), id); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusNotFound, "session_not_found")
					return
				}
				writeError(w, http.StatusInternalServerError, "store_error")
				return
			}
			ctx := context.WithValue(r.Context(), ctxSessionKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
