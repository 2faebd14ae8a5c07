package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-email-auth/internal/domain"
	jwtinfra "github.com/go-email-auth/internal/infrastructure/jwt"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// SessionValidator re-validates a session token, returning its claims and,
// when the sliding window warrants it, a refreshed token.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*jwtinfra.Claims, string, error)
}

// Session returns middleware that validates the session cookie before any
// protected handler runs. A rejected session clears the cookie and answers
// 401; a refreshed token rotates the cookie in the response.
func Session(validator SessionValidator, secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(SessionCookieName)
			if err != nil || c.Value == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			claims, refreshed, err := validator.Validate(r.Context(), c.Value)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					http.SetCookie(w, ExpiredSessionCookie(secureCookies))
					writeJSONError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				// a store failure says nothing about the session; keep the
				// cookie so the client retries instead of re-authenticating
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if refreshed != "" {
				http.SetCookie(w, NewSessionCookie(refreshed, time.Unix(claims.AbsoluteExpiry, 0), secureCookies))
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts session claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}
