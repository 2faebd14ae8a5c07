package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-email-auth/internal/domain"
	jwtinfra "github.com/go-email-auth/internal/infrastructure/jwt"
)

// RoleGuest is the single fixed role carried by every session.
const RoleGuest = "Guest"

// CodeRedeemer re-validates a recipient/code pair against the verification
// store. The session layer is read-only over that data.
type CodeRedeemer interface {
	Redeem(ctx context.Context, email, code string) (bool, error)
}

// TokenProvider signs and verifies session tokens.
type TokenProvider interface {
	Sign(email, role, code string, slidingExpiry, absoluteExpiry time.Time) (string, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

type Service interface {
	// Create redeems the code and mints a session token for the recipient.
	// ErrUnauthorized when the code is not valid.
	Create(ctx context.Context, email, code string) (string, error)
	// Validate checks the token (signature, sliding expiry, absolute cap) and
	// re-runs the redeem check on the embedded email+code; an invalidated or
	// superseded code revokes the session. When more than half the sliding
	// window has elapsed a refreshed token is returned alongside the claims.
	Validate(ctx context.Context, token string) (*jwtinfra.Claims, string, error)
}

type service struct {
	redeemer    CodeRedeemer
	tokens      TokenProvider
	absoluteTTL time.Duration
	slidingTTL  time.Duration
}

func NewService(redeemer CodeRedeemer, tokens TokenProvider, absoluteTTL, slidingTTL time.Duration) Service {
	return &service{
		redeemer:    redeemer,
		tokens:      tokens,
		absoluteTTL: absoluteTTL,
		slidingTTL:  slidingTTL,
	}
}

func (s *service) Create(ctx context.Context, email, code string) (string, error) {
	ok, err := s.redeemer.Redeem(ctx, email, code)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("code not valid for %s: %w", email, domain.ErrUnauthorized)
	}

	now := time.Now().UTC()
	abs := now.Add(s.absoluteTTL)
	token, err := s.tokens.Sign(email, RoleGuest, code, cappedSliding(now, s.slidingTTL, abs), abs)
	if err != nil {
		return "", fmt.Errorf("sign session token for %s: %w", email, err)
	}
	slog.Info("guest session created", "email", email)
	return token, nil
}

func (s *service) Validate(ctx context.Context, token string) (*jwtinfra.Claims, string, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, "", fmt.Errorf("verify session token: %w", domain.ErrUnauthorized)
	}

	now := time.Now().UTC()
	abs := time.Unix(claims.AbsoluteExpiry, 0)
	if now.After(abs) {
		return nil, "", fmt.Errorf("session past absolute expiry: %w", domain.ErrUnauthorized)
	}

	ok, err := s.redeemer.Redeem(ctx, claims.Email, claims.Code)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		slog.Info("session revoked, backing code no longer valid", "email", claims.Email)
		return nil, "", fmt.Errorf("verification code no longer valid for %s: %w", claims.Email, domain.ErrUnauthorized)
	}

	refreshed := ""
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Sub(now) < s.slidingTTL/2 {
		refreshed, err = s.tokens.Sign(claims.Email, claims.Role, claims.Code, cappedSliding(now, s.slidingTTL, abs), abs)
		if err != nil {
			// The current token is still valid; skip the renewal.
			slog.Warn("could not refresh session token", "email", claims.Email, "err", err)
			refreshed = ""
		}
	}
	return claims, refreshed, nil
}

// cappedSliding extends the sliding deadline but never past the absolute cap.
func cappedSliding(now time.Time, sliding time.Duration, abs time.Time) time.Time {
	deadline := now.Add(sliding)
	if deadline.After(abs) {
		return abs
	}
	return deadline
}
