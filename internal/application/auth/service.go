package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-email-auth/internal/domain"
	"github.com/go-email-auth/internal/infrastructure/smtp"
)

// ReuseWindow is how long an issued code stays valid and blocks re-issuance
// for the same recipient.
const ReuseWindow = 24 * time.Hour

const (
	mailSubject  = "Your authentication code"
	mailBodyTmpl = "Your verification code is %s. Please note that you can reuse your verification code for the next 24 hours."
)

// VerificationStore is the slice of the record store the engine needs.
type VerificationStore interface {
	Find(ctx context.Context, f domain.RecordFilter) ([]domain.VerificationRecord, error)
	Remove(ctx context.Context, f domain.RecordFilter) (int, error)
	Insert(ctx context.Context, email string) (*domain.VerificationRecord, error)
}

type Service interface {
	// Issue creates a fresh verification code for the recipient and emails it.
	// ErrConflict when an active code already exists; ErrDispatch when the
	// mail could not be submitted (the created record is rolled back).
	Issue(ctx context.Context, email string) (string, error)
	// Redeem reports whether the recipient holds the given code, unexpired
	// and not invalidated. It never mutates the store: a code is a time-boxed
	// bearer token, reusable until it expires or is superseded.
	Redeem(ctx context.Context, email, code string) (bool, error)
}

type service struct {
	store  VerificationStore
	mailer smtp.Mailer
	sender string

	locksMu sync.Mutex
	locks   map[string]*recipientLock
}

func NewService(store VerificationStore, mailer smtp.Mailer, sender string) Service {
	return &service{
		store:  store,
		mailer: mailer,
		sender: sender,
		locks:  make(map[string]*recipientLock),
	}
}

// recipientLock is refcounted so its map entry can be evicted once the last
// holder releases; /authenticate takes arbitrary addresses and the map must
// not grow with every email ever posted.
type recipientLock struct {
	mu   sync.Mutex
	refs int
}

// lock serializes the whole check-remove-insert-dispatch sequence per
// recipient. Without it two near-simultaneous Issue calls for the same email
// can both pass the reuse check and both insert.
func (s *service) lock(email string) func() {
	s.locksMu.Lock()
	l := s.locks[email]
	if l == nil {
		l = &recipientLock{}
		s.locks[email] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, email)
		}
		s.locksMu.Unlock()
	}
}

func (s *service) Issue(ctx context.Context, email string) (string, error) {
	unlock := s.lock(email)
	defer unlock()

	notInvalidated := false
	since := time.Now().UTC().Add(-ReuseWindow)
	active, err := s.store.Find(ctx, domain.RecordFilter{
		Email:       &email,
		Invalidated: &notInvalidated,
		IssuedAfter: &since,
	})
	if err != nil {
		return "", fmt.Errorf("check active code for %s: %w", email, err)
	}
	if len(active) > 0 {
		return "", fmt.Errorf("active code exists for %s: %w", email, domain.ErrConflict)
	}

	if _, err := s.store.Remove(ctx, domain.RecordFilter{Email: &email}); err != nil {
		return "", fmt.Errorf("clear stale codes for %s: %w", email, err)
	}
	rec, err := s.store.Insert(ctx, email)
	if err != nil {
		return "", fmt.Errorf("create code for %s: %w", email, err)
	}

	body := fmt.Sprintf(mailBodyTmpl, rec.Code)
	if err := s.mailer.Send(ctx, s.sender, email, mailSubject, body); err != nil {
		// The code never reached the recipient, so the record must not block
		// a later issuance. The rollback runs even when the request context
		// was cancelled mid-dispatch.
		rbCtx := context.WithoutCancel(ctx)
		if _, rbErr := s.store.Remove(rbCtx, domain.RecordFilter{Email: &email}); rbErr != nil {
			slog.Error("rollback after failed dispatch", "email", email, "err", rbErr)
		}
		slog.Warn("authentication mail dispatch failed", "email", email, "err", err)
		return "", fmt.Errorf("dispatch code to %s: %w", email, domain.ErrDispatch)
	}

	slog.Info("verification code issued", "email", email)
	return rec.Code, nil
}

func (s *service) Redeem(ctx context.Context, email, code string) (bool, error) {
	notInvalidated := false
	since := time.Now().UTC().Add(-ReuseWindow)
	recs, err := s.store.Find(ctx, domain.RecordFilter{
		Email:       &email,
		Code:        &code,
		Invalidated: &notInvalidated,
		IssuedAfter: &since,
	})
	if err != nil {
		return false, fmt.Errorf("redeem code for %s: %w", email, err)
	}
	return len(recs) > 0, nil
}
