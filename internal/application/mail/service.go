package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-email-auth/internal/domain"
	"github.com/go-email-auth/internal/infrastructure/smtp"
)

// Service sends ad-hoc messages from the fixed sender identity.
type Service interface {
	Send(ctx context.Context, to, subject, body string) error
}

type service struct {
	mailer smtp.Mailer
	sender string
}

func NewService(mailer smtp.Mailer, sender string) Service {
	return &service{mailer: mailer, sender: sender}
}

func (s *service) Send(ctx context.Context, to, subject, body string) error {
	if err := s.mailer.Send(ctx, s.sender, to, subject, body); err != nil {
		slog.Warn("mail dispatch failed", "to", to, "subject", subject, "err", err)
		return fmt.Errorf("send mail to %s: %w", to, domain.ErrDispatch)
	}
	slog.Info("mail sent", "to", to, "subject", subject)
	return nil
}
