package http

import (
	"github.com/go-email-auth/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-email-auth/internal/infrastructure/jwt"
	"github.com/go-email-auth/internal/infrastructure/smtp"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	VerificationRepo *dynamo.VerificationRepo
	Mailer           smtp.Mailer
	JWTProvider      *jwtinfra.Provider
}
