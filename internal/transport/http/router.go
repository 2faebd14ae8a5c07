package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-email-auth/internal/application/auth"
	"github.com/go-email-auth/internal/application/mail"
	"github.com/go-email-auth/internal/application/session"
	"github.com/go-email-auth/internal/config"
	"github.com/go-email-auth/internal/transport/http/handler"
	appmiddleware "github.com/go-email-auth/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authSvc := auth.NewService(deps.VerificationRepo, deps.Mailer, cfg.MailSender)
	sessionSvc := session.NewService(authSvc, deps.JWTProvider, cfg.SessionExpiry, cfg.SessionSliding)
	mailSvc := mail.NewService(deps.Mailer, cfg.MailSender)

	secureCookies := cfg.AppEnv != "development"

	// Fixed window across /authenticate and /send, independent of the 24h
	// reuse rule: permits/window/queue come from the environment.
	fixedRL := appmiddleware.NewFixedWindowLimiter(cfg.RatePermitLimit, cfg.RateWindow, cfg.RateQueueLimit)
	// 5 requests/second, burst of 10 — brute-force guard on code redemption.
	redeemRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	authH := handler.NewAuthHandler(authSvc)
	sessionH := handler.NewSessionHandler(sessionSvc, cfg.SessionExpiry, secureCookies)
	sendH := handler.NewSendHandler(mailSvc, cfg.MailOwner)
	healthH := handler.NewHealthHandler()

	r.Get("/health", healthH.Ping)
	r.With(fixedRL.Limit).Post("/authenticate", authH.Authenticate)
	r.With(redeemRL.Limit).Post("/session", sessionH.Create)
	r.Post("/contact", sendH.Contact)

	// Session-protected routes: the cookie is re-validated against the
	// verification store before any of these handlers run.
	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.Session(sessionSvc, secureCookies))

		r.Delete("/session", sessionH.Delete)
		r.With(fixedRL.Limit).Post("/send", sendH.SendToSelf)
	})

	return r
}
