package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-email-auth/internal/application/session"
	"github.com/go-email-auth/internal/domain"
	"github.com/go-email-auth/internal/pkg/validate"
	"github.com/go-email-auth/internal/transport/http/middleware"
)

// SessionHandler handles session cookie creation and teardown.
type SessionHandler struct {
	svc           session.Service
	cookieTTL     time.Duration
	secureCookies bool
}

func NewSessionHandler(svc session.Service, cookieTTL time.Duration, secureCookies bool) *SessionHandler {
	return &SessionHandler{svc: svc, cookieTTL: cookieTTL, secureCookies: secureCookies}
}

type createSessionForm struct {
	Email string `validate:"required,email"`
}

// Create exchanges a recipient/code pair for a session cookie.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	code := r.PostFormValue("AuthenticationCode")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Authentication code is required.")
		return
	}
	form := createSessionForm{Email: r.PostFormValue("Email")}
	if fields := validate.Fields(form); fields != nil {
		writeFieldErrors(w, fields)
		return
	}

	token, err := h.svc.Create(r.Context(), form.Email, code)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Invalid token")
	case err != nil:
		// store or signing failure, nothing to conclude about the code itself
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	default:
		http.SetCookie(w, middleware.NewSessionCookie(token, time.Now().Add(h.cookieTTL), h.secureCookies))
		writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "session created"})
	}
}

// Delete revokes the current session by clearing its cookie.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.ClaimsFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	http.SetCookie(w, middleware.ExpiredSessionCookie(h.secureCookies))
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "signed out"})
}
