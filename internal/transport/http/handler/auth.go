package handler

import (
	"errors"
	"net/http"

	"github.com/go-email-auth/internal/application/auth"
	"github.com/go-email-auth/internal/domain"
	"github.com/go-email-auth/internal/pkg/validate"
)

// AuthHandler handles verification code issuance.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type authenticateForm struct {
	Email string `validate:"required,email"`
}

// Authenticate emails a fresh verification code to the posted address.
// At most one issuance per recipient per rolling 24 hours.
func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	form := authenticateForm{Email: r.PostFormValue("Email")}
	if fields := validate.Fields(form); fields != nil {
		writeFieldErrors(w, fields)
		return
	}

	_, err := h.svc.Issue(r.Context(), form.Email)
	switch {
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusBadRequest, "Please reuse an already existing verification code.")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	default:
		writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "verification code sent"})
	}
}
