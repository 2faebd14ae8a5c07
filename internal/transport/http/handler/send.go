package handler

import (
	"net/http"

	"github.com/go-email-auth/internal/application/mail"
	"github.com/go-email-auth/internal/pkg/validate"
	"github.com/go-email-auth/internal/transport/http/middleware"
)

// SendHandler handles outbound mail endpoints.
type SendHandler struct {
	svc   mail.Service
	owner string
}

func NewSendHandler(svc mail.Service, owner string) *SendHandler {
	return &SendHandler{svc: svc, owner: owner}
}

type sendForm struct {
	Recipient string `validate:"required,email"`
	Subject   string `validate:"required,max=100"`
	Body      string `validate:"required,max=100"`
}

type contactForm struct {
	Subject string `validate:"required,max=100"`
	Body    string `validate:"required,max=100"`
}

// SendToSelf sends a message to the logged-in guest's own address.
func (h *SendHandler) SendToSelf(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	form := sendForm{
		Recipient: r.PostFormValue("Recipient"),
		Subject:   r.PostFormValue("Subject"),
		Body:      r.PostFormValue("Body"),
	}
	if fields := validate.Fields(form); fields != nil {
		writeFieldErrors(w, fields)
		return
	}
	if form.Recipient != claims.Email {
		writeError(w, http.StatusUnauthorized, "You can only send to your own email.")
		return
	}
	if err := h.svc.Send(r.Context(), form.Recipient, form.Subject, form.Body); err != nil {
		writeError(w, http.StatusBadRequest, "could not send email")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "email sent"})
}

// Contact sends a message to the configured owner address. Public endpoint.
func (h *SendHandler) Contact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	form := contactForm{
		Subject: r.PostFormValue("Subject"),
		Body:    r.PostFormValue("Body"),
	}
	if fields := validate.Fields(form); fields != nil {
		writeFieldErrors(w, fields)
		return
	}
	if err := h.svc.Send(r.Context(), h.owner, form.Subject, form.Body); err != nil {
		writeError(w, http.StatusBadRequest, "could not send email")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "email sent"})
}
