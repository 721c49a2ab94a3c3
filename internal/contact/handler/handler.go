package handler

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vras/internal/mail"
	httpError "vras/internal/transport/http/error"
	jsonResponse "vras/internal/transport/http/json"
	"vras/internal/transport/http/request"
	dErrors "vras/pkg/domain-errors"
)

// Handler forwards contact-form submissions to the platform inbox. It sits
// behind the anonymous-session middleware so the public site can use it
// before anyone logs in.
type Handler struct {
	mailer mail.Mailer
	inbox  string
	logger *slog.Logger
}

func New(mailer mail.Mailer, inbox string, logger *slog.Logger) *Handler {
	return &Handler{mailer: mailer, inbox: inbox, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/contact-mail", h.HandleContactMail)
}

type ContactRequest struct {
	Name    string `json:"name" validate:"required,notblank"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,notblank"`
	Message string `json:"message" validate:"required,notblank"`
}

func (h *Handler) HandleContactMail(w http.ResponseWriter, r *http.Request) {
	req, ok := request.Decode[ContactRequest](w, r)
	if !ok {
		return
	}

	body := fmt.Sprintf(
		"<p><strong>From:</strong> %s &lt;%s&gt;</p><p>%s</p>",
		html.EscapeString(req.Name), html.EscapeString(req.Email), html.EscapeString(req.Message))

	if err := h.mailer.Send(r.Context(), h.inbox, "[Contact] "+req.Subject, body); err != nil {
		h.logger.Error("contact mail failed", slog.String("error", err.Error()))
		httpError.WriteError(w, dErrors.New(dErrors.CodeInternal, "Could not send your message. Try again later."))
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Message sent.", nil)
}
