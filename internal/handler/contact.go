package handler

import (
	"log/slog"
	"net/http"

	"github.com/642studio/bachejoa/internal/service"
)

// ContactHandler receives the public contact form.
type ContactHandler struct {
	contact *service.ContactService
	logger  *slog.Logger
}

// NewContactHandler creates a ContactHandler.
func NewContactHandler(contact *service.ContactService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{contact: contact, logger: logger}
}

type contactRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Topic   string `json:"topic"`
	Message string `json:"message"`
}

// Create stores a contact message.
// POST /api/contact
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	req := readPayload[contactRequest](r)
	id, err := h.contact.Submit(r.Context(), service.ContactInput{
		Name:    req.Name,
		Contact: req.Contact,
		Topic:   req.Topic,
		Message: req.Message,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "No se pudo enviar el mensaje.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}
