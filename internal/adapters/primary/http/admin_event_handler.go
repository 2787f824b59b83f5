package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/reviewhub-realtime/internal/adapters/primary/http/middleware"
	"github.com/lorrc/reviewhub-realtime/internal/adapters/primary/validation"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
)

// AdminEventHandler lets operators publish domain events onto the bus.
type AdminEventHandler struct {
	bus          ports.EventBus
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewAdminEventHandler(bus ports.EventBus, errorHandler *ErrorHandler, logger *slog.Logger) *AdminEventHandler {
	return &AdminEventHandler{
		bus:          bus,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// PublishEventRequest is the body of POST /admin/events.
type PublishEventRequest struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// RegisterRoutes mounts the route. r must already enforce the ADMIN role.
func (h *AdminEventHandler) RegisterRoutes(r chi.Router) {
	r.Post("/admin/events", h.HandlePublish)
}

// HandlePublish validates the event and emits it. The payload is checked
// against its typed shape so operators get a 422 instead of a silent drop.
func (h *AdminEventHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeJSON[PublishEventRequest](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	v := validation.NewValidator()
	v.Required("name", req.Name)
	v.Custom("name", req.Name == "" || domain.IsKnownDomainEvent(domain.DomainEventName(req.Name)), "Unknown domain event")
	v.Custom("payload", len(req.Payload) > 0, "This field is required")
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	name := domain.DomainEventName(req.Name)
	if _, err := domain.DecodeDomainEvent(name, req.Payload); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	actor := ""
	if claims, ok := mw.GetClaims(r.Context()); ok {
		actor = claims.UserID
	}
	h.logger.InfoContext(r.Context(), "publishing domain event", "event", name, "actor", actor)

	h.bus.Emit(r.Context(), name, req.Payload)

	WriteAccepted(w, map[string]string{"name": req.Name})
}
