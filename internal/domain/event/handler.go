package event

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/pkg/logger"
	"github.com/eventpay/escrow-api/internal/pkg/response"
	"github.com/eventpay/escrow-api/internal/pkg/validator"
)

// Handler exposes the sync surface used by the scheduling subsystem.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// SyncEventRequest is the body of POST /admin/events
type SyncEventRequest struct {
	ID              uuid.UUID  `json:"id" validate:"required"`
	HostID          uuid.UUID  `json:"host_id" validate:"required"`
	Title           string     `json:"title" validate:"max=200"`
	LifecycleStatus string     `json:"lifecycle_status" validate:"required,oneof=Active Completed Past Cancelled"`
	EndsAt          *time.Time `json:"ends_at"`
}

// LifecycleRequest is the body of PUT /admin/events/{id}/lifecycle
type LifecycleRequest struct {
	Status string `json:"status" validate:"required,oneof=Active Completed Past Cancelled"`
}

// ParticipantRequest is the body of POST /admin/events/{id}/participants
type ParticipantRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// Sync handles POST /admin/events
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	var req SyncEventRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	e, err := h.svc.Sync(r.Context(), &Event{
		ID:              req.ID,
		HostID:          req.HostID,
		Title:           req.Title,
		LifecycleStatus: LifecycleStatus(req.LifecycleStatus),
		EscrowStatus:    EscrowPending,
		EndsAt:          req.EndsAt,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, e)
}

// SetLifecycle handles PUT /admin/events/{id}/lifecycle
func (h *Handler) SetLifecycle(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid event id")
		return
	}

	var req LifecycleRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.svc.SetLifecycleStatus(r.Context(), id, LifecycleStatus(req.Status)); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, map[string]string{"status": req.Status})
}

// AddParticipant handles POST /admin/events/{id}/participants
func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid event id")
		return
	}

	var req ParticipantRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.svc.AddParticipant(r.Context(), id, req.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	participants, err := h.svc.ListParticipants(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, participants)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrEventNotFound):
		response.NotFound(w, "event not found")
	case errors.Is(err, ErrInvalidEvent):
		response.BadRequest(w, "invalid event")
	default:
		logger.FromContext(r.Context()).Error().Err(err).Msg("event sync failed")
		response.InternalError(w)
	}
}

// AdminRoutes are mounted under /api/admin/events behind auth and RequireAdmin.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Sync)
	r.Put("/{id}/lifecycle", h.SetLifecycle)
	r.Post("/{id}/participants", h.AddParticipant)
	return r
}
