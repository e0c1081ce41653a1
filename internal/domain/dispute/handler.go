package dispute

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/middleware"
	"github.com/eventpay/escrow-api/internal/pkg/logger"
	"github.com/eventpay/escrow-api/internal/pkg/response"
	"github.com/eventpay/escrow-api/internal/pkg/validator"
)

// Handler handles dispute and refund request HTTP requests
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// FileRequest is the body of dispute and refund request creation.
type FileRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// ResolveRequest is the body of admin resolution calls.
type ResolveRequest struct {
	Decision string `json:"decision" validate:"required,decision"`
}

// RaiseDispute handles POST /events/{id}/disputes
func (h *Handler) RaiseDispute(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid event id")
		return
	}

	var req FileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.svc.RaiseDispute(r.Context(), eventID, userID, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, d)
}

// ListDisputes handles GET /events/{id}/disputes
func (h *Handler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid event id")
		return
	}

	disputes, err := h.svc.ListDisputes(r.Context(), eventID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, disputes)
}

// RequestRefund handles POST /escrows/{id}/refund-requests
func (h *Handler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	escrowID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid escrow id")
		return
	}

	var req FileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rr, err := h.svc.RequestRefund(r.Context(), escrowID, userID, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, rr)
}

// ResolveDispute handles POST /admin/disputes/{id}/resolve
func (h *Handler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid dispute id")
		return
	}

	var req ResolveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.svc.ResolveDispute(r.Context(), id, Decision(req.Decision), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, d)
}

// ResolveRefundRequest handles POST /admin/refund-requests/{id}/resolve
func (h *Handler) ResolveRefundRequest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid refund request id")
		return
	}

	var req ResolveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rr, err := h.svc.ResolveRefundRequest(r.Context(), id, RefundDecision(req.Decision), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, rr)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := response.DecodeJSON(r.Body, v); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return false
	}
	if errs := validator.Validate(v); errs != nil {
		response.ValidationError(w, errs)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, event.ErrEventNotFound):
		response.NotFound(w, "event not found")
	case errors.Is(err, ErrEscrowNotFound):
		response.NotFound(w, "escrow not found")
	case errors.Is(err, ErrDisputeNotFound):
		response.NotFound(w, "dispute not found")
	case errors.Is(err, ErrRefundRequestNotFound):
		response.NotFound(w, "refund request not found")
	case errors.Is(err, ErrNotParty):
		response.Forbidden(w, "only the payer or the host may request a refund")
	case errors.Is(err, ErrAlreadyResolved):
		response.Conflict(w, "already resolved")
	case errors.Is(err, ErrEscrowNotHeld), errors.Is(err, ErrNoEscrowHeld):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrInvalidDecision):
		response.BadRequest(w, err.Error())
	default:
		logger.FromContext(r.Context()).Error().Err(err).Msg("dispute request failed")
		response.InternalError(w)
	}
}
