package escrow

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

// Handler handles escrow HTTP requests
type Handler struct {
	svc       *Service
	scheduler *Scheduler
}

func NewHandler(svc *Service, scheduler *Scheduler) *Handler {
	return &Handler{svc: svc, scheduler: scheduler}
}

// FundRequestDTO is the body of POST /events/{id}/escrow
type FundRequestDTO struct {
	Amount      int64  `json:"amount" validate:"gt=0"`
	PaymentType string `json:"payment_type" validate:"omitempty,payment_method"`
}

// Fund handles POST /events/{id}/escrow
func (h *Handler) Fund(w http.ResponseWriter, r *http.Request) {
	payerID := middleware.GetUserID(r.Context())
	if payerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid event id")
		return
	}

	var req FundRequestDTO
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	res := h.svc.FundEscrow(r.Context(), FundRequest{
		EventID:     eventID,
		PayerID:     payerID,
		Amount:      req.Amount,
		PaymentType: req.PaymentType,
	})
	if res.Success {
		response.Created(w, res)
		return
	}
	response.Error(w, fundStatus(res.Code), res.Code, res.Message)
}

func fundStatus(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeEventNotFound, CodeWalletNotFound:
		return http.StatusNotFound
	case CodeInsufficientBalance:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// Status handles GET /events/{id}/escrow
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid event id")
		return
	}

	view, err := h.svc.GetEscrowStatus(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			response.NotFound(w, "event not found")
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Msg("escrow status query failed")
		response.InternalError(w)
		return
	}
	response.OK(w, view)
}

// ListByEvent handles GET /admin/escrows?event_id=&status=
func (h *Handler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(r.URL.Query().Get("event_id"))
	if err != nil {
		response.BadRequest(w, "invalid event id")
		return
	}

	escrows, err := h.svc.ListEscrows(r.Context(), eventID, Status(r.URL.Query().Get("status")))
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("escrow list failed")
		response.InternalError(w)
		return
	}
	response.OK(w, escrows)
}

// RunSettlement handles POST /admin/settlement/run
func (h *Handler) RunSettlement(w http.ResponseWriter, r *http.Request) {
	report := h.scheduler.RunOnce(r.Context())
	logger.FromContext(r.Context()).Info().
		Str("admin_id", middleware.GetUserID(r.Context()).String()).
		Int("events", report.EventsScanned).
		Msg("settlement pass triggered manually")
	response.OK(w, report)
}
