package wallet

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/middleware"
	"github.com/eventpay/escrow-api/internal/pkg/logger"
	"github.com/eventpay/escrow-api/internal/pkg/response"
	"github.com/eventpay/escrow-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

// MovementRequestDTO is the body of top-up and withdrawal calls.
type MovementRequestDTO struct {
	Amount  int64             `json:"amount" validate:"gt=0"`
	Method  string            `json:"method" validate:"required,payment_method"`
	Details map[string]string `json:"details"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Get handles GET /wallet
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	wlt, err := h.svc.GetWallet(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, WalletResponseFromEntity(wlt))
}

// TopUp handles POST /wallet/topup
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	h.handleMovement(w, r, h.svc.TopUp)
}

// Withdraw handles POST /wallet/withdraw
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.handleMovement(w, r, h.svc.Withdraw)
}

// ListTransactions handles GET /wallet/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txs, err := h.svc.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]*TransactionResponse, len(txs))
	for i, t := range txs {
		items[i] = TransactionResponseFromEntity(t)
	}
	response.OK(w, items)
}

// CanAfford handles GET /wallet/can-afford?amount=
func (h *Handler) CanAfford(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		response.BadRequest(w, "amount must be an integer")
		return
	}
	response.OK(w, map[string]bool{"can_afford": h.svc.CanAfford(r.Context(), userID, amount)})
}

func (h *Handler) handleMovement(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID uuid.UUID, req MovementRequest) (*Wallet, error)) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req MovementRequestDTO
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	wlt, err := fn(r.Context(), userID, MovementRequest{Amount: req.Amount, Method: req.Method, Details: req.Details})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, WalletResponseFromEntity(wlt))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(w, "amount must be greater than zero")
	case errors.Is(err, ErrWalletNotFound):
		response.NotFound(w, "wallet not found")
	case errors.Is(err, ErrInsufficientFunds):
		response.Conflict(w, "insufficient wallet balance")
	case errors.Is(err, ErrPaymentDeclined):
		response.PaymentRequired(w, "PAYMENT_DECLINED", "payment was declined by the provider")
	default:
		logger.FromContext(r.Context()).Error().Err(err).Msg("wallet request failed")
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.Get)
	r.Post("/topup", h.TopUp)
	r.Post("/withdraw", h.Withdraw)
	r.Get("/transactions", h.ListTransactions)
	r.Get("/can-afford", h.CanAfford)
	return r
}
