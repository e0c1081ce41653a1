package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/domain/dispute"
	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/domain/wallet"
	"github.com/eventpay/escrow-api/internal/pkg/logger"
	"github.com/eventpay/escrow-api/internal/pkg/metrics"
)

// FundRequest moves money from a payer's wallet into the event's escrow.
type FundRequest struct {
	EventID     uuid.UUID
	PayerID     uuid.UUID
	Amount      int64
	PaymentType string
}

// FundResult is the typed outcome of FundEscrow. Code is empty on success.
type FundResult struct {
	Success  bool       `json:"success"`
	EscrowID *uuid.UUID `json:"escrow_id,omitempty"`
	Message  string     `json:"message"`
	Code     string     `json:"code,omitempty"`
}

// StatusView is the event-level answer of GetEscrowStatus.
type StatusView struct {
	EventID           uuid.UUID          `json:"event_id"`
	EscrowStatus      event.EscrowStatus `json:"escrow_status"`
	TotalEscrowAmount int64              `json:"total_escrow_amount"`
}

// Service implements the request-time escrow operations.
type Service struct {
	store  Store
	events event.Store
}

func NewService(store Store, events event.Store) *Service {
	return &Service{store: store, events: events}
}

// FundEscrow holds amount from the payer's wallet for the event. The wallet
// debit, the escrow upsert, the aggregate update, the roster promotion and the
// Escrow_Hold row commit together or not at all.
func (s *Service) FundEscrow(ctx context.Context, req FundRequest) FundResult {
	l := logger.FromContext(ctx).With().
		Str("event_id", req.EventID.String()).
		Str("payer_id", req.PayerID.String()).
		Int64("amount", req.Amount).
		Logger()

	if req.Amount <= 0 {
		return s.fail(CodeValidation, "amount must be greater than zero")
	}
	if req.EventID == uuid.Nil || req.PayerID == uuid.Nil {
		return s.fail(CodeValidation, "event and payer are required")
	}
	paymentType := strings.TrimSpace(req.PaymentType)
	if paymentType == "" {
		paymentType = wallet.PaymentMethodWallet
	}

	var escrowID uuid.UUID
	err := s.store.InTx(ctx, func(tx Tx) error {
		id, err := s.hold(ctx, tx, req, paymentType)
		escrowID = id
		return err
	})
	// Two first holds for the same pair raced; the loser retries as a top-up.
	if errors.Is(err, ErrDuplicateEscrow) {
		err = s.store.InTx(ctx, func(tx Tx) error {
			id, err := s.hold(ctx, tx, req, paymentType)
			escrowID = id
			return err
		})
	}

	switch {
	case err == nil:
	case errors.Is(err, event.ErrEventNotFound):
		return s.fail(CodeEventNotFound, "event not found")
	case errors.Is(err, wallet.ErrWalletNotFound):
		return s.fail(CodeWalletNotFound, "wallet not found")
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return s.fail(CodeInsufficientBalance, "insufficient wallet balance")
	case errors.Is(err, wallet.ErrInvalidAmount):
		return s.fail(CodeValidation, "amount must be greater than zero")
	default:
		l.Error().Err(err).Msg("escrow funding failed")
		return s.fail(CodeInternal, "escrow funding failed, nothing was charged")
	}

	metrics.FundingTotal.WithLabelValues("OK").Inc()
	l.Info().Str("escrow_id", escrowID.String()).Msg("escrow funded")
	return FundResult{Success: true, EscrowID: &escrowID, Message: "funds held in escrow"}
}

func (s *Service) hold(ctx context.Context, tx Tx, req FundRequest, paymentType string) (uuid.UUID, error) {
	ev, err := tx.LockEvent(ctx, req.EventID)
	if err != nil {
		return uuid.Nil, err
	}
	w, err := tx.LockWallet(ctx, req.PayerID)
	if err != nil {
		return uuid.Nil, err
	}
	if err := w.HoldForEscrow(req.Amount); err != nil {
		return uuid.Nil, err
	}

	esc, err := tx.FindEscrowForUpdate(ctx, req.EventID, req.PayerID)
	switch {
	case errors.Is(err, ErrEscrowNotFound):
		esc = NewEscrow(req.EventID, req.PayerID)
		esc.Hold(req.Amount)
		if err := tx.InsertEscrow(ctx, esc); err != nil {
			return uuid.Nil, err
		}
	case err != nil:
		return uuid.Nil, err
	default:
		from := esc.Status
		esc.Hold(req.Amount)
		if err := tx.UpdateEscrow(ctx, esc, from); err != nil {
			return uuid.Nil, err
		}
	}

	ev.RecordHold(req.Amount)
	if err := tx.SaveEventEscrow(ctx, ev); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.PromoteParticipant(ctx, req.EventID, req.PayerID); err != nil {
		return uuid.Nil, err
	}
	if err := tx.SaveWallet(ctx, w); err != nil {
		return uuid.Nil, err
	}
	t := wallet.NewTransaction(req.PayerID, wallet.TransactionTypeEscrowHold, -req.Amount, paymentType).ForEscrow(esc.ID)
	if err := tx.InsertTransaction(ctx, t); err != nil {
		return uuid.Nil, err
	}
	return esc.ID, nil
}

func (s *Service) fail(code, message string) FundResult {
	metrics.FundingTotal.WithLabelValues(code).Inc()
	return FundResult{Success: false, Message: message, Code: code}
}

// GetEscrowStatus reads the event aggregate. It may lag a running pass.
func (s *Service) GetEscrowStatus(ctx context.Context, eventID uuid.UUID) (*StatusView, error) {
	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &StatusView{
		EventID:           ev.ID,
		EscrowStatus:      ev.EscrowStatus,
		TotalEscrowAmount: ev.TotalEscrowAmount,
	}, nil
}

// ListEscrows returns the event's escrow records, optionally filtered by status.
func (s *Service) ListEscrows(ctx context.Context, eventID uuid.UUID, status Status) ([]*Escrow, error) {
	return s.store.ListEscrowsByEvent(ctx, eventID, status)
}

func (s *Service) GetEscrow(ctx context.Context, id uuid.UUID) (*Escrow, error) {
	return s.store.GetEscrow(ctx, id)
}

// EscrowRef lets the dispute service resolve escrow IDs without importing this package's store.
func (s *Service) EscrowRef(ctx context.Context, escrowID uuid.UUID) (*dispute.EscrowRef, error) {
	esc, err := s.store.GetEscrow(ctx, escrowID)
	if errors.Is(err, ErrEscrowNotFound) {
		return nil, dispute.ErrEscrowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get escrow: %w", err)
	}
	return &dispute.EscrowRef{
		ID:      esc.ID,
		EventID: esc.EventID,
		PayerID: esc.PayerID,
		Held:    esc.IsHeld(),
	}, nil
}
