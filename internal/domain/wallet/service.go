package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eventpay/escrow-api/internal/pkg/payment"
)

// MovementRequest is a top-up or withdrawal through the payment provider.
type MovementRequest struct {
	Amount  int64
	Method  string
	Details map[string]string
}

type Service struct {
	store    Store
	provider payment.Provider
}

func NewService(store Store, provider payment.Provider) *Service {
	return &Service{store: store, provider: provider}
}

func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	return s.store.GetWallet(ctx, userID)
}

// CanAfford reports whether the user's available balance covers amount.
// Unknown wallets and store failures read as false.
func (s *Service) CanAfford(ctx context.Context, userID uuid.UUID, amount int64) bool {
	if amount <= 0 {
		return false
	}
	w, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrWalletNotFound) {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("can-afford check failed")
		}
		return false
	}
	return w.CanAfford(amount)
}

func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListTransactions(ctx, userID, limit, offset)
}

// TopUp charges the instrument first; only a successful charge credits the wallet.
func (s *Service) TopUp(ctx context.Context, userID uuid.UUID, req MovementRequest) (*Wallet, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.store.EnsureWallet(ctx, userID); err != nil {
		return nil, fmt.Errorf("ensure wallet: %w", err)
	}

	reference := uuid.NewString()
	res, err := s.provider.CreateTopUp(ctx, payment.Request{
		Amount:    req.Amount,
		Method:    req.Method,
		Details:   req.Details,
		Reference: reference,
	})
	if err != nil {
		return nil, fmt.Errorf("top-up via %s: %w", s.provider.Name(), err)
	}
	if !res.Success {
		log.Warn().Str("user_id", userID.String()).Int64("amount", req.Amount).Str("gateway_ref", res.GatewayRef).Msg("wallet topup declined")
		return nil, ErrPaymentDeclined
	}

	w, err := s.store.Mutate(ctx, userID, func(w *Wallet) (*Transaction, error) {
		if err := w.Credit(req.Amount); err != nil {
			return nil, err
		}
		return NewTransaction(userID, TransactionTypeTopUp, req.Amount, req.Method).WithReference(res.GatewayRef), nil
	})
	if err != nil {
		// The gateway captured funds we failed to record; reconciliation needs the reference.
		log.Error().Err(err).Str("user_id", userID.String()).Int64("amount", req.Amount).Str("gateway_ref", res.GatewayRef).Msg("wallet topup captured but not recorded")
		return nil, err
	}

	log.Info().Str("user_id", userID.String()).Int64("amount", req.Amount).Str("gateway_ref", res.GatewayRef).Msg("wallet topup applied")
	return w, nil
}

// Withdraw holds the wallet lock across the provider call so the balance cannot be
// spent twice; a declined or failed payout rolls the debit back.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, req MovementRequest) (*Wallet, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var gatewayRef string
	w, err := s.store.Mutate(ctx, userID, func(w *Wallet) (*Transaction, error) {
		if err := w.Debit(req.Amount); err != nil {
			return nil, err
		}

		res, err := s.provider.CreateWithdrawal(ctx, payment.Request{
			Amount:    req.Amount,
			Method:    req.Method,
			Details:   req.Details,
			Reference: uuid.NewString(),
		})
		if err != nil {
			return nil, fmt.Errorf("withdrawal via %s: %w", s.provider.Name(), err)
		}
		if !res.Success {
			return nil, ErrPaymentDeclined
		}
		gatewayRef = res.GatewayRef
		return NewTransaction(userID, TransactionTypeWithdraw, -req.Amount, req.Method).WithReference(res.GatewayRef), nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID.String()).Int64("amount", req.Amount).Str("gateway_ref", gatewayRef).Msg("wallet withdrawal applied")
	return w, nil
}
