package wallet

import (
	"time"

	"github.com/google/uuid"
)

// WalletResponse represents wallet balances in API responses
type WalletResponse struct {
	UserID           uuid.UUID `json:"user_id"`
	AvailableBalance int64     `json:"available_balance"`
	EscrowBalance    int64     `json:"escrow_balance"`
	TotalSpent       int64     `json:"total_spent"`
	LastUpdated      time.Time `json:"last_updated"`
}

// WalletResponseFromEntity converts entity to response
func WalletResponseFromEntity(w *Wallet) *WalletResponse {
	return &WalletResponse{
		UserID:           w.UserID,
		AvailableBalance: w.AvailableBalance,
		EscrowBalance:    w.EscrowBalance,
		TotalSpent:       w.TotalSpent,
		LastUpdated:      w.LastUpdated,
	}
}

// TransactionResponse represents one ledger row in API responses
type TransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	EscrowID      *uuid.UUID      `json:"escrow_id,omitempty"`
	Type          TransactionType `json:"type"`
	Amount        int64           `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Reference     string          `json:"reference,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// TransactionResponseFromEntity converts entity to response
func TransactionResponseFromEntity(t *Transaction) *TransactionResponse {
	resp := &TransactionResponse{
		ID:            t.ID,
		Type:          t.Type,
		Amount:        t.Amount,
		PaymentMethod: t.PaymentMethod,
		PaymentStatus: t.PaymentStatus,
		CreatedAt:     t.CreatedAt,
		CompletedAt:   t.CompletedAt,
	}
	if t.EscrowID.Valid {
		id := t.EscrowID.UUID
		resp.EscrowID = &id
	}
	if t.Reference != nil {
		resp.Reference = *t.Reference
	}
	return resp
}
