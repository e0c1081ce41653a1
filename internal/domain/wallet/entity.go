package wallet

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType matches the wallet_transaction_type enum.
type TransactionType string

const (
	TransactionTypeEscrowHold     TransactionType = "Escrow_Hold"
	TransactionTypeEscrowReleased TransactionType = "Escrow_Released"
	TransactionTypeEscrowRefund   TransactionType = "Escrow_Refund"
	TransactionTypeEscrowReceive  TransactionType = "Escrow_Receive"
	TransactionTypeTopUp          TransactionType = "TopUp"
	TransactionTypeWithdraw       TransactionType = "Withdraw"
)

// PaymentStatus of a transaction row.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentMethodWallet marks internal moves that never touch a gateway.
const PaymentMethodWallet = "wallet"

// Wallet holds a user's balances in minor currency units.
type Wallet struct {
	UserID           uuid.UUID `db:"user_id" json:"user_id"`
	AvailableBalance int64     `db:"available_balance" json:"available_balance"`
	EscrowBalance    int64     `db:"escrow_balance" json:"escrow_balance"`
	TotalSpent       int64     `db:"total_spent" json:"total_spent"`
	LastUpdated      time.Time `db:"last_updated" json:"last_updated"`
}

// Transaction is an append-only audit row. Amount is signed from the wallet's point of view.
type Transaction struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	WalletID      uuid.UUID       `db:"wallet_id" json:"wallet_id"`
	EscrowID      uuid.NullUUID   `db:"escrow_id" json:"escrow_id,omitempty"`
	Type          TransactionType `db:"type" json:"type"`
	Amount        int64           `db:"amount" json:"amount"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	PaymentStatus PaymentStatus   `db:"payment_status" json:"payment_status"`
	Reference     *string         `db:"reference" json:"reference,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// NewTransaction builds a completed transaction row stamped with now.
func NewTransaction(walletID uuid.UUID, txType TransactionType, amount int64, method string) *Transaction {
	now := time.Now().UTC()
	if method == "" {
		method = PaymentMethodWallet
	}
	return &Transaction{
		ID:            uuid.New(),
		WalletID:      walletID,
		Type:          txType,
		Amount:        amount,
		PaymentMethod: method,
		PaymentStatus: PaymentStatusCompleted,
		CreatedAt:     now,
		CompletedAt:   &now,
	}
}

// ForEscrow links the transaction to an escrow record.
func (t *Transaction) ForEscrow(escrowID uuid.UUID) *Transaction {
	t.EscrowID = uuid.NullUUID{UUID: escrowID, Valid: true}
	return t
}

// WithReference stores an external (gateway) reference.
func (t *Transaction) WithReference(ref string) *Transaction {
	if ref != "" {
		t.Reference = &ref
	}
	return t
}
