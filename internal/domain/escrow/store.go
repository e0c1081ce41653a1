package escrow

import (
	"context"

	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/domain/dispute"
	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/domain/wallet"
)

// Store is the persistence contract of funding and settlement. Every money
// movement runs inside InTx; reads outside it are advisory and re-checked.
type Store interface {
	// InTx runs fn as one atomic unit. Any error from fn rolls everything back.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetEscrow(ctx context.Context, id uuid.UUID) (*Escrow, error)
	ListEscrowsByEvent(ctx context.Context, eventID uuid.UUID, status Status) ([]*Escrow, error)
	// ListSettlementCandidates returns events in a settleable lifecycle whose
	// aggregate still holds or blocks money.
	ListSettlementCandidates(ctx context.Context) ([]*event.Event, error)
	// SetEventEscrowStatus writes only the aggregate status.
	SetEventEscrowStatus(ctx context.Context, eventID uuid.UUID, status event.EscrowStatus) error
}

// Tx is the set of row-locked operations available inside one unit of work.
type Tx interface {
	LockEvent(ctx context.Context, id uuid.UUID) (*event.Event, error)
	// SaveEventEscrow writes the aggregate columns: status, total and pending payout.
	SaveEventEscrow(ctx context.Context, e *event.Event) error

	EnsureWallet(ctx context.Context, userID uuid.UUID) error
	LockWallet(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)
	SaveWallet(ctx context.Context, w *wallet.Wallet) error
	InsertTransaction(ctx context.Context, t *wallet.Transaction) error

	LockEscrow(ctx context.Context, id uuid.UUID) (*Escrow, error)
	// FindEscrowForUpdate returns ErrEscrowNotFound when the pair has no record yet.
	FindEscrowForUpdate(ctx context.Context, eventID, payerID uuid.UUID) (*Escrow, error)
	// InsertEscrow returns ErrDuplicateEscrow if the (event, payer) pair exists.
	InsertEscrow(ctx context.Context, e *Escrow) error
	// UpdateEscrow persists e only if the stored row still has status from and
	// e.Version; on success e.Version is incremented. Otherwise ErrConcurrentUpdate.
	UpdateEscrow(ctx context.Context, e *Escrow, from Status) error
	CountHeldEscrows(ctx context.Context, eventID uuid.UUID) (int, error)

	// PromoteParticipant confirms a pending_payment roster entry. Reports whether one changed.
	PromoteParticipant(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	// ResolvePendingDisputes sets every Pending dispute of the event to decision.
	ResolvePendingDisputes(ctx context.Context, eventID uuid.UUID, decision dispute.Decision) (int, error)
	// MarkRefundApplied stamps an approved refund request as paid.
	MarkRefundApplied(ctx context.Context, requestID uuid.UUID) error
}
