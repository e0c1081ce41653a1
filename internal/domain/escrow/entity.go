package escrow

import (
	"time"

	"github.com/google/uuid"
)

// Status of one (event, payer) escrow record.
type Status string

const (
	StatusPending          Status = "Pending"
	StatusHeld             Status = "Held"
	StatusReleased         Status = "Released"
	StatusRefunded         Status = "Refunded"
	StatusBlockedByDispute Status = "BlockedByDispute"
	StatusBlockedByRefund  Status = "BlockedByRefund"
)

// Escrow is the per (event, payer) record. It is reused across funding cycles
// and never deleted.
type Escrow struct {
	ID      uuid.UUID `db:"id" json:"id"`
	EventID uuid.UUID `db:"event_id" json:"event_id"`
	PayerID uuid.UUID `db:"payer_id" json:"payer_id"`
	Status  Status    `db:"status" json:"status"`
	// Amount is what the current funding cycle holds.
	Amount int64 `db:"amount" json:"amount"`
	// Version increments on every write; transitions are conditional on it.
	Version   int64     `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewEscrow returns a Pending record for a first hold.
func NewEscrow(eventID, payerID uuid.UUID) *Escrow {
	now := time.Now().UTC()
	return &Escrow{
		ID:        uuid.New(),
		EventID:   eventID,
		PayerID:   payerID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *Escrow) IsHeld() bool {
	return e.Status == StatusHeld
}

// IsTerminal reports a settled funding cycle.
func (e *Escrow) IsTerminal() bool {
	return e.Status == StatusReleased || e.Status == StatusRefunded
}

// Hold adds amount to the current cycle. A terminal record is reopened and
// starts a new cycle.
func (e *Escrow) Hold(amount int64) {
	if e.IsHeld() {
		e.Amount += amount
	} else {
		e.Amount = amount
	}
	e.Status = StatusHeld
	e.UpdatedAt = time.Now().UTC()
}

// Settle moves a Held record to Released or Refunded.
func (e *Escrow) Settle(to Status) error {
	if !e.IsHeld() {
		return ErrNotHeld
	}
	if to != StatusReleased && to != StatusRefunded {
		return ErrInvalidTransition
	}
	e.Status = to
	e.UpdatedAt = time.Now().UTC()
	return nil
}
