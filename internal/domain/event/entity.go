package event

import (
	"time"

	"github.com/google/uuid"
)

// LifecycleStatus is owned by the scheduling subsystem.
type LifecycleStatus string

const (
	LifecycleActive    LifecycleStatus = "Active"
	LifecycleCompleted LifecycleStatus = "Completed"
	LifecyclePast      LifecycleStatus = "Past"
	LifecycleCancelled LifecycleStatus = "Cancelled"
)

// EscrowStatus is the event-level escrow aggregate.
type EscrowStatus string

const (
	EscrowPending          EscrowStatus = "Pending"
	EscrowInEscrow         EscrowStatus = "InEscrow"
	EscrowHeld             EscrowStatus = "Held" // legacy alias of InEscrow
	EscrowReleased         EscrowStatus = "Released"
	EscrowRefunded         EscrowStatus = "Refunded"
	EscrowBlockedByDispute EscrowStatus = "BlockedByDispute"
	EscrowBlockedByRefund  EscrowStatus = "BlockedByRefund"
)

// SettlementCandidateStatuses are the aggregates a settlement pass looks at.
var SettlementCandidateStatuses = []EscrowStatus{
	EscrowInEscrow,
	EscrowHeld,
	EscrowBlockedByDispute,
	EscrowBlockedByRefund,
}

// SettlementLifecycles are the lifecycle states a settlement pass acts on.
var SettlementLifecycles = []LifecycleStatus{
	LifecycleCompleted,
	LifecyclePast,
	LifecycleCancelled,
}

// ParticipantStatus of a roster entry.
type ParticipantStatus string

const (
	ParticipantPendingPayment ParticipantStatus = "pending_payment"
	ParticipantConfirmed      ParticipantStatus = "confirmed"
)

// Event is the escrow-relevant slice of the platform's event record.
type Event struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	HostID            uuid.UUID       `db:"host_id" json:"host_id"`
	Title             string          `db:"title" json:"title"`
	LifecycleStatus   LifecycleStatus `db:"lifecycle_status" json:"lifecycle_status"`
	EscrowStatus      EscrowStatus    `db:"escrow_status" json:"escrow_status"`
	TotalEscrowAmount int64           `db:"total_escrow_amount" json:"total_escrow_amount"`
	// PendingPayout is released money not yet credited to the host.
	PendingPayout int64      `db:"pending_payout" json:"-"`
	EndsAt        *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Participant is one roster entry of an event.
type Participant struct {
	EventID  uuid.UUID         `db:"event_id" json:"event_id"`
	UserID   uuid.UUID         `db:"user_id" json:"user_id"`
	Status   ParticipantStatus `db:"status" json:"status"`
	JoinedAt time.Time         `db:"joined_at" json:"joined_at"`
}

// IsHeld reports whether the aggregate says money is sitting in escrow.
func (e *Event) IsHeld() bool {
	return e.EscrowStatus == EscrowInEscrow || e.EscrowStatus == EscrowHeld
}

// IsBlocked reports whether settlement was last blocked by a gate.
func (e *Event) IsBlocked() bool {
	return e.EscrowStatus == EscrowBlockedByDispute || e.EscrowStatus == EscrowBlockedByRefund
}

// IsConcluded reports whether the event is over and its escrow may be released.
func (e *Event) IsConcluded() bool {
	return e.LifecycleStatus == LifecycleCompleted || e.LifecycleStatus == LifecyclePast
}

func (e *Event) IsCancelled() bool {
	return e.LifecycleStatus == LifecycleCancelled
}

// RecordHold adds a funded amount to the aggregate. A blocked aggregate stays
// blocked; money is still held and the block remains visible.
func (e *Event) RecordHold(amount int64) {
	e.TotalEscrowAmount += amount
	if !e.IsBlocked() {
		e.EscrowStatus = EscrowInEscrow
	}
	e.UpdatedAt = time.Now().UTC()
}

// Ended reports whether an active event's end time has passed.
func (e *Event) Ended(now time.Time) bool {
	return e.LifecycleStatus == LifecycleActive && e.EndsAt != nil && !e.EndsAt.After(now)
}
