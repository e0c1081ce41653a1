package dispute

import (
	"time"

	"github.com/google/uuid"
)

// Decision is an administrator's ruling on a dispute.
type Decision string

const (
	DecisionPending  Decision = "Pending"
	DecisionReleased Decision = "Released"
	DecisionRefunded Decision = "Refunded"
)

// RefundDecision is an administrator's ruling on a refund request.
type RefundDecision string

const (
	RefundPending  RefundDecision = "Pending"
	RefundApproved RefundDecision = "Approved"
	RefundRejected RefundDecision = "Rejected"
)

// Dispute contests the settlement of a whole event.
type Dispute struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	EventID        uuid.UUID     `db:"event_id" json:"event_id"`
	RaisedByUserID uuid.UUID     `db:"raised_by_user_id" json:"raised_by_user_id"`
	Reason         string        `db:"reason" json:"reason"`
	AdminDecision  Decision      `db:"admin_decision" json:"admin_decision"`
	ResolvedBy     uuid.NullUUID `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

func (d *Dispute) IsPending() bool {
	return d.AdminDecision == DecisionPending
}

// RefundRequest asks for one payer's escrow to be returned.
type RefundRequest struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	EscrowID         uuid.UUID      `db:"escrow_id" json:"escrow_id"`
	EventID          uuid.UUID      `db:"event_id" json:"event_id"`
	PayerID          uuid.UUID      `db:"payer_id" json:"payer_id"`
	ReportedByUserID uuid.UUID      `db:"reported_by_user_id" json:"reported_by_user_id"`
	Reason           string         `db:"reason" json:"reason"`
	AdminDecision    RefundDecision `db:"admin_decision" json:"admin_decision"`
	ResolvedBy       uuid.NullUUID  `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time     `db:"resolved_at" json:"resolved_at,omitempty"`
	// AppliedAt is set when an approved refund has been paid out.
	AppliedAt *time.Time `db:"applied_at" json:"applied_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

func (r *RefundRequest) IsPending() bool {
	return r.AdminDecision == RefundPending
}

// AwaitingRefund reports an approved request whose refund has not been paid yet.
func (r *RefundRequest) AwaitingRefund() bool {
	return r.AdminDecision == RefundApproved && r.AppliedAt == nil
}
