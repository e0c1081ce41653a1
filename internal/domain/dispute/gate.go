package dispute

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Verdict is what the gate found for one event at read time.
type Verdict struct {
	PendingDisputes []*Dispute
	PendingRefunds  []*RefundRequest
	// RefundAll is set when an administrator ruled a dispute Refunded.
	RefundAll bool
	// ApprovedRefunds maps escrow ID to the approved, unpaid refund request.
	ApprovedRefunds map[uuid.UUID]*RefundRequest
}

// BlockedByDispute reports a Pending dispute on the event.
func (v *Verdict) BlockedByDispute() bool {
	return len(v.PendingDisputes) > 0
}

// BlockedByRefund reports a Pending refund request on one of the event's escrows.
func (v *Verdict) BlockedByRefund() bool {
	return len(v.PendingRefunds) > 0
}

// Blocked reports whether automatic settlement must wait.
func (v *Verdict) Blocked() bool {
	return v.BlockedByDispute() || v.BlockedByRefund()
}

// RefundFor returns the approved refund request for an escrow, if any.
func (v *Verdict) RefundFor(escrowID uuid.UUID) (*RefundRequest, bool) {
	if v == nil {
		return nil, false
	}
	rr, ok := v.ApprovedRefunds[escrowID]
	return rr, ok
}

// DisputeRaisers returns the distinct users behind pending disputes.
func (v *Verdict) DisputeRaisers() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(v.PendingDisputes))
	for _, d := range v.PendingDisputes {
		ids = appendUnique(ids, d.RaisedByUserID)
	}
	return ids
}

// RefundRequesters returns the distinct users behind pending refund requests.
func (v *Verdict) RefundRequesters() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(v.PendingRefunds))
	for _, rr := range v.PendingRefunds {
		ids = appendUnique(ids, rr.ReportedByUserID)
	}
	return ids
}

// Gate is a pure read over disputes and refund requests. It never writes.
type Gate struct {
	store Store
}

func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// Check reads every dispute and refund request of the event.
func (g *Gate) Check(ctx context.Context, eventID uuid.UUID) (*Verdict, error) {
	disputes, err := g.store.ListDisputesByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	refunds, err := g.store.ListRefundRequestsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list refund requests: %w", err)
	}

	v := &Verdict{ApprovedRefunds: make(map[uuid.UUID]*RefundRequest)}
	for _, d := range disputes {
		switch d.AdminDecision {
		case DecisionPending:
			v.PendingDisputes = append(v.PendingDisputes, d)
		case DecisionRefunded:
			v.RefundAll = true
		}
	}
	for _, rr := range refunds {
		switch {
		case rr.IsPending():
			v.PendingRefunds = append(v.PendingRefunds, rr)
		case rr.AwaitingRefund():
			v.ApprovedRefunds[rr.EscrowID] = rr
		}
	}
	return v, nil
}

func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
