package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/domain/dispute"
)

func (s *Store) CreateDispute(ctx context.Context, d *dispute.Dispute) error {
	return s.atomically(func(st *state) error {
		st.disputes[d.ID] = *d
		return nil
	})
}

func (s *Store) GetDispute(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.data.disputes[id]
	if !ok {
		return nil, dispute.ErrDisputeNotFound
	}
	return &d, nil
}

func (s *Store) ListDisputesByEvent(ctx context.Context, eventID uuid.UUID) ([]*dispute.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*dispute.Dispute, 0)
	for _, d := range s.data.disputes {
		if d.EventID == eventID {
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ResolveDispute(ctx context.Context, id uuid.UUID, decision dispute.Decision, by uuid.UUID, at time.Time) error {
	return s.atomically(func(st *state) error {
		d, ok := st.disputes[id]
		if !ok {
			return dispute.ErrDisputeNotFound
		}
		if !d.IsPending() {
			return dispute.ErrAlreadyResolved
		}
		d.AdminDecision = decision
		d.ResolvedBy = uuid.NullUUID{UUID: by, Valid: true}
		d.ResolvedAt = &at
		d.UpdatedAt = at
		st.disputes[id] = d
		return nil
	})
}

func (s *Store) CreateRefundRequest(ctx context.Context, r *dispute.RefundRequest) error {
	return s.atomically(func(st *state) error {
		st.refunds[r.ID] = *r
		return nil
	})
}

func (s *Store) GetRefundRequest(ctx context.Context, id uuid.UUID) (*dispute.RefundRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data.refunds[id]
	if !ok {
		return nil, dispute.ErrRefundRequestNotFound
	}
	return &r, nil
}

func (s *Store) ListRefundRequestsByEvent(ctx context.Context, eventID uuid.UUID) ([]*dispute.RefundRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*dispute.RefundRequest, 0)
	for _, r := range s.data.refunds {
		if r.EventID == eventID {
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ResolveRefundRequest(ctx context.Context, id uuid.UUID, decision dispute.RefundDecision, by uuid.UUID, at time.Time) error {
	return s.atomically(func(st *state) error {
		r, ok := st.refunds[id]
		if !ok {
			return dispute.ErrRefundRequestNotFound
		}
		if !r.IsPending() {
			return dispute.ErrAlreadyResolved
		}
		r.AdminDecision = decision
		r.ResolvedBy = uuid.NullUUID{UUID: by, Valid: true}
		r.ResolvedAt = &at
		r.UpdatedAt = at
		st.refunds[id] = r
		return nil
	})
}
