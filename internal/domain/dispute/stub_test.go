package dispute

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/domain/event"
)

type storeStub struct {
	disputes map[uuid.UUID]*Dispute
	refunds  map[uuid.UUID]*RefundRequest
	listErr  error
}

func newStoreStub() *storeStub {
	return &storeStub{
		disputes: make(map[uuid.UUID]*Dispute),
		refunds:  make(map[uuid.UUID]*RefundRequest),
	}
}

func (s *storeStub) CreateDispute(ctx context.Context, d *Dispute) error {
	s.disputes[d.ID] = d
	return nil
}

func (s *storeStub) GetDispute(ctx context.Context, id uuid.UUID) (*Dispute, error) {
	d, ok := s.disputes[id]
	if !ok {
		return nil, ErrDisputeNotFound
	}
	return d, nil
}

func (s *storeStub) ListDisputesByEvent(ctx context.Context, eventID uuid.UUID) ([]*Dispute, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*Dispute
	for _, d := range s.disputes {
		if d.EventID == eventID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *storeStub) ResolveDispute(ctx context.Context, id uuid.UUID, decision Decision, by uuid.UUID, at time.Time) error {
	d, ok := s.disputes[id]
	if !ok {
		return ErrDisputeNotFound
	}
	if !d.IsPending() {
		return ErrAlreadyResolved
	}
	d.AdminDecision = decision
	d.ResolvedBy = uuid.NullUUID{UUID: by, Valid: true}
	d.ResolvedAt = &at
	return nil
}

func (s *storeStub) CreateRefundRequest(ctx context.Context, r *RefundRequest) error {
	s.refunds[r.ID] = r
	return nil
}

func (s *storeStub) GetRefundRequest(ctx context.Context, id uuid.UUID) (*RefundRequest, error) {
	r, ok := s.refunds[id]
	if !ok {
		return nil, ErrRefundRequestNotFound
	}
	return r, nil
}

func (s *storeStub) ListRefundRequestsByEvent(ctx context.Context, eventID uuid.UUID) ([]*RefundRequest, error) {
	var out []*RefundRequest
	for _, r := range s.refunds {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *storeStub) ResolveRefundRequest(ctx context.Context, id uuid.UUID, decision RefundDecision, by uuid.UUID, at time.Time) error {
	r, ok := s.refunds[id]
	if !ok {
		return ErrRefundRequestNotFound
	}
	if !r.IsPending() {
		return ErrAlreadyResolved
	}
	r.AdminDecision = decision
	r.ResolvedBy = uuid.NullUUID{UUID: by, Valid: true}
	r.ResolvedAt = &at
	return nil
}

type eventsStub map[uuid.UUID]*event.Event

func (s eventsStub) GetEvent(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	e, ok := s[id]
	if !ok {
		return nil, event.ErrEventNotFound
	}
	return e, nil
}

type escrowsStub map[uuid.UUID]*EscrowRef

func (s escrowsStub) EscrowRef(ctx context.Context, id uuid.UUID) (*EscrowRef, error) {
	r, ok := s[id]
	if !ok {
		return nil, ErrEscrowNotFound
	}
	return r, nil
}

var errStore = errors.New("store down")
