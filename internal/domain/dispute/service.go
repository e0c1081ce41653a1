package dispute

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eventpay/escrow-api/internal/domain/event"
)

// EscrowRef is the slice of an escrow record a refund request needs.
type EscrowRef struct {
	ID      uuid.UUID
	EventID uuid.UUID
	PayerID uuid.UUID
	Held    bool
}

// EscrowReader resolves escrow IDs; returns ErrEscrowNotFound for unknown IDs.
type EscrowReader interface {
	EscrowRef(ctx context.Context, escrowID uuid.UUID) (*EscrowRef, error)
}

// EventReader resolves events.
type EventReader interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*event.Event, error)
}

// Service records disputes and refund requests and applies admin decisions.
// It never moves money; the settlement scheduler reads the decisions.
type Service struct {
	store   Store
	events  EventReader
	escrows EscrowReader
	now     func() time.Time
}

func NewService(store Store, events EventReader, escrows EscrowReader) *Service {
	return &Service{store: store, events: events, escrows: escrows, now: time.Now}
}

// RaiseDispute opens a Pending dispute against an event with money in escrow.
func (s *Service) RaiseDispute(ctx context.Context, eventID, userID uuid.UUID, reason string) (*Dispute, error) {
	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.IsHeld() && !ev.IsBlocked() {
		return nil, ErrNoEscrowHeld
	}

	now := s.now().UTC()
	d := &Dispute{
		ID:             uuid.New(),
		EventID:        eventID,
		RaisedByUserID: userID,
		Reason:         strings.TrimSpace(reason),
		AdminDecision:  DecisionPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateDispute(ctx, d); err != nil {
		return nil, err
	}

	log.Info().Str("dispute_id", d.ID.String()).Str("event_id", eventID.String()).Str("user_id", userID.String()).Msg("dispute raised")
	return d, nil
}

// RequestRefund opens a Pending refund request on a Held escrow. Only the payer
// or the event host may file one.
func (s *Service) RequestRefund(ctx context.Context, escrowID, userID uuid.UUID, reason string) (*RefundRequest, error) {
	ref, err := s.escrows.EscrowRef(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if !ref.Held {
		return nil, ErrEscrowNotHeld
	}
	if userID != ref.PayerID {
		ev, err := s.events.GetEvent(ctx, ref.EventID)
		if err != nil {
			return nil, err
		}
		if ev.HostID != userID {
			return nil, ErrNotParty
		}
	}

	now := s.now().UTC()
	rr := &RefundRequest{
		ID:               uuid.New(),
		EscrowID:         ref.ID,
		EventID:          ref.EventID,
		PayerID:          ref.PayerID,
		ReportedByUserID: userID,
		Reason:           strings.TrimSpace(reason),
		AdminDecision:    RefundPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateRefundRequest(ctx, rr); err != nil {
		return nil, err
	}

	log.Info().Str("refund_request_id", rr.ID.String()).Str("escrow_id", escrowID.String()).Str("user_id", userID.String()).Msg("refund requested")
	return rr, nil
}

// ResolveDispute records an administrator's ruling.
func (s *Service) ResolveDispute(ctx context.Context, id uuid.UUID, decision Decision, adminID uuid.UUID) (*Dispute, error) {
	if decision != DecisionReleased && decision != DecisionRefunded {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
	if err := s.store.ResolveDispute(ctx, id, decision, adminID, s.now().UTC()); err != nil {
		return nil, err
	}

	log.Info().Str("dispute_id", id.String()).Str("decision", string(decision)).Str("admin_id", adminID.String()).Msg("dispute resolved")
	return s.store.GetDispute(ctx, id)
}

// ResolveRefundRequest records an administrator's ruling.
func (s *Service) ResolveRefundRequest(ctx context.Context, id uuid.UUID, decision RefundDecision, adminID uuid.UUID) (*RefundRequest, error) {
	if decision != RefundApproved && decision != RefundRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
	if err := s.store.ResolveRefundRequest(ctx, id, decision, adminID, s.now().UTC()); err != nil {
		return nil, err
	}

	log.Info().Str("refund_request_id", id.String()).Str("decision", string(decision)).Str("admin_id", adminID.String()).Msg("refund request resolved")
	return s.store.GetRefundRequest(ctx, id)
}

func (s *Service) ListDisputes(ctx context.Context, eventID uuid.UUID) ([]*Dispute, error) {
	return s.store.ListDisputesByEvent(ctx, eventID)
}

func (s *Service) ListRefundRequests(ctx context.Context, eventID uuid.UUID) ([]*RefundRequest, error) {
	return s.store.ListRefundRequestsByEvent(ctx, eventID)
}
