package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidEvent = errors.New("invalid event")

// Service maintains the event read model on behalf of the scheduling subsystem.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.store.GetEvent(ctx, id)
}

// Sync records or refreshes an event pushed by the scheduling subsystem.
func (s *Service) Sync(ctx context.Context, e *Event) (*Event, error) {
	if e.ID == uuid.Nil || e.HostID == uuid.Nil || !validLifecycle(e.LifecycleStatus) {
		return nil, ErrInvalidEvent
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	if err := s.store.UpsertEvent(ctx, e); err != nil {
		return nil, err
	}
	return s.store.GetEvent(ctx, e.ID)
}

func (s *Service) SetLifecycleStatus(ctx context.Context, id uuid.UUID, status LifecycleStatus) error {
	if !validLifecycle(status) {
		return ErrInvalidEvent
	}
	return s.store.SetLifecycleStatus(ctx, id, status)
}

// AddParticipant records a roster entry awaiting payment; funding confirms it.
func (s *Service) AddParticipant(ctx context.Context, eventID, userID uuid.UUID) error {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return err
	}
	return s.store.AddParticipant(ctx, &Participant{
		EventID:  eventID,
		UserID:   userID,
		Status:   ParticipantPendingPayment,
		JoinedAt: time.Now().UTC(),
	})
}

func (s *Service) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*Participant, error) {
	return s.store.ListParticipants(ctx, eventID)
}

func validLifecycle(s LifecycleStatus) bool {
	switch s {
	case LifecycleActive, LifecycleCompleted, LifecyclePast, LifecycleCancelled:
		return true
	}
	return false
}
