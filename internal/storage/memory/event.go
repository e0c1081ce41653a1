package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/domain/event"
)

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data.events[id]
	if !ok {
		return nil, event.ErrEventNotFound
	}
	return &e, nil
}

// UpsertEvent keeps existing escrow aggregate columns on update.
func (s *Store) UpsertEvent(ctx context.Context, e *event.Event) error {
	return s.atomically(func(d *state) error {
		cur, ok := d.events[e.ID]
		if !ok {
			cur = *e
			if cur.EscrowStatus == "" {
				cur.EscrowStatus = event.EscrowPending
			}
			d.events[e.ID] = cur
			return nil
		}
		cur.HostID = e.HostID
		cur.Title = e.Title
		cur.LifecycleStatus = e.LifecycleStatus
		cur.EndsAt = e.EndsAt
		cur.UpdatedAt = e.UpdatedAt
		d.events[e.ID] = cur
		return nil
	})
}

// PutEvent stores e as-is, aggregate columns included. Used to seed fixtures.
func (s *Store) PutEvent(e *event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.events[e.ID] = *e
}

func (s *Store) SetLifecycleStatus(ctx context.Context, id uuid.UUID, status event.LifecycleStatus) error {
	return s.atomically(func(d *state) error {
		e, ok := d.events[id]
		if !ok {
			return event.ErrEventNotFound
		}
		e.LifecycleStatus = status
		e.UpdatedAt = time.Now().UTC()
		d.events[id] = e
		return nil
	})
}

func (s *Store) AddParticipant(ctx context.Context, p *event.Participant) error {
	return s.atomically(func(d *state) error {
		key := participantKey{EventID: p.EventID, UserID: p.UserID}
		if _, ok := d.participants[key]; !ok {
			d.participants[key] = *p
		}
		return nil
	})
}

func (s *Store) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*event.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*event.Participant, 0)
	for _, p := range s.data.participants {
		if p.EventID == eventID {
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *Store) CompleteEnded(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.atomically(func(d *state) error {
		for id, e := range d.events {
			if !e.Ended(now) {
				continue
			}
			e.LifecycleStatus = event.LifecycleCompleted
			e.UpdatedAt = now
			d.events[id] = e
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

func (s *Store) ListSettlementCandidates(ctx context.Context) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*event.Event, 0)
	for _, e := range s.data.events {
		if slices.Contains(event.SettlementLifecycles, e.LifecycleStatus) &&
			slices.Contains(event.SettlementCandidateStatuses, e.EscrowStatus) {
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) SetEventEscrowStatus(ctx context.Context, eventID uuid.UUID, status event.EscrowStatus) error {
	return s.atomically(func(d *state) error {
		e, ok := d.events[eventID]
		if !ok {
			return event.ErrEventNotFound
		}
		e.EscrowStatus = status
		e.UpdatedAt = time.Now().UTC()
		d.events[eventID] = e
		return nil
	})
}
