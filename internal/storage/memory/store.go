// Package memory is an in-process implementation of every store interface,
// used in development mode and tests. Units of work run under one lock and are
// rolled back from a snapshot when they fail.
package memory

import (
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/domain/dispute"
	"github.com/eventpay/escrow-api/internal/domain/escrow"
	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/domain/notification"
	"github.com/eventpay/escrow-api/internal/domain/wallet"
)

// FaultFunc is consulted before every write inside a unit of work. A non-nil
// return aborts the unit as a store failure would.
type FaultFunc func(op string, key uuid.UUID) error

type participantKey struct {
	EventID uuid.UUID
	UserID  uuid.UUID
}

type escrowKey struct {
	EventID uuid.UUID
	PayerID uuid.UUID
}

type state struct {
	wallets       map[uuid.UUID]wallet.Wallet
	transactions  []wallet.Transaction
	events        map[uuid.UUID]event.Event
	participants  map[participantKey]event.Participant
	escrows       map[uuid.UUID]escrow.Escrow
	escrowPairs   map[escrowKey]uuid.UUID
	disputes      map[uuid.UUID]dispute.Dispute
	refunds       map[uuid.UUID]dispute.RefundRequest
	notifications map[uuid.UUID]notification.Notification
}

func newState() *state {
	return &state{
		wallets:       make(map[uuid.UUID]wallet.Wallet),
		events:        make(map[uuid.UUID]event.Event),
		participants:  make(map[participantKey]event.Participant),
		escrows:       make(map[uuid.UUID]escrow.Escrow),
		escrowPairs:   make(map[escrowKey]uuid.UUID),
		disputes:      make(map[uuid.UUID]dispute.Dispute),
		refunds:       make(map[uuid.UUID]dispute.RefundRequest),
		notifications: make(map[uuid.UUID]notification.Notification),
	}
}

// clone copies every table. Records are stored by value, so this is a full snapshot.
func (s *state) clone() *state {
	return &state{
		wallets:       maps.Clone(s.wallets),
		transactions:  append([]wallet.Transaction(nil), s.transactions...),
		events:        maps.Clone(s.events),
		participants:  maps.Clone(s.participants),
		escrows:       maps.Clone(s.escrows),
		escrowPairs:   maps.Clone(s.escrowPairs),
		disputes:      maps.Clone(s.disputes),
		refunds:       maps.Clone(s.refunds),
		notifications: maps.Clone(s.notifications),
	}
}

// Store implements wallet.Store, event.Store, dispute.Store, escrow.Store and
// notification.Repository over one shared state.
type Store struct {
	mu    sync.RWMutex
	data  *state
	fault FaultFunc
}

func New() *Store {
	return &Store{data: newState()}
}

// SetFault installs fn as the fault hook; nil removes it.
func (s *Store) SetFault(fn FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

func (s *Store) check(op string, key uuid.UUID) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op, key)
}

// atomically runs fn against the live state under the write lock and restores
// the snapshot if fn fails. Callers must hold no lock.
func (s *Store) atomically(fn func(d *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(s.data); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

var (
	_ wallet.Store            = (*Store)(nil)
	_ event.Store             = (*Store)(nil)
	_ dispute.Store           = (*Store)(nil)
	_ escrow.Store            = (*Store)(nil)
	_ notification.Repository = (*Store)(nil)
)
