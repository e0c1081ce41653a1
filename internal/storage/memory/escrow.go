package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/domain/dispute"
	"github.com/eventpay/escrow-api/internal/domain/escrow"
	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/domain/wallet"
)

func (s *Store) InTx(ctx context.Context, fn func(tx escrow.Tx) error) error {
	return s.atomically(func(d *state) error {
		return fn(&memTx{store: s, data: d})
	})
}

func (s *Store) GetEscrow(ctx context.Context, id uuid.UUID) (*escrow.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data.escrows[id]
	if !ok {
		return nil, escrow.ErrEscrowNotFound
	}
	return &e, nil
}

func (s *Store) ListEscrowsByEvent(ctx context.Context, eventID uuid.UUID, status escrow.Status) ([]*escrow.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*escrow.Escrow, 0)
	for _, e := range s.data.escrows {
		if e.EventID == eventID && (status == "" || e.Status == status) {
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// PutEscrow stores e as-is. Used to seed fixtures.
func (s *Store) PutEscrow(e *escrow.Escrow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.escrows[e.ID] = *e
	s.data.escrowPairs[escrowKey{EventID: e.EventID, PayerID: e.PayerID}] = e.ID
}

// PutWallet stores w as-is. Used to seed fixtures.
func (s *Store) PutWallet(w *wallet.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.wallets[w.UserID] = *w
}

// memTx operates on the live state while the store's write lock is held.
type memTx struct {
	store *Store
	data  *state
}

func (t *memTx) LockEvent(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	e, ok := t.data.events[id]
	if !ok {
		return nil, event.ErrEventNotFound
	}
	return &e, nil
}

func (t *memTx) SaveEventEscrow(ctx context.Context, e *event.Event) error {
	if err := t.store.check("SaveEventEscrow", e.ID); err != nil {
		return err
	}
	cur, ok := t.data.events[e.ID]
	if !ok {
		return event.ErrEventNotFound
	}
	cur.EscrowStatus = e.EscrowStatus
	cur.TotalEscrowAmount = e.TotalEscrowAmount
	cur.PendingPayout = e.PendingPayout
	cur.UpdatedAt = time.Now().UTC()
	t.data.events[e.ID] = cur
	return nil
}

func (t *memTx) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	ensureWallet(t.data, userID)
	return nil
}

func (t *memTx) LockWallet(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	w, ok := t.data.wallets[userID]
	if !ok {
		return nil, wallet.ErrWalletNotFound
	}
	return &w, nil
}

func (t *memTx) SaveWallet(ctx context.Context, w *wallet.Wallet) error {
	if err := t.store.check("SaveWallet", w.UserID); err != nil {
		return err
	}
	if _, ok := t.data.wallets[w.UserID]; !ok {
		return wallet.ErrWalletNotFound
	}
	if w.AvailableBalance < 0 || w.EscrowBalance < 0 {
		return &wallet.IntegrityError{UserID: w.UserID, Field: "balance", Have: min(w.AvailableBalance, w.EscrowBalance)}
	}
	t.data.wallets[w.UserID] = *w
	return nil
}

func (t *memTx) InsertTransaction(ctx context.Context, tr *wallet.Transaction) error {
	if err := t.store.check("InsertTransaction", tr.WalletID); err != nil {
		return err
	}
	t.data.transactions = append(t.data.transactions, *tr)
	return nil
}

func (t *memTx) LockEscrow(ctx context.Context, id uuid.UUID) (*escrow.Escrow, error) {
	e, ok := t.data.escrows[id]
	if !ok {
		return nil, escrow.ErrEscrowNotFound
	}
	return &e, nil
}

func (t *memTx) FindEscrowForUpdate(ctx context.Context, eventID, payerID uuid.UUID) (*escrow.Escrow, error) {
	id, ok := t.data.escrowPairs[escrowKey{EventID: eventID, PayerID: payerID}]
	if !ok {
		return nil, escrow.ErrEscrowNotFound
	}
	return t.LockEscrow(ctx, id)
}

func (t *memTx) InsertEscrow(ctx context.Context, e *escrow.Escrow) error {
	if err := t.store.check("InsertEscrow", e.ID); err != nil {
		return err
	}
	key := escrowKey{EventID: e.EventID, PayerID: e.PayerID}
	if _, ok := t.data.escrowPairs[key]; ok {
		return escrow.ErrDuplicateEscrow
	}
	t.data.escrows[e.ID] = *e
	t.data.escrowPairs[key] = e.ID
	return nil
}

func (t *memTx) UpdateEscrow(ctx context.Context, e *escrow.Escrow, from escrow.Status) error {
	if err := t.store.check("UpdateEscrow", e.ID); err != nil {
		return err
	}
	cur, ok := t.data.escrows[e.ID]
	if !ok || cur.Status != from || cur.Version != e.Version {
		return escrow.ErrConcurrentUpdate
	}
	e.Version++
	t.data.escrows[e.ID] = *e
	return nil
}

func (t *memTx) CountHeldEscrows(ctx context.Context, eventID uuid.UUID) (int, error) {
	n := 0
	for _, e := range t.data.escrows {
		if e.EventID == eventID && e.IsHeld() {
			n++
		}
	}
	return n, nil
}

func (t *memTx) PromoteParticipant(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	key := participantKey{EventID: eventID, UserID: userID}
	p, ok := t.data.participants[key]
	if !ok || p.Status != event.ParticipantPendingPayment {
		return false, nil
	}
	p.Status = event.ParticipantConfirmed
	t.data.participants[key] = p
	return true, nil
}

func (t *memTx) ResolvePendingDisputes(ctx context.Context, eventID uuid.UUID, decision dispute.Decision) (int, error) {
	now := time.Now().UTC()
	n := 0
	for id, d := range t.data.disputes {
		if d.EventID != eventID || !d.IsPending() {
			continue
		}
		d.AdminDecision = decision
		d.ResolvedAt = &now
		d.UpdatedAt = now
		t.data.disputes[id] = d
		n++
	}
	return n, nil
}

func (t *memTx) MarkRefundApplied(ctx context.Context, requestID uuid.UUID) error {
	r, ok := t.data.refunds[requestID]
	if !ok || r.AppliedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	r.AppliedAt = &now
	r.UpdatedAt = now
	t.data.refunds[requestID] = r
	return nil
}
