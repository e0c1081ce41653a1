package escrow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/eventpay/escrow-api/internal/domain/dispute"
	"github.com/eventpay/escrow-api/internal/domain/escrow"
	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/domain/wallet"
	"github.com/eventpay/escrow-api/internal/storage/memory"
)

type sentNotification struct {
	UserID  uuid.UUID
	Message string
	Link    string
}

type notifierStub struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *notifierStub) Notify(ctx context.Context, userID uuid.UUID, message, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Message: message, Link: link})
	return nil
}

func (n *notifierStub) to(userID uuid.UUID) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	svc      *escrow.Service
	sched    *escrow.Scheduler
	disputes *dispute.Service
	notes    *notifierStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	svc := escrow.NewService(store, store)
	notes := &notifierStub{}
	return &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    store,
		svc:      svc,
		sched:    escrow.NewScheduler(store, dispute.NewGate(store), notes, time.Minute),
		disputes: dispute.NewService(store, store, svc),
		notes:    notes,
	}
}

func (f *fixture) event(hostID uuid.UUID) *event.Event {
	now := time.Now().UTC()
	ev := &event.Event{
		ID:              uuid.New(),
		HostID:          hostID,
		Title:           "Quarterly meetup",
		LifecycleStatus: event.LifecycleActive,
		EscrowStatus:    event.EscrowPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.store.PutEvent(ev)
	return ev
}

func (f *fixture) wallet(userID uuid.UUID, available int64) {
	f.store.PutWallet(&wallet.Wallet{UserID: userID, AvailableBalance: available, LastUpdated: time.Now().UTC()})
}

func (f *fixture) fund(eventID, payerID uuid.UUID, amount int64) uuid.UUID {
	f.t.Helper()
	res := f.svc.FundEscrow(f.ctx, escrow.FundRequest{EventID: eventID, PayerID: payerID, Amount: amount})
	require.True(f.t, res.Success, "funding failed: %+v", res)
	require.NotNil(f.t, res.EscrowID)
	return *res.EscrowID
}

func (f *fixture) setLifecycle(eventID uuid.UUID, status event.LifecycleStatus) {
	f.t.Helper()
	require.NoError(f.t, f.store.SetLifecycleStatus(f.ctx, eventID, status))
}

func (f *fixture) getWallet(userID uuid.UUID) *wallet.Wallet {
	f.t.Helper()
	w, err := f.store.GetWallet(f.ctx, userID)
	require.NoError(f.t, err)
	return w
}

func (f *fixture) getEvent(eventID uuid.UUID) *event.Event {
	f.t.Helper()
	ev, err := f.store.GetEvent(f.ctx, eventID)
	require.NoError(f.t, err)
	return ev
}

func (f *fixture) getEscrow(id uuid.UUID) *escrow.Escrow {
	f.t.Helper()
	e, err := f.store.GetEscrow(f.ctx, id)
	require.NoError(f.t, err)
	return e
}

// txs returns the ledger rows of userID with the given type.
func (f *fixture) txs(userID uuid.UUID, typ wallet.TransactionType) []wallet.Transaction {
	var out []wallet.Transaction
	for _, t := range f.store.Transactions() {
		if t.WalletID == userID && t.Type == typ {
			out = append(out, t)
		}
	}
	return out
}
