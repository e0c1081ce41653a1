package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/domain/escrow"
	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/domain/wallet"
)

func TestInTxRollsBackOnError(t *testing.T) {
	s := New()
	userID := uuid.New()
	s.PutWallet(&wallet.Wallet{UserID: userID, AvailableBalance: 100})

	boom := errors.New("boom")
	err := s.InTx(context.Background(), func(tx escrow.Tx) error {
		w, err := tx.LockWallet(context.Background(), userID)
		if err != nil {
			return err
		}
		w.AvailableBalance = 1
		if err := tx.SaveWallet(context.Background(), w); err != nil {
			return err
		}
		if err := tx.InsertTransaction(context.Background(), wallet.NewTransaction(userID, wallet.TransactionTypeTopUp, 1, "card")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	w, _ := s.GetWallet(context.Background(), userID)
	if w.AvailableBalance != 100 {
		t.Fatalf("expected rollback to 100, got %d", w.AvailableBalance)
	}
	if n := len(s.Transactions()); n != 0 {
		t.Fatalf("expected no transactions after rollback, got %d", n)
	}
}

func TestFaultHookAbortsUnit(t *testing.T) {
	s := New()
	userID := uuid.New()
	s.PutWallet(&wallet.Wallet{UserID: userID, AvailableBalance: 50})
	s.SetFault(func(op string, key uuid.UUID) error {
		if op == "InsertTransaction" {
			return errors.New("disk full")
		}
		return nil
	})

	_, err := s.Mutate(context.Background(), userID, func(w *wallet.Wallet) (*wallet.Transaction, error) {
		if err := w.Credit(10); err != nil {
			return nil, err
		}
		return wallet.NewTransaction(userID, wallet.TransactionTypeTopUp, 10, "card"), nil
	})
	if err == nil {
		t.Fatal("expected injected failure")
	}

	w, _ := s.GetWallet(context.Background(), userID)
	if w.AvailableBalance != 50 {
		t.Fatalf("expected balance unchanged, got %d", w.AvailableBalance)
	}
}

func TestUpdateEscrowIsConditionalOnVersion(t *testing.T) {
	s := New()
	esc := escrow.NewEscrow(uuid.New(), uuid.New())
	esc.Hold(10)
	s.PutEscrow(esc)

	stale := *esc
	err := s.InTx(context.Background(), func(tx escrow.Tx) error {
		cur, err := tx.LockEscrow(context.Background(), esc.ID)
		if err != nil {
			return err
		}
		if err := cur.Settle(escrow.StatusReleased); err != nil {
			return err
		}
		return tx.UpdateEscrow(context.Background(), cur, escrow.StatusHeld)
	})
	if err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	err = s.InTx(context.Background(), func(tx escrow.Tx) error {
		if err := stale.Settle(escrow.StatusRefunded); err != nil {
			return err
		}
		return tx.UpdateEscrow(context.Background(), &stale, escrow.StatusHeld)
	})
	if !errors.Is(err, escrow.ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate for stale writer, got %v", err)
	}

	got, _ := s.GetEscrow(context.Background(), esc.ID)
	if got.Status != escrow.StatusReleased || got.Version != 1 {
		t.Fatalf("unexpected escrow after race: %+v", got)
	}
}

func TestInsertEscrowRejectsDuplicatePair(t *testing.T) {
	s := New()
	eventID, payerID := uuid.New(), uuid.New()

	err := s.InTx(context.Background(), func(tx escrow.Tx) error {
		if err := tx.InsertEscrow(context.Background(), escrow.NewEscrow(eventID, payerID)); err != nil {
			return err
		}
		return tx.InsertEscrow(context.Background(), escrow.NewEscrow(eventID, payerID))
	})
	if !errors.Is(err, escrow.ErrDuplicateEscrow) {
		t.Fatalf("expected ErrDuplicateEscrow, got %v", err)
	}
	if list, _ := s.ListEscrowsByEvent(context.Background(), eventID, ""); len(list) != 0 {
		t.Fatalf("expected rollback of first insert, got %d rows", len(list))
	}
}

func TestListSettlementCandidates(t *testing.T) {
	s := New()
	now := time.Now().UTC()
	mk := func(l event.LifecycleStatus, e event.EscrowStatus) uuid.UUID {
		id := uuid.New()
		s.PutEvent(&event.Event{ID: id, HostID: uuid.New(), LifecycleStatus: l, EscrowStatus: e, UpdatedAt: now})
		return id
	}
	completed := mk(event.LifecycleCompleted, event.EscrowInEscrow)
	cancelled := mk(event.LifecycleCancelled, event.EscrowHeld)
	blocked := mk(event.LifecyclePast, event.EscrowBlockedByDispute)
	mk(event.LifecycleActive, event.EscrowInEscrow)
	mk(event.LifecycleCompleted, event.EscrowReleased)

	got, err := s.ListSettlementCandidates(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := map[uuid.UUID]bool{completed: true, cancelled: true, blocked: true}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(got))
	}
	for _, e := range got {
		if !want[e.ID] {
			t.Fatalf("unexpected candidate %s (%s/%s)", e.ID, e.LifecycleStatus, e.EscrowStatus)
		}
	}
}

func TestCompleteEnded(t *testing.T) {
	s := New()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	ended := uuid.New()
	s.PutEvent(&event.Event{ID: ended, LifecycleStatus: event.LifecycleActive, EndsAt: &past})
	s.PutEvent(&event.Event{ID: uuid.New(), LifecycleStatus: event.LifecycleActive, EndsAt: &future})
	s.PutEvent(&event.Event{ID: uuid.New(), LifecycleStatus: event.LifecycleCancelled, EndsAt: &past})

	ids, err := s.CompleteEnded(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(ids) != 1 || ids[0] != ended {
		t.Fatalf("expected only %s completed, got %v", ended, ids)
	}
	e, _ := s.GetEvent(context.Background(), ended)
	if e.LifecycleStatus != event.LifecycleCompleted {
		t.Fatalf("expected Completed, got %s", e.LifecycleStatus)
	}
}
