package wallet

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestHoldForEscrowConservesBalance(t *testing.T) {
	w := &Wallet{UserID: uuid.New(), AvailableBalance: 100}

	if err := w.HoldForEscrow(30); err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	if w.AvailableBalance != 70 || w.EscrowBalance != 30 {
		t.Fatalf("expected {70,30}, got {%d,%d}", w.AvailableBalance, w.EscrowBalance)
	}
	if w.AvailableBalance+w.EscrowBalance != 100 {
		t.Fatalf("available+escrow not conserved: %d", w.AvailableBalance+w.EscrowBalance)
	}
	if w.TotalSpent != 30 {
		t.Fatalf("expected total_spent 30, got %d", w.TotalSpent)
	}
}

func TestHoldForEscrowInsufficient(t *testing.T) {
	w := &Wallet{UserID: uuid.New(), AvailableBalance: 10}

	err := w.HoldForEscrow(11)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if w.AvailableBalance != 10 || w.EscrowBalance != 0 || w.TotalSpent != 0 {
		t.Fatalf("wallet mutated on failed hold: %+v", w)
	}
}

func TestInvalidAmounts(t *testing.T) {
	w := &Wallet{UserID: uuid.New(), AvailableBalance: 10, EscrowBalance: 10}

	for name, fn := range map[string]func() error{
		"debit":   func() error { return w.Debit(0) },
		"credit":  func() error { return w.Credit(-1) },
		"hold":    func() error { return w.HoldForEscrow(-5) },
		"release": func() error { return w.ReleaseEscrow(0) },
		"refund":  func() error { _, err := w.RefundEscrow(0); return err },
	} {
		if err := fn(); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%s: expected ErrInvalidAmount, got %v", name, err)
		}
	}
}

func TestReleaseEscrowShortfallIsIntegrityError(t *testing.T) {
	w := &Wallet{UserID: uuid.New(), EscrowBalance: 5}

	err := w.ReleaseEscrow(6)
	if !IsIntegrityError(err) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
	if w.EscrowBalance != 5 {
		t.Fatalf("escrow balance must be untouched, got %d", w.EscrowBalance)
	}
}

func TestRefundEscrow(t *testing.T) {
	w := &Wallet{UserID: uuid.New(), AvailableBalance: 70, EscrowBalance: 30, TotalSpent: 30}

	floored, err := w.RefundEscrow(30)
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if floored {
		t.Fatal("did not expect total_spent floor")
	}
	if w.AvailableBalance != 100 || w.EscrowBalance != 0 || w.TotalSpent != 0 {
		t.Fatalf("unexpected wallet after refund: %+v", w)
	}
}

func TestRefundEscrowFloorsTotalSpent(t *testing.T) {
	w := &Wallet{UserID: uuid.New(), EscrowBalance: 20, TotalSpent: 5}

	floored, err := w.RefundEscrow(20)
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if !floored || w.TotalSpent != 0 {
		t.Fatalf("expected floored total_spent=0, got floored=%v total=%d", floored, w.TotalSpent)
	}
}

func TestRefundEscrowShortfall(t *testing.T) {
	w := &Wallet{UserID: uuid.New(), EscrowBalance: 1}

	if _, err := w.RefundEscrow(2); !IsIntegrityError(err) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
}
