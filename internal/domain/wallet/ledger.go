package wallet

import "time"

// Balance primitives. Each one mutates the in-memory wallet only; callers persist the
// wallet together with exactly one Transaction row inside the same unit of work.

// Debit removes amount from the available balance.
func (w *Wallet) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.AvailableBalance < amount {
		return ErrInsufficientFunds
	}
	w.AvailableBalance -= amount
	w.touch()
	return nil
}

// Credit adds amount to the available balance.
func (w *Wallet) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	w.AvailableBalance += amount
	w.touch()
	return nil
}

// CanAfford reports whether the available balance covers amount.
func (w *Wallet) CanAfford(amount int64) bool {
	return amount > 0 && w.AvailableBalance >= amount
}

// HoldForEscrow moves amount from available into escrow and counts it as spent.
func (w *Wallet) HoldForEscrow(amount int64) error {
	if err := w.Debit(amount); err != nil {
		return err
	}
	w.EscrowBalance += amount
	w.TotalSpent += amount
	return nil
}

// ReleaseEscrow removes amount from the escrow balance on its way to a host.
// The host side is credited separately by the payout step.
func (w *Wallet) ReleaseEscrow(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.EscrowBalance < amount {
		return &IntegrityError{UserID: w.UserID, Field: "escrow_balance", Have: w.EscrowBalance, Need: amount}
	}
	w.EscrowBalance -= amount
	w.touch()
	return nil
}

// RefundEscrow returns amount from escrow to available and reverses the spend.
// totalSpent is floored at zero; floored reports whether that happened so the
// caller can log it as an anomaly.
func (w *Wallet) RefundEscrow(amount int64) (floored bool, err error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	if w.EscrowBalance < amount {
		return false, &IntegrityError{UserID: w.UserID, Field: "escrow_balance", Have: w.EscrowBalance, Need: amount}
	}
	w.EscrowBalance -= amount
	w.AvailableBalance += amount
	w.TotalSpent -= amount
	if w.TotalSpent < 0 {
		w.TotalSpent = 0
		floored = true
	}
	w.touch()
	return floored, nil
}

func (w *Wallet) touch() {
	w.LastUpdated = time.Now().UTC()
}
