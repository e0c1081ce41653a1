package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/domain/wallet"
)

func (s *Store) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	return s.atomically(func(d *state) error {
		ensureWallet(d, userID)
		return nil
	})
}

func ensureWallet(d *state, userID uuid.UUID) {
	if _, ok := d.wallets[userID]; !ok {
		d.wallets[userID] = wallet.Wallet{UserID: userID, LastUpdated: time.Now().UTC()}
	}
}

func (s *Store) GetWallet(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.data.wallets[userID]
	if !ok {
		return nil, wallet.ErrWalletNotFound
	}
	return &w, nil
}

func (s *Store) Mutate(ctx context.Context, userID uuid.UUID, fn func(w *wallet.Wallet) (*wallet.Transaction, error)) (*wallet.Wallet, error) {
	var out wallet.Wallet
	err := s.atomically(func(d *state) error {
		w, ok := d.wallets[userID]
		if !ok {
			return wallet.ErrWalletNotFound
		}
		t, err := fn(&w)
		if err != nil {
			return err
		}
		if err := s.check("SaveWallet", userID); err != nil {
			return err
		}
		d.wallets[userID] = w
		if t != nil {
			if err := s.check("InsertTransaction", userID); err != nil {
				return err
			}
			d.transactions = append(d.transactions, *t)
		}
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*wallet.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*wallet.Transaction, 0)
	for i := len(s.data.transactions) - 1; i >= 0; i-- {
		t := s.data.transactions[i]
		if t.WalletID == userID {
			all = append(all, &t)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return []*wallet.Transaction{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Transactions returns every ledger row in insertion order.
func (s *Store) Transactions() []wallet.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]wallet.Transaction(nil), s.data.transactions...)
}
