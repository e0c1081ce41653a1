package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/eventpay/escrow-api/internal/pkg/database"
)

// Store is the persistence contract of the wallet ledger.
type Store interface {
	EnsureWallet(ctx context.Context, userID uuid.UUID) error
	GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	// Mutate locks the wallet, applies fn and persists the wallet together with the
	// transaction fn returns. Any error rolls back both.
	Mutate(ctx context.Context, userID uuid.UUID, fn func(w *Wallet) (*Transaction, error)) (*Wallet, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, error)
}

const walletColumns = `user_id, available_balance, escrow_balance, total_spent, last_updated`

const transactionColumns = `id, wallet_id, escrow_id, type, amount, payment_method, payment_status, reference, created_at, completed_at`

// Repository is the PostgreSQL implementation of Store. Its *Tx helpers let other
// domains fold wallet mutations into their own transactions.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (r *Repository) GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) Mutate(ctx context.Context, userID uuid.UUID, fn func(w *Wallet) (*Transaction, error)) (*Wallet, error) {
	var out *Wallet
	err := database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		w, err := r.LockTx(ctx, tx, userID)
		if err != nil {
			return err
		}

		t, err := fn(w)
		if err != nil {
			return err
		}

		if err := r.SaveTx(ctx, tx, w); err != nil {
			return err
		}
		if t != nil {
			if err := r.InsertTransactionTx(ctx, tx, t); err != nil {
				return err
			}
		}
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 20
	}

	txs := make([]*Transaction, 0)
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+transactionColumns+`
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// LockTx reads the wallet row with FOR UPDATE inside tx.
func (r *Repository) LockTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := tx.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	return &w, nil
}

// SaveTx writes all balance columns. The table's CHECK constraints reject negatives.
func (r *Repository) SaveTx(ctx context.Context, tx *sqlx.Tx, w *Wallet) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET available_balance = $2, escrow_balance = $3, total_spent = $4, last_updated = $5
		WHERE user_id = $1
	`, w.UserID, w.AvailableBalance, w.EscrowBalance, w.TotalSpent, w.LastUpdated)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23514" {
			return &IntegrityError{UserID: w.UserID, Field: pqErr.Constraint, Have: min(w.AvailableBalance, w.EscrowBalance)}
		}
		return fmt.Errorf("update wallet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// InsertTransactionTx appends one audit row inside tx.
func (r *Repository) InsertTransactionTx(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO wallet_transactions (`+transactionColumns+`)
		VALUES (:id, :wallet_id, :escrow_id, :type, :amount, :payment_method, :payment_status, :reference, :created_at, :completed_at)
	`, t)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
