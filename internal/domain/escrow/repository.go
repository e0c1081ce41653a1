package escrow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/eventpay/escrow-api/internal/domain/dispute"
	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/domain/wallet"
	"github.com/eventpay/escrow-api/internal/pkg/database"
)

const (
	sqlStateUniqueViolation = "23505"
	escrowPairConstraint    = "escrows_event_id_payer_id_key"
)

const escrowColumns = `id, event_id, payer_id, status, amount, version, created_at, updated_at`

const eventColumns = `id, host_id, title, lifecycle_status, escrow_status, total_escrow_amount, pending_payout, ends_at, created_at, updated_at`

// Repository is the PostgreSQL implementation of Store. Wallet rows are
// written through the wallet repository's transaction helpers.
type Repository struct {
	db      *sqlx.DB
	wallets *wallet.Repository
}

func NewRepository(db *sqlx.DB, wallets *wallet.Repository) *Repository {
	return &Repository{db: db, wallets: wallets}
}

func (r *Repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&pgTx{tx: tx, wallets: r.wallets})
	})
}

func (r *Repository) GetEscrow(ctx context.Context, id uuid.UUID) (*Escrow, error) {
	var e Escrow
	err := r.db.GetContext(ctx, &e, `SELECT `+escrowColumns+` FROM escrows WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEscrowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) ListEscrowsByEvent(ctx context.Context, eventID uuid.UUID, status Status) ([]*Escrow, error) {
	out := make([]*Escrow, 0)
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+escrowColumns+`
		FROM escrows
		WHERE event_id = $1 AND ($2::text = '' OR status = $2::text)
		ORDER BY created_at
	`, eventID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list escrows: %w", err)
	}
	return out, nil
}

func (r *Repository) ListSettlementCandidates(ctx context.Context) ([]*event.Event, error) {
	query, args, err := sqlx.In(`
		SELECT `+eventColumns+`
		FROM events
		WHERE lifecycle_status IN (?) AND escrow_status IN (?)
		ORDER BY updated_at
	`, event.SettlementLifecycles, event.SettlementCandidateStatuses)
	if err != nil {
		return nil, err
	}

	out := make([]*event.Event, 0)
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list settlement candidates: %w", err)
	}
	return out, nil
}

func (r *Repository) SetEventEscrowStatus(ctx context.Context, eventID uuid.UUID, status event.EscrowStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events SET escrow_status = $2, updated_at = NOW()
		WHERE id = $1
	`, eventID, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return event.ErrEventNotFound
	}
	return nil
}

type pgTx struct {
	tx      *sqlx.Tx
	wallets *wallet.Repository
}

func (t *pgTx) LockEvent(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	var e event.Event
	err := t.tx.GetContext(ctx, &e, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, event.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock event: %w", err)
	}
	return &e, nil
}

func (t *pgTx) SaveEventEscrow(ctx context.Context, e *event.Event) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE events
		SET escrow_status = $2, total_escrow_amount = $3, pending_payout = $4, updated_at = $5
		WHERE id = $1
	`, e.ID, e.EscrowStatus, e.TotalEscrowAmount, e.PendingPayout, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update event escrow: %w", err)
	}
	return nil
}

func (t *pgTx) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (t *pgTx) LockWallet(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	return t.wallets.LockTx(ctx, t.tx, userID)
}

func (t *pgTx) SaveWallet(ctx context.Context, w *wallet.Wallet) error {
	return t.wallets.SaveTx(ctx, t.tx, w)
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr *wallet.Transaction) error {
	return t.wallets.InsertTransactionTx(ctx, t.tx, tr)
}

func (t *pgTx) LockEscrow(ctx context.Context, id uuid.UUID) (*Escrow, error) {
	var e Escrow
	err := t.tx.GetContext(ctx, &e, `SELECT `+escrowColumns+` FROM escrows WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEscrowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock escrow: %w", err)
	}
	return &e, nil
}

func (t *pgTx) FindEscrowForUpdate(ctx context.Context, eventID, payerID uuid.UUID) (*Escrow, error) {
	var e Escrow
	err := t.tx.GetContext(ctx, &e, `
		SELECT `+escrowColumns+`
		FROM escrows
		WHERE event_id = $1 AND payer_id = $2
		FOR UPDATE
	`, eventID, payerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEscrowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find escrow: %w", err)
	}
	return &e, nil
}

func (t *pgTx) InsertEscrow(ctx context.Context, e *Escrow) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO escrows (`+escrowColumns+`)
		VALUES (:id, :event_id, :payer_id, :status, :amount, :version, :created_at, :updated_at)
	`, e)
	return mapInsertError(err)
}

func (t *pgTx) UpdateEscrow(ctx context.Context, e *Escrow, from Status) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE escrows
		SET status = $2, amount = $3, version = version + 1, updated_at = $4
		WHERE id = $1 AND status = $5 AND version = $6
	`, e.ID, e.Status, e.Amount, e.UpdatedAt, from, e.Version)
	if err != nil {
		return fmt.Errorf("update escrow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConcurrentUpdate
	}
	e.Version++
	return nil
}

func (t *pgTx) CountHeldEscrows(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := t.tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM escrows WHERE event_id = $1 AND status = $2`, eventID, StatusHeld)
	return n, err
}

func (t *pgTx) PromoteParticipant(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE event_participants SET status = $3
		WHERE event_id = $1 AND user_id = $2 AND status = $4
	`, eventID, userID, event.ParticipantConfirmed, event.ParticipantPendingPayment)
	if err != nil {
		return false, fmt.Errorf("promote participant: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (t *pgTx) ResolvePendingDisputes(ctx context.Context, eventID uuid.UUID, decision dispute.Decision) (int, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE disputes SET admin_decision = $2, resolved_at = NOW(), updated_at = NOW()
		WHERE event_id = $1 AND admin_decision = $3
	`, eventID, decision, dispute.DecisionPending)
	if err != nil {
		return 0, fmt.Errorf("resolve pending disputes: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (t *pgTx) MarkRefundApplied(ctx context.Context, requestID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE refund_requests SET applied_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND applied_at IS NULL
	`, requestID)
	return err
}

// mapInsertError turns the (event, payer) unique violation into ErrDuplicateEscrow.
func mapInsertError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == sqlStateUniqueViolation && pqErr.Constraint == escrowPairConstraint {
		return ErrDuplicateEscrow
	}
	return fmt.Errorf("insert escrow: %w", err)
}
