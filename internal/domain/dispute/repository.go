package dispute

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store is the persistence contract for disputes and refund requests.
type Store interface {
	CreateDispute(ctx context.Context, d *Dispute) error
	GetDispute(ctx context.Context, id uuid.UUID) (*Dispute, error)
	ListDisputesByEvent(ctx context.Context, eventID uuid.UUID) ([]*Dispute, error)
	// ResolveDispute moves a Pending dispute to decision. Returns ErrAlreadyResolved
	// if it is no longer Pending.
	ResolveDispute(ctx context.Context, id uuid.UUID, decision Decision, by uuid.UUID, at time.Time) error

	CreateRefundRequest(ctx context.Context, r *RefundRequest) error
	GetRefundRequest(ctx context.Context, id uuid.UUID) (*RefundRequest, error)
	ListRefundRequestsByEvent(ctx context.Context, eventID uuid.UUID) ([]*RefundRequest, error)
	ResolveRefundRequest(ctx context.Context, id uuid.UUID, decision RefundDecision, by uuid.UUID, at time.Time) error
}

const disputeColumns = `id, event_id, raised_by_user_id, reason, admin_decision, resolved_by, resolved_at, created_at, updated_at`

const refundColumns = `id, escrow_id, event_id, payer_id, reported_by_user_id, reason, admin_decision, resolved_by, resolved_at, applied_at, created_at, updated_at`

// Repository is the PostgreSQL implementation of Store.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateDispute(ctx context.Context, d *Dispute) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO disputes (`+disputeColumns+`)
		VALUES (:id, :event_id, :raised_by_user_id, :reason, :admin_decision, :resolved_by, :resolved_at, :created_at, :updated_at)
	`, d)
	if err != nil {
		return fmt.Errorf("create dispute: %w", err)
	}
	return nil
}

func (r *Repository) GetDispute(ctx context.Context, id uuid.UUID) (*Dispute, error) {
	var d Dispute
	err := r.db.GetContext(ctx, &d, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) ListDisputesByEvent(ctx context.Context, eventID uuid.UUID) ([]*Dispute, error) {
	out := make([]*Dispute, 0)
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+disputeColumns+`
		FROM disputes
		WHERE event_id = $1
		ORDER BY created_at
	`, eventID)
	return out, err
}

func (r *Repository) ResolveDispute(ctx context.Context, id uuid.UUID, decision Decision, by uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes
		SET admin_decision = $2, resolved_by = $3, resolved_at = $4, updated_at = $4
		WHERE id = $1 AND admin_decision = $5
	`, id, decision, by, at, DecisionPending)
	if err != nil {
		return fmt.Errorf("resolve dispute: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetDispute(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyResolved
	}
	return nil
}

func (r *Repository) CreateRefundRequest(ctx context.Context, rr *RefundRequest) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO refund_requests (`+refundColumns+`)
		VALUES (:id, :escrow_id, :event_id, :payer_id, :reported_by_user_id, :reason, :admin_decision, :resolved_by, :resolved_at, :applied_at, :created_at, :updated_at)
	`, rr)
	if err != nil {
		return fmt.Errorf("create refund request: %w", err)
	}
	return nil
}

func (r *Repository) GetRefundRequest(ctx context.Context, id uuid.UUID) (*RefundRequest, error) {
	var rr RefundRequest
	err := r.db.GetContext(ctx, &rr, `SELECT `+refundColumns+` FROM refund_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRefundRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

func (r *Repository) ListRefundRequestsByEvent(ctx context.Context, eventID uuid.UUID) ([]*RefundRequest, error) {
	out := make([]*RefundRequest, 0)
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+refundColumns+`
		FROM refund_requests
		WHERE event_id = $1
		ORDER BY created_at
	`, eventID)
	return out, err
}

func (r *Repository) ResolveRefundRequest(ctx context.Context, id uuid.UUID, decision RefundDecision, by uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refund_requests
		SET admin_decision = $2, resolved_by = $3, resolved_at = $4, updated_at = $4
		WHERE id = $1 AND admin_decision = $5
	`, id, decision, by, at, RefundPending)
	if err != nil {
		return fmt.Errorf("resolve refund request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetRefundRequest(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyResolved
	}
	return nil
}
