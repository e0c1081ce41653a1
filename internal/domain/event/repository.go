package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store is the persistence contract of the event read model.
type Store interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	// UpsertEvent writes the fields owned by the scheduling subsystem. Escrow
	// aggregate columns are never touched here.
	UpsertEvent(ctx context.Context, e *Event) error
	SetLifecycleStatus(ctx context.Context, id uuid.UUID, status LifecycleStatus) error
	AddParticipant(ctx context.Context, p *Participant) error
	ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*Participant, error)
	// CompleteEnded moves Active events whose end time is before now to Completed.
	CompleteEnded(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

const eventColumns = `id, host_id, title, lifecycle_status, escrow_status, total_escrow_amount, pending_payout, ends_at, created_at, updated_at`

// Repository is the PostgreSQL implementation of Store.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	var e Event
	err := r.db.GetContext(ctx, &e, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) UpsertEvent(ctx context.Context, e *Event) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO events (id, host_id, title, lifecycle_status, ends_at, created_at, updated_at)
		VALUES (:id, :host_id, :title, :lifecycle_status, :ends_at, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			host_id = EXCLUDED.host_id,
			title = EXCLUDED.title,
			lifecycle_status = EXCLUDED.lifecycle_status,
			ends_at = EXCLUDED.ends_at,
			updated_at = EXCLUDED.updated_at
	`, e)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}

func (r *Repository) SetLifecycleStatus(ctx context.Context, id uuid.UUID, status LifecycleStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events SET lifecycle_status = $2, updated_at = NOW()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *Repository) AddParticipant(ctx context.Context, p *Participant) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO event_participants (event_id, user_id, status, joined_at)
		VALUES (:event_id, :user_id, :status, :joined_at)
		ON CONFLICT (event_id, user_id) DO NOTHING
	`, p)
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

func (r *Repository) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*Participant, error) {
	participants := make([]*Participant, 0)
	err := r.db.SelectContext(ctx, &participants, `
		SELECT event_id, user_id, status, joined_at
		FROM event_participants
		WHERE event_id = $1
		ORDER BY joined_at
	`, eventID)
	return participants, err
}

func (r *Repository) CompleteEnded(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		UPDATE events SET lifecycle_status = $1, updated_at = NOW()
		WHERE lifecycle_status = $2 AND ends_at IS NOT NULL AND ends_at <= $3
		RETURNING id
	`, LifecycleCompleted, LifecycleActive, now)
	if err != nil {
		return nil, fmt.Errorf("complete ended events: %w", err)
	}
	return ids, nil
}
