package dispute_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/eventpay/escrow-api/internal/domain/dispute"
	"github.com/eventpay/escrow-api/internal/pkg/database/dbtest"
)

// seedEscrow inserts the event and escrow rows the foreign keys need.
func seedEscrow(t *testing.T, db *sqlx.DB, payerID uuid.UUID) (eventID, escrowID uuid.UUID) {
	t.Helper()
	eventID, escrowID = uuid.New(), uuid.New()
	_, err := db.Exec(`INSERT INTO events (id, host_id, escrow_status) VALUES ($1, $2, 'InEscrow')`, eventID, uuid.New())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO escrows (id, event_id, payer_id, status, amount) VALUES ($1, $2, $3, 'Held', 25)`, escrowID, eventID, payerID)
	require.NoError(t, err)
	return eventID, escrowID
}

func TestRepositoryDisputeLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := dispute.NewRepository(db)
	eventID, _ := seedEscrow(t, db, uuid.New())

	now := time.Now().UTC()
	d := &dispute.Dispute{
		ID:             uuid.New(),
		EventID:        eventID,
		RaisedByUserID: uuid.New(),
		Reason:         "host never showed",
		AdminDecision:  dispute.DecisionPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, repo.CreateDispute(ctx, d))

	listed, err := repo.ListDisputesByEvent(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.True(t, listed[0].IsPending())

	admin := uuid.New()
	require.NoError(t, repo.ResolveDispute(ctx, d.ID, dispute.DecisionRefunded, admin, now))
	require.ErrorIs(t, repo.ResolveDispute(ctx, d.ID, dispute.DecisionReleased, admin, now), dispute.ErrAlreadyResolved)
	require.ErrorIs(t, repo.ResolveDispute(ctx, uuid.New(), dispute.DecisionReleased, admin, now), dispute.ErrDisputeNotFound)

	got, err := repo.GetDispute(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, dispute.DecisionRefunded, got.AdminDecision)
	require.Equal(t, uuid.NullUUID{UUID: admin, Valid: true}, got.ResolvedBy)
	require.NotNil(t, got.ResolvedAt)

	_, err = repo.GetDispute(ctx, uuid.New())
	require.ErrorIs(t, err, dispute.ErrDisputeNotFound)
}

func TestRepositoryGateReadsRefundRequests(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := dispute.NewRepository(db)
	gate := dispute.NewGate(repo)
	payer := uuid.New()
	eventID, escrowID := seedEscrow(t, db, payer)

	now := time.Now().UTC()
	rr := &dispute.RefundRequest{
		ID:               uuid.New(),
		EscrowID:         escrowID,
		EventID:          eventID,
		PayerID:          payer,
		ReportedByUserID: payer,
		Reason:           "cancelled on me",
		AdminDecision:    dispute.RefundPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, repo.CreateRefundRequest(ctx, rr))

	v, err := gate.Check(ctx, eventID)
	require.NoError(t, err)
	require.True(t, v.BlockedByRefund())
	require.Equal(t, []uuid.UUID{payer}, v.RefundRequesters())

	require.NoError(t, repo.ResolveRefundRequest(ctx, rr.ID, dispute.RefundApproved, uuid.New(), now))
	require.ErrorIs(t, repo.ResolveRefundRequest(ctx, rr.ID, dispute.RefundRejected, uuid.New(), now), dispute.ErrAlreadyResolved)

	v, err = gate.Check(ctx, eventID)
	require.NoError(t, err)
	require.False(t, v.Blocked())
	approved, ok := v.RefundFor(escrowID)
	require.True(t, ok)
	require.Equal(t, rr.ID, approved.ID)

	// Once paid the request no longer drives a refund.
	_, err = db.Exec(`UPDATE refund_requests SET applied_at = NOW() WHERE id = $1`, rr.ID)
	require.NoError(t, err)
	v, err = gate.Check(ctx, eventID)
	require.NoError(t, err)
	_, ok = v.RefundFor(escrowID)
	require.False(t, ok)

	_, err = repo.GetRefundRequest(ctx, uuid.New())
	require.ErrorIs(t, err, dispute.ErrRefundRequestNotFound)
}
