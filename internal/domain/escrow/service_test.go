package escrow_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/eventpay/escrow-api/internal/domain/escrow"
	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/domain/wallet"
)

func TestFundEscrowHoldConservesBalance(t *testing.T) {
	f := newFixture(t)
	payer := uuid.New()
	f.wallet(payer, 100)
	ev := f.event(uuid.New())
	require.NoError(t, f.store.AddParticipant(f.ctx, &event.Participant{EventID: ev.ID, UserID: payer, Status: event.ParticipantPendingPayment}))

	id := f.fund(ev.ID, payer, 30)

	w := f.getWallet(payer)
	require.Equal(t, int64(70), w.AvailableBalance)
	require.Equal(t, int64(30), w.EscrowBalance)
	require.Equal(t, int64(30), w.TotalSpent)

	esc := f.getEscrow(id)
	require.Equal(t, escrow.StatusHeld, esc.Status)
	require.Equal(t, int64(30), esc.Amount)

	got := f.getEvent(ev.ID)
	require.Equal(t, event.EscrowInEscrow, got.EscrowStatus)
	require.Equal(t, int64(30), got.TotalEscrowAmount)

	holds := f.txs(payer, wallet.TransactionTypeEscrowHold)
	require.Len(t, holds, 1)
	require.Equal(t, int64(-30), holds[0].Amount)
	require.Equal(t, id, holds[0].EscrowID.UUID)
	require.Equal(t, wallet.PaymentMethodWallet, holds[0].PaymentMethod)

	participants, err := f.store.ListParticipants(f.ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	require.Equal(t, event.ParticipantConfirmed, participants[0].Status)
}

func TestFundEscrowIsCumulative(t *testing.T) {
	f := newFixture(t)
	payer := uuid.New()
	f.wallet(payer, 100)
	ev := f.event(uuid.New())

	first := f.fund(ev.ID, payer, 10)
	second := f.fund(ev.ID, payer, 5)
	require.Equal(t, first, second)

	list, err := f.store.ListEscrowsByEvent(f.ctx, ev.ID, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(15), list[0].Amount)
	require.Equal(t, escrow.StatusHeld, list[0].Status)

	require.Equal(t, int64(15), f.getEvent(ev.ID).TotalEscrowAmount)
	require.Len(t, f.txs(payer, wallet.TransactionTypeEscrowHold), 2)
}

func TestFundEscrowRejections(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		event  bool
		wallet bool
		want   string
	}{
		{"zero amount", 0, true, true, escrow.CodeValidation},
		{"negative amount", -5, true, true, escrow.CodeValidation},
		{"unknown event", 10, false, true, escrow.CodeEventNotFound},
		{"no wallet", 10, true, false, escrow.CodeWalletNotFound},
		{"insufficient", 1000, true, true, escrow.CodeInsufficientBalance},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			payer := uuid.New()
			if tc.wallet {
				f.wallet(payer, 100)
			}
			eventID := uuid.New()
			if tc.event {
				eventID = f.event(uuid.New()).ID
			}

			res := f.svc.FundEscrow(f.ctx, escrow.FundRequest{EventID: eventID, PayerID: payer, Amount: tc.amount})
			require.False(t, res.Success)
			require.Equal(t, tc.want, res.Code)
			require.Nil(t, res.EscrowID)
			require.Empty(t, f.store.Transactions())

			if tc.wallet {
				w := f.getWallet(payer)
				require.Equal(t, int64(100), w.AvailableBalance)
				require.Zero(t, w.EscrowBalance)
			}
			if tc.event {
				list, err := f.store.ListEscrowsByEvent(f.ctx, eventID, "")
				require.NoError(t, err)
				require.Empty(t, list)
			}
		})
	}
}

func TestFundEscrowRollsBackOnWriteFailure(t *testing.T) {
	for _, op := range []string{"InsertEscrow", "SaveEventEscrow", "SaveWallet", "InsertTransaction"} {
		t.Run(op, func(t *testing.T) {
			f := newFixture(t)
			payer := uuid.New()
			f.wallet(payer, 100)
			ev := f.event(uuid.New())
			f.store.SetFault(func(name string, _ uuid.UUID) error {
				if name == op {
					return errors.New("write failed")
				}
				return nil
			})

			res := f.svc.FundEscrow(f.ctx, escrow.FundRequest{EventID: ev.ID, PayerID: payer, Amount: 40})
			require.False(t, res.Success)
			require.Equal(t, escrow.CodeInternal, res.Code)

			w := f.getWallet(payer)
			require.Equal(t, int64(100), w.AvailableBalance)
			require.Zero(t, w.EscrowBalance)
			require.Zero(t, w.TotalSpent)

			got := f.getEvent(ev.ID)
			require.Zero(t, got.TotalEscrowAmount)
			require.Equal(t, event.EscrowPending, got.EscrowStatus)
			require.Empty(t, f.store.Transactions())
		})
	}
}

func TestFundEscrowReopensSettledRecord(t *testing.T) {
	f := newFixture(t)
	payer, host := uuid.New(), uuid.New()
	f.wallet(payer, 100)
	ev := f.event(host)

	id := f.fund(ev.ID, payer, 20)
	f.setLifecycle(ev.ID, event.LifecycleCancelled)
	f.sched.RunOnce(f.ctx)
	require.Equal(t, escrow.StatusRefunded, f.getEscrow(id).Status)

	again := f.fund(ev.ID, payer, 7)
	require.Equal(t, id, again)

	esc := f.getEscrow(id)
	require.Equal(t, escrow.StatusHeld, esc.Status)
	require.Equal(t, int64(7), esc.Amount)
}

func TestFundEscrowConcurrentFirstHolds(t *testing.T) {
	f := newFixture(t)
	payer := uuid.New()
	f.wallet(payer, 1000)
	ev := f.event(uuid.New())

	var wg sync.WaitGroup
	results := make([]escrow.FundResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.svc.FundEscrow(f.ctx, escrow.FundRequest{EventID: ev.ID, PayerID: payer, Amount: 10})
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		require.True(t, res.Success, "%+v", res)
	}
	list, err := f.store.ListEscrowsByEvent(f.ctx, ev.ID, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(80), list[0].Amount)

	w := f.getWallet(payer)
	require.Equal(t, int64(920), w.AvailableBalance)
	require.Equal(t, int64(80), w.EscrowBalance)
}

func TestGetEscrowStatus(t *testing.T) {
	f := newFixture(t)
	payer := uuid.New()
	f.wallet(payer, 50)
	ev := f.event(uuid.New())
	f.fund(ev.ID, payer, 25)

	view, err := f.svc.GetEscrowStatus(f.ctx, ev.ID)
	require.NoError(t, err)
	require.Equal(t, event.EscrowInEscrow, view.EscrowStatus)
	require.Equal(t, int64(25), view.TotalEscrowAmount)

	_, err = f.svc.GetEscrowStatus(f.ctx, uuid.New())
	require.ErrorIs(t, err, event.ErrEventNotFound)
}

func TestEscrowRef(t *testing.T) {
	f := newFixture(t)
	payer := uuid.New()
	f.wallet(payer, 50)
	ev := f.event(uuid.New())
	id := f.fund(ev.ID, payer, 25)

	ref, err := f.svc.EscrowRef(f.ctx, id)
	require.NoError(t, err)
	require.True(t, ref.Held)
	require.Equal(t, payer, ref.PayerID)
	require.Equal(t, ev.ID, ref.EventID)

	_, err = f.svc.EscrowRef(f.ctx, uuid.New())
	require.Error(t, err)
}
