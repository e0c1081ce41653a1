package dispute

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/domain/event"
)

type serviceFixture struct {
	svc    *Service
	store  *storeStub
	event  *event.Event
	escrow *EscrowRef
	payer  uuid.UUID
}

func newServiceFixture() *serviceFixture {
	host, payer := uuid.New(), uuid.New()
	ev := &event.Event{ID: uuid.New(), HostID: host, EscrowStatus: event.EscrowInEscrow}
	ref := &EscrowRef{ID: uuid.New(), EventID: ev.ID, PayerID: payer, Held: true}
	store := newStoreStub()
	return &serviceFixture{
		svc:    NewService(store, eventsStub{ev.ID: ev}, escrowsStub{ref.ID: ref}),
		store:  store,
		event:  ev,
		escrow: ref,
		payer:  payer,
	}
}

func TestRaiseDispute(t *testing.T) {
	f := newServiceFixture()

	d, err := f.svc.RaiseDispute(context.Background(), f.event.ID, uuid.New(), "  host no-show  ")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.AdminDecision != DecisionPending || d.Reason != "host no-show" {
		t.Fatalf("unexpected dispute %+v", d)
	}
	if _, ok := f.store.disputes[d.ID]; !ok {
		t.Fatal("dispute not stored")
	}
}

func TestRaiseDisputeRequiresHeldMoney(t *testing.T) {
	tests := []struct {
		status event.EscrowStatus
		want   error
	}{
		{event.EscrowInEscrow, nil},
		{event.EscrowHeld, nil},
		{event.EscrowBlockedByRefund, nil},
		{event.EscrowPending, ErrNoEscrowHeld},
		{event.EscrowReleased, ErrNoEscrowHeld},
		{event.EscrowRefunded, ErrNoEscrowHeld},
	}
	for _, tc := range tests {
		f := newServiceFixture()
		f.event.EscrowStatus = tc.status

		_, err := f.svc.RaiseDispute(context.Background(), f.event.ID, uuid.New(), "")
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.status, tc.want, err)
		}
	}

	f := newServiceFixture()
	if _, err := f.svc.RaiseDispute(context.Background(), uuid.New(), uuid.New(), ""); !errors.Is(err, event.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestRequestRefundParties(t *testing.T) {
	f := newServiceFixture()

	rr, err := f.svc.RequestRefund(context.Background(), f.escrow.ID, f.payer, "sick")
	if err != nil {
		t.Fatalf("payer: unexpected err: %v", err)
	}
	if rr.PayerID != f.payer || rr.EventID != f.event.ID || rr.AdminDecision != RefundPending {
		t.Fatalf("unexpected request %+v", rr)
	}

	if _, err := f.svc.RequestRefund(context.Background(), f.escrow.ID, f.event.HostID, ""); err != nil {
		t.Fatalf("host: unexpected err: %v", err)
	}

	if _, err := f.svc.RequestRefund(context.Background(), f.escrow.ID, uuid.New(), ""); !errors.Is(err, ErrNotParty) {
		t.Fatalf("stranger: expected ErrNotParty, got %v", err)
	}
}

func TestRequestRefundRequiresHeldEscrow(t *testing.T) {
	f := newServiceFixture()
	f.escrow.Held = false

	if _, err := f.svc.RequestRefund(context.Background(), f.escrow.ID, f.payer, ""); !errors.Is(err, ErrEscrowNotHeld) {
		t.Fatalf("expected ErrEscrowNotHeld, got %v", err)
	}
	if _, err := f.svc.RequestRefund(context.Background(), uuid.New(), f.payer, ""); !errors.Is(err, ErrEscrowNotFound) {
		t.Fatalf("expected ErrEscrowNotFound, got %v", err)
	}
}

func TestResolveDispute(t *testing.T) {
	f := newServiceFixture()
	d, err := f.svc.RaiseDispute(context.Background(), f.event.ID, uuid.New(), "")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if _, err := f.svc.ResolveDispute(context.Background(), d.ID, DecisionPending, uuid.New()); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision, got %v", err)
	}

	admin := uuid.New()
	got, err := f.svc.ResolveDispute(context.Background(), d.ID, DecisionRefunded, admin)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.AdminDecision != DecisionRefunded || got.ResolvedBy.UUID != admin || got.ResolvedAt == nil {
		t.Fatalf("unexpected resolution %+v", got)
	}

	if _, err := f.svc.ResolveDispute(context.Background(), d.ID, DecisionReleased, admin); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if _, err := f.svc.ResolveDispute(context.Background(), uuid.New(), DecisionReleased, admin); !errors.Is(err, ErrDisputeNotFound) {
		t.Fatalf("expected ErrDisputeNotFound, got %v", err)
	}
}

func TestResolveRefundRequest(t *testing.T) {
	f := newServiceFixture()
	rr, err := f.svc.RequestRefund(context.Background(), f.escrow.ID, f.payer, "")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if _, err := f.svc.ResolveRefundRequest(context.Background(), rr.ID, RefundDecision("Refunded"), uuid.New()); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision, got %v", err)
	}

	got, err := f.svc.ResolveRefundRequest(context.Background(), rr.ID, RefundApproved, uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !got.AwaitingRefund() {
		t.Fatalf("expected approved request to await refund: %+v", got)
	}

	if _, err := f.svc.ResolveRefundRequest(context.Background(), rr.ID, RefundRejected, uuid.New()); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}
