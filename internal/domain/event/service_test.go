package event_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/storage/memory"
)

func TestSyncPreservesEscrowAggregate(t *testing.T) {
	store := memory.New()
	svc := event.NewService(store)
	id, host := uuid.New(), uuid.New()
	store.PutEvent(&event.Event{ID: id, HostID: host, LifecycleStatus: event.LifecycleActive, EscrowStatus: event.EscrowInEscrow, TotalEscrowAmount: 90})

	got, err := svc.Sync(context.Background(), &event.Event{ID: id, HostID: host, Title: "Renamed", LifecycleStatus: event.LifecycleCancelled, EscrowStatus: event.EscrowPending})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Title != "Renamed" || got.LifecycleStatus != event.LifecycleCancelled {
		t.Fatalf("sync did not apply: %+v", got)
	}
	if got.EscrowStatus != event.EscrowInEscrow || got.TotalEscrowAmount != 90 {
		t.Fatalf("sync must not touch the escrow aggregate: %+v", got)
	}
}

func TestSyncValidation(t *testing.T) {
	svc := event.NewService(memory.New())

	for name, e := range map[string]*event.Event{
		"no id":     {HostID: uuid.New(), LifecycleStatus: event.LifecycleActive},
		"no host":   {ID: uuid.New(), LifecycleStatus: event.LifecycleActive},
		"lifecycle": {ID: uuid.New(), HostID: uuid.New(), LifecycleStatus: "Paused"},
	} {
		if _, err := svc.Sync(context.Background(), e); !errors.Is(err, event.ErrInvalidEvent) {
			t.Fatalf("%s: expected ErrInvalidEvent, got %v", name, err)
		}
	}
}

func TestAddParticipant(t *testing.T) {
	store := memory.New()
	svc := event.NewService(store)
	id := uuid.New()
	store.PutEvent(&event.Event{ID: id, HostID: uuid.New(), LifecycleStatus: event.LifecycleActive})

	user := uuid.New()
	if err := svc.AddParticipant(context.Background(), id, user); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.AddParticipant(context.Background(), id, user); err != nil {
		t.Fatalf("re-adding must be a no-op: %v", err)
	}

	list, err := svc.ListParticipants(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(list) != 1 || list[0].Status != event.ParticipantPendingPayment {
		t.Fatalf("unexpected roster %+v", list)
	}

	if err := svc.AddParticipant(context.Background(), uuid.New(), user); !errors.Is(err, event.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestLifecycleJobCompletesEndedEvents(t *testing.T) {
	store := memory.New()
	past := time.Now().Add(-time.Hour)
	ended := uuid.New()
	store.PutEvent(&event.Event{ID: ended, HostID: uuid.New(), LifecycleStatus: event.LifecycleActive, EndsAt: &past})
	store.PutEvent(&event.Event{ID: uuid.New(), HostID: uuid.New(), LifecycleStatus: event.LifecycleActive})

	job := event.NewLifecycleJob(store, time.Minute)
	ids := job.RunOnce(context.Background())
	if len(ids) != 1 || ids[0] != ended.String() {
		t.Fatalf("unexpected completed ids %v", ids)
	}
	if ids := job.RunOnce(context.Background()); len(ids) != 0 {
		t.Fatalf("second sweep should be empty, got %v", ids)
	}

	e, _ := store.GetEvent(context.Background(), ended)
	if e.LifecycleStatus != event.LifecycleCompleted {
		t.Fatalf("expected Completed, got %s", e.LifecycleStatus)
	}
}

func TestLifecycleJobStartStop(t *testing.T) {
	job := event.NewLifecycleJob(memory.New(), 10*time.Millisecond)
	done := make(chan struct{})
	go func() {
		job.Start(context.Background())
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for !job.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	job.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lifecycle job did not stop")
	}
}

func TestAdminRoutes(t *testing.T) {
	store := memory.New()
	router := event.NewHandler(event.NewService(store)).AdminRoutes()
	id := uuid.New()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"sync", http.MethodPost, "/", `{"id":"` + id.String() + `","host_id":"` + uuid.NewString() + `","title":"Gala","lifecycle_status":"Active"}`, http.StatusOK},
		{"sync invalid lifecycle", http.MethodPost, "/", `{"id":"` + id.String() + `","host_id":"` + uuid.NewString() + `","lifecycle_status":"Paused"}`, http.StatusUnprocessableEntity},
		{"participant", http.MethodPost, "/" + id.String() + "/participants", `{"user_id":"` + uuid.NewString() + `"}`, http.StatusCreated},
		{"participant unknown event", http.MethodPost, "/" + uuid.NewString() + "/participants", `{"user_id":"` + uuid.NewString() + `"}`, http.StatusNotFound},
		{"lifecycle", http.MethodPut, "/" + id.String() + "/lifecycle", `{"status":"Cancelled"}`, http.StatusOK},
		{"lifecycle bad id", http.MethodPut, "/x/lifecycle", `{"status":"Cancelled"}`, http.StatusBadRequest},
		{"lifecycle unknown event", http.MethodPut, "/" + uuid.NewString() + "/lifecycle", `{"status":"Past"}`, http.StatusNotFound},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body)))
		if rr.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.want, rr.Code, rr.Body.String())
		}
	}

	e, err := store.GetEvent(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if e.LifecycleStatus != event.LifecycleCancelled || e.Title != "Gala" {
		t.Fatalf("unexpected event %+v", e)
	}
}
