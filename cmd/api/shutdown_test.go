package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventpay/escrow-api/internal/domain/dispute"
	"github.com/eventpay/escrow-api/internal/domain/escrow"
	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/storage/memory"
)

// slowStore parks the first settlement pass until release is closed.
type slowStore struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowStore) ListSettlementCandidates(ctx context.Context) ([]*event.Event, error) {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.Store.ListSettlementCandidates(ctx)
}

func TestWaitJobsWaitsForRunningPass(t *testing.T) {
	m := memory.New()
	st := &slowStore{Store: m, entered: make(chan struct{}), release: make(chan struct{})}
	sched := escrow.NewScheduler(st, dispute.NewGate(m), nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	var jobs sync.WaitGroup
	runJob(&jobs, func() { sched.Start(ctx) })

	<-st.entered
	sched.Stop()
	cancel()

	short, shortCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer shortCancel()
	require.False(t, waitJobs(short, &jobs), "shutdown must not return while a pass is running")

	close(st.release)

	long, longCancel := context.WithTimeout(context.Background(), time.Second)
	defer longCancel()
	require.True(t, waitJobs(long, &jobs))
	require.False(t, sched.Running())
}

func TestWaitJobsNoJobs(t *testing.T) {
	var jobs sync.WaitGroup
	require.True(t, waitJobs(context.Background(), &jobs))
}
