package event

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/eventpay/escrow-api/internal/pkg/logger"
)

// LifecycleJob closes events whose end time has passed. It never touches
// escrow state; settlement picks the completed events up on its own timer.
type LifecycleJob struct {
	store    Store
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
	stop     chan struct{}
	running  atomic.Bool
}

func NewLifecycleJob(store Store, interval time.Duration) *LifecycleJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &LifecycleJob{
		store:    store,
		interval: interval,
		now:      time.Now,
		log:      logger.Component("event_lifecycle"),
		stop:     make(chan struct{}, 1),
	}
}

// Running reports whether the loop is active.
func (j *LifecycleJob) Running() bool {
	return j.running.Load()
}

// Start runs one sweep immediately and then on every tick. Call in a goroutine.
func (j *LifecycleJob) Start(ctx context.Context) {
	j.running.Store(true)
	defer j.running.Store(false)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.safeRun(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stop:
			return
		case <-ticker.C:
			j.safeRun(ctx)
		}
	}
}

// Stop signals the loop to exit.
func (j *LifecycleJob) Stop() {
	select {
	case j.stop <- struct{}{}:
	default:
	}
}

func (j *LifecycleJob) safeRun(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			j.log.Error().Str("panic", fmt.Sprint(r)).Msg("panic in lifecycle job")
		}
	}()
	j.RunOnce(ctx)
}

// RunOnce completes every ended event and returns their IDs.
func (j *LifecycleJob) RunOnce(ctx context.Context) []string {
	ids, err := j.store.CompleteEnded(ctx, j.now().UTC())
	if err != nil {
		j.log.Error().Err(err).Msg("failed to complete ended events")
		return nil
	}

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	if len(out) > 0 {
		j.log.Info().Strs("event_ids", out).Msg("ended events completed")
	}
	return out
}
