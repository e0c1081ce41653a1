package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CleanupJob deletes read notifications past the retention window.
type CleanupJob struct {
	repo          Repository
	retentionDays int
}

// NewCleanupJob creates a cleanup job
func NewCleanupJob(repo Repository, retentionDays int) *CleanupJob {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &CleanupJob{
		repo:          repo,
		retentionDays: retentionDays,
	}
}

// Start runs the cleanup immediately and then on every tick until ctx is done.
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("notification cleanup job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce executes one cleanup and returns the number of deleted rows.
func (j *CleanupJob) RunOnce(ctx context.Context) int64 {
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)

	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to cleanup old notifications")
		return 0
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Int("retention_days", j.retentionDays).Msg("old notifications cleaned up")
	}
	return deleted
}
