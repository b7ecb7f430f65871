package workers

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sendwave-dev/sendwave/internal/tasks"
)

// Enqueuer is the subset of asynq.Client the scheduler needs
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// StartRetentionScheduler enqueues an activity purge every time the cron
// schedule fires, until ctx is cancelled
func StartRetentionScheduler(ctx context.Context, client Enqueuer, schedule string, retention time.Duration, logger zerolog.Logger) error {
	sched, err := parseSchedule(schedule)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	next := sched.Next(time.Now())
	logger.Info().Str("schedule", schedule).Time("next_purge_at", next).Msg("Retention scheduler started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			next = checkAndEnqueuePurge(client, sched, next, now, retention, logger)
		}
	}
}

// checkAndEnqueuePurge enqueues a purge when next is due and returns the
// following fire time
func checkAndEnqueuePurge(client Enqueuer, sched cron.Schedule, next, now time.Time, retention time.Duration, logger zerolog.Logger) time.Time {
	if now.Before(next) {
		return next
	}

	cutoff := now.Add(-retention)
	task, err := tasks.NewPurgeActivityTask(cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create purge task")
		return sched.Next(now)
	}

	// Unique keeps overlapping schedulers from piling up purges
	if _, err := client.Enqueue(task, asynq.Unique(time.Hour)); err != nil {
		logger.Warn().Err(err).Msg("Failed to enqueue purge task")
	} else {
		logger.Info().Time("before", cutoff).Msg("Activity purge enqueued")
	}

	return sched.Next(now)
}

// parseSchedule parses a standard 5-field cron expression
func parseSchedule(cronExpr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(cronExpr)
}
