package workers

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sendwave-dev/sendwave/internal/models"
	"github.com/sendwave-dev/sendwave/internal/tasks"
)

// HandleRecordActivity persists one activity event
func HandleRecordActivity(ctx context.Context, t *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	payload, err := tasks.ParseActivityPayload(t)
	if err != nil {
		// Malformed payloads will never succeed
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	activity := models.Activity{
		UserID: payload.UserID,
		Email:  payload.Email,
		Kind:   payload.Kind,
		Path:   payload.Path,
		Detail: payload.Detail,
	}
	if !payload.OccurredAt.IsZero() {
		activity.CreatedAt = payload.OccurredAt
	}

	if err := db.WithContext(ctx).Create(&activity).Error; err != nil {
		logger.Error().Err(err).Str("kind", payload.Kind).Msg("Failed to record activity")
		return fmt.Errorf("failed to record activity: %w", err)
	}

	logger.Debug().
		Str("activity_id", activity.ID).
		Str("kind", activity.Kind).
		Str("user_id", activity.UserID).
		Msg("Activity recorded")
	return nil
}

// HandlePurgeActivity deletes activity recorded before the payload cutoff
func HandlePurgeActivity(ctx context.Context, t *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	payload, err := tasks.ParsePurgePayload(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	result := db.WithContext(ctx).Where("created_at < ?", payload.Before).Delete(&models.Activity{})
	if result.Error != nil {
		logger.Error().Err(result.Error).Msg("Failed to purge activity")
		return fmt.Errorf("failed to purge activity: %w", result.Error)
	}

	logger.Info().
		Int64("deleted", result.RowsAffected).
		Time("before", payload.Before).
		Msg("Purged old activity")
	return nil
}
