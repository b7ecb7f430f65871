package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/sendwave-dev/sendwave/internal/guard"
	"github.com/sendwave-dev/sendwave/internal/models"
	"github.com/sendwave-dev/sendwave/internal/tasks"
)

const activityPageSize = 100

// ActivityRecorder receives user activity events for the admin activity log
type ActivityRecorder interface {
	Record(ctx context.Context, event tasks.ActivityPayload) error
}

// QueueRecorder hands activity events to the worker through Asynq
type QueueRecorder struct {
	client *asynq.Client
}

// NewQueueRecorder creates a recorder enqueueing on client
func NewQueueRecorder(client *asynq.Client) *QueueRecorder {
	return &QueueRecorder{client: client}
}

func (r *QueueRecorder) Record(ctx context.Context, event tasks.ActivityPayload) error {
	task, err := tasks.NewRecordActivityTask(event)
	if err != nil {
		return err
	}
	if _, err := r.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue activity: %w", err)
	}
	return nil
}

// ActivityResponse is one row of the activity log
type ActivityResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Kind      string    `json:"kind"`
	Path      string    `json:"path,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// recordActivity stores an event without failing the request
func (s *Server) recordActivity(c *gin.Context, event tasks.ActivityPayload) {
	if s.activity == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.Path == "" {
		event.Path = c.Request.URL.Path
	}

	if err := s.activity.Record(c.Request.Context(), event); err != nil {
		s.logger.Warn().Err(err).Str("kind", event.Kind).Msg("Failed to record activity")
	}
}

func (s *Server) recordDenied(c *gin.Context, policy guard.Policy) {
	event := tasks.ActivityPayload{
		Kind:   models.ActivityAccessDenied,
		Detail: policy.String(),
	}
	if sessionData, ok := GetSessionData(c); ok {
		event.UserID = sessionData.UserID
		event.Email = sessionData.Email
	}
	s.recordActivity(c, event)
}

// @Summary List activity
// @Description Latest user activity, newest first (admin only)
// @Tags activity
// @Produce json
// @Security BearerAuth
// @Param kind query string false "Filter by activity kind"
// @Success 200 {array} ActivityResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/activity [get]
func (s *Server) listActivity(c *gin.Context) {
	query := s.db.Order("created_at DESC").Limit(activityPageSize)
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var entries []models.Activity
	if err := query.Find(&entries).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list activity")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]ActivityResponse, len(entries))
	for i, entry := range entries {
		response[i] = ActivityResponse{
			ID:        entry.ID,
			UserID:    entry.UserID,
			Email:     entry.Email,
			Kind:      entry.Kind,
			Path:      entry.Path,
			Detail:    entry.Detail,
			CreatedAt: entry.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, response)
}
