package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeRecordActivity = "activity:record"
	TypePurgeActivity  = "activity:purge"
)

// ActivityPayload describes one user activity event
type ActivityPayload struct {
	UserID     string    `json:"user_id,omitempty"`
	Email      string    `json:"email,omitempty"`
	Kind       string    `json:"kind"`
	Path       string    `json:"path,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PurgePayload asks the worker to delete activity older than Before
type PurgePayload struct {
	Before time.Time `json:"before"`
}

// NewRecordActivityTask creates a task persisting an activity event
func NewRecordActivityTask(p ActivityPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeRecordActivity, payload, asynq.Queue("low"), asynq.MaxRetry(3)), nil
}

// NewPurgeActivityTask creates a task deleting activity recorded before cutoff
func NewPurgeActivityTask(before time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(PurgePayload{Before: before})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypePurgeActivity, payload), nil
}

// ParseActivityPayload parses an activity payload from an Asynq task
func ParseActivityPayload(task *asynq.Task) (ActivityPayload, error) {
	var payload ActivityPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}

// ParsePurgePayload parses a purge payload from an Asynq task
func ParsePurgePayload(task *asynq.Task) (PurgePayload, error) {
	var payload PurgePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
