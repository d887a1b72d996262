// Package jobs defines the platform's background task types and the asynq
// plumbing that runs them.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeSessionSweep = "session:sweep"
	TaskTypeBroadcast    = "broadcast:send"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// SessionSweepPayload asks the worker to purge sessions idle longer than the
// window, across every tenant.
type SessionSweepPayload struct {
	InactivityWindow time.Duration `json:"inactivity_window"`
}

// BroadcastPayload asks the worker to message every customer of one shop.
type BroadcastPayload struct {
	TenantID string `json:"tenant_id"`
	Text     string `json:"text"`
}

// NewSessionSweepTask builds the periodic stale-session sweep task.
func NewSessionSweepTask(window time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(SessionSweepPayload{InactivityWindow: window})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeSessionSweep, payload, asynq.Queue(QueueLow)), nil
}

// NewBroadcastTask builds a one-off broadcast to a shop's customer base.
func NewBroadcastTask(tenantID, text string) (*asynq.Task, error) {
	payload, err := json.Marshal(BroadcastPayload{TenantID: tenantID, Text: text})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeBroadcast, payload, asynq.Queue(QueueDefault)), nil
}
