package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Manager is the enqueue side of the background queue, shared by the
// admin handlers and the scheduler.
type Manager interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type queueManager struct {
	client *asynq.Client
	log    *slog.Logger
}

// NewManager builds a Manager backed by an asynq client on the given
// Redis connection.
func NewManager(redisOpt asynq.RedisConnOpt, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &queueManager{
		client: asynq.NewClient(redisOpt),
		log:    log,
	}
}

func (m *queueManager) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}

	m.log.Debug("task enqueued",
		slog.String("type", task.Type()),
		slog.String("queue", info.Queue),
		slog.String("task_id", info.ID))

	return info, nil
}

func (m *queueManager) Close() error {
	return m.client.Close()
}
