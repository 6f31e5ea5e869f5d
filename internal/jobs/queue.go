// Package jobs wraps the background job broker. Queueing is an optional
// capability: with no broker address configured every operation degrades to
// a safe no-op.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Queue enqueues one-off and repeatable jobs onto named queues.
type Queue struct {
	client    *asynq.Client
	scheduler *asynq.Scheduler
	enabled   bool
}

// NewQueue connects to the redis-backed broker. An empty address yields a
// disabled queue whose operations succeed without doing anything.
func NewQueue(redisAddr string) *Queue {
	if redisAddr == "" {
		return &Queue{}
	}
	opt := asynq.RedisClientOpt{Addr: redisAddr}
	return &Queue{
		client:    asynq.NewClient(opt),
		scheduler: asynq.NewScheduler(opt, nil),
		enabled:   true,
	}
}

// Enabled reports whether a broker connection is configured.
func (q *Queue) Enabled() bool {
	return q.enabled
}

// Enqueue submits one job onto the named queue. Returns nil info when the
// broker is not configured.
func (q *Queue) Enqueue(ctx context.Context, queue, jobName string, payload any, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if !q.enabled {
		return nil, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode job payload: %w", err)
	}
	opts = append(opts, asynq.Queue(queue))
	return q.client.EnqueueContext(ctx, asynq.NewTask(jobName, body), opts...)
}

// EnqueueRepeatable registers a repeating job. The schedule accepts cron
// syntax or asynq's "@every <duration>" form. Returns an empty entry id when
// the broker is not configured.
func (q *Queue) EnqueueRepeatable(queue, jobName string, payload any, schedule string, opts ...asynq.Option) (string, error) {
	if !q.enabled {
		return "", nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode job payload: %w", err)
	}
	opts = append(opts, asynq.Queue(queue))
	return q.scheduler.Register(schedule, asynq.NewTask(jobName, body), opts...)
}

// StartScheduler runs the repeatable-job scheduler; no-op when disabled.
func (q *Queue) StartScheduler() error {
	if !q.enabled {
		return nil
	}
	return q.scheduler.Start()
}

// Close releases the broker connection.
func (q *Queue) Close() error {
	if !q.enabled {
		return nil
	}
	q.scheduler.Shutdown()
	return q.client.Close()
}
