package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/sony/gobreaker/v2"

	console "scopedrest/internal/utils/logger"
)

// TaskTypeRecord is the asynq task carrying one Entry.
const TaskTypeRecord = "audit:record"

var log = console.New("AUDIT")

// Dispatcher hands entries to the background path.
type Dispatcher interface {
	Dispatch(ctx context.Context, e Entry) error
}

type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type DispatcherConfig struct {
	Queue    string
	MaxRetry int
	// Failures is the number of consecutive enqueue failures that opens the
	// breaker; Timeout is how long it stays open.
	Failures uint32
	Timeout  time.Duration
}

// AsynqDispatcher enqueues audit:record tasks behind a circuit breaker, so
// a down redis costs one fast failure per request instead of a dial.
type AsynqDispatcher struct {
	client  Enqueuer
	cfg     DispatcherConfig
	breaker *gobreaker.CircuitBreaker[*asynq.TaskInfo]
}

func NewAsynqDispatcher(client Enqueuer, cfg DispatcherConfig) *AsynqDispatcher {
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Queue == "" {
		cfg.Queue = "default"
	}
	return &AsynqDispatcher{
		client: client,
		cfg:    cfg,
		breaker: gobreaker.NewCircuitBreaker[*asynq.TaskInfo](gobreaker.Settings{
			Name:    "audit-dispatch",
			Timeout: cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.Failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("%s breaker %s -> %s", name, from, to)
			},
		}),
	}
}

// NewTask builds the task for e. The request uuid is the task id.
func NewTask(e Entry, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	opts = append([]asynq.Option{asynq.TaskID(e.RequestUUID)}, opts...)
	return asynq.NewTask(TaskTypeRecord, payload, opts...), nil
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, e Entry) error {
	task, err := NewTask(e, asynq.Queue(d.cfg.Queue), asynq.MaxRetry(d.cfg.MaxRetry))
	if err != nil {
		return fmt.Errorf("failed to encode audit task: %w", err)
	}
	_, err = d.breaker.Execute(func() (*asynq.TaskInfo, error) {
		info, err := d.client.EnqueueContext(ctx, task)
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil, nil
		}
		return info, err
	})
	return err
}

// State reports the breaker state, for health output.
func (d *AsynqDispatcher) State() gobreaker.State {
	return d.breaker.State()
}
