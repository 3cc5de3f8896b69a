package tasks

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"scopedrest/internal/config"
	"scopedrest/internal/utils/logger"
)

// TaskClient enqueues tasks and shares the redis connection settings with
// the rest of the process.
type TaskClient struct {
	client      *asynq.Client
	logger      *logger.Logger
	redisClient *redis.Client
}

func (c *TaskClient) GetClient() *asynq.Client {
	return c.client
}

// Redis returns a plain redis client on the same server.
func (c *TaskClient) Redis() *redis.Client {
	return c.redisClient
}

func RedisClientOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(cfg config.RedisConfig) *TaskClient {
	return &TaskClient{
		client: asynq.NewClient(RedisClientOpt(cfg)),
		redisClient: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		logger: logger.New("TASKS"),
	}
}

// Ping checks that redis answers.
func (c *TaskClient) Ping(ctx context.Context) error {
	return c.redisClient.Ping(ctx).Err()
}

// EnqueueArchive asks a worker to export pending audit records now.
func (c *TaskClient) EnqueueArchive(ctx context.Context) (*asynq.TaskInfo, error) {
	info, err := c.client.EnqueueContext(ctx, NewArchiveTask())
	if err != nil {
		return nil, c.logger.Error("Failed to enqueue %s", err, TaskTypeAuditArchive)
	}
	return info, nil
}

// Close closes the underlying clients
func (c *TaskClient) Close() error {
	if err := c.client.Close(); err != nil {
		return err
	}
	return c.redisClient.Close()
}
