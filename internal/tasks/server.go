package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"scopedrest/internal/config"
	"scopedrest/internal/utils/logger"
)

var queues = map[string]int{
	QueueCritical: 6, // High priority
	QueueDefault:  3, // Medium priority
	QueueLow:      1, // Low priority
}

// Server handles task processing
type Server struct {
	server      *asynq.Server
	handler     *TaskHandler
	logger      *logger.Logger
	concurrency int
}

// NewServer creates a new task processing server
func NewServer(redisCfg config.RedisConfig, concurrency int, handler *TaskHandler, log *logger.Logger) *Server {
	if concurrency < 1 {
		concurrency = 10
	}
	server := asynq.NewServer(
		RedisClientOpt(redisCfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues:      queues,
			// Enable strict priority, meaning higher priority queues are processed first
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("task %s failed", err, task.Type())
			}),
		},
	)

	return &Server{
		server:      server,
		handler:     handler,
		logger:      log,
		concurrency: concurrency,
	}
}

// Start starts the task processing server
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting task processing server concurrency %d queues %v", s.concurrency, queues)

	if err := s.server.Start(s.handler.Mux()); err != nil {
		return fmt.Errorf("failed to start task server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the task processing server
func (s *Server) Shutdown() {
	s.logger.Info("shutting down task processing server")
	s.server.Shutdown()
}
