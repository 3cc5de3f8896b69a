package tasks

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"scopedrest/internal/config"
	"scopedrest/internal/utils/logger"
)

// Scheduler handles periodic task scheduling
type Scheduler struct {
	scheduler   *asynq.Scheduler
	logger      *logger.Logger
	archiveSpec string
}

// NewScheduler creates a new task scheduler. An empty archiveSpec schedules
// nothing.
func NewScheduler(redisCfg config.RedisConfig, archiveSpec string, log *logger.Logger) *Scheduler {
	scheduler := asynq.NewScheduler(
		RedisClientOpt(redisCfg),
		&asynq.SchedulerOpts{Location: time.UTC},
	)

	return &Scheduler{
		scheduler:   scheduler,
		logger:      log,
		archiveSpec: archiveSpec,
	}
}

// Start registers the periodic tasks and starts the scheduler in the
// background. Stop shuts it down.
func (s *Scheduler) Start() error {
	if err := s.registerTasks(); err != nil {
		return fmt.Errorf("failed to register tasks: %w", err)
	}

	s.logger.Info("starting task scheduler")
	return s.scheduler.Start()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}

func (s *Scheduler) registerTasks() error {
	if s.archiveSpec == "" {
		s.logger.Info("no periodic tasks to register")
		return nil
	}
	entryID, err := s.scheduler.Register(s.archiveSpec, NewArchiveTask())
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", TaskTypeAuditArchive, err)
	}
	next, err := NextRun(s.archiveSpec, time.Now().UTC())
	if err != nil {
		return err
	}
	s.logger.Info("registered %s (%s) entry %s, next run %s", TaskTypeAuditArchive, s.archiveSpec, entryID, next.Format(time.RFC3339))
	return nil
}

// NextRun returns the first activation of spec after now.
func NextRun(spec string, now time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return schedule.Next(now), nil
}
