package tasks

import (
	"github.com/hibiken/asynq"

	"scopedrest/internal/audit"
	"scopedrest/internal/utils/logger"
)

// TaskHandler holds the handlers the worker serves.
type TaskHandler struct {
	audit    *audit.Handler
	archiver *Archiver
	logger   *logger.Logger
}

// NewTaskHandler creates a new TaskHandler. archiver may be nil when no
// bucket is configured.
func NewTaskHandler(auditHandler *audit.Handler, archiver *Archiver) *TaskHandler {
	return &TaskHandler{
		audit:    auditHandler,
		archiver: archiver,
		logger:   logger.New("task_handler"),
	}
}

// Mux routes task types to handlers.
func (h *TaskHandler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeAuditRecord, h.audit)
	if h.archiver != nil {
		mux.Handle(TaskTypeAuditArchive, h.archiver)
	} else {
		h.logger.Info("archive handler disabled, no bucket configured")
	}
	return mux
}
