package tasks

import (
	"time"

	"scopedrest/internal/audit"
)

// Task Types
const (
	TaskTypeAuditRecord  = audit.TaskTypeRecord
	TaskTypeAuditArchive = "audit:archive"
)

// Task Queues
const (
	QueueCritical = "critical" // audit records
	QueueDefault  = "default"  // For regular tasks
	QueueLow      = "low"      // archive export
)

// Task Timeouts
const (
	TimeoutLong = 30 * time.Minute
)

// Task Retry Settings
const (
	RetryDefault = 3
	RetryMin     = 1
)
