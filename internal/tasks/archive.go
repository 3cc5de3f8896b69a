package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"scopedrest/internal/models"
	"scopedrest/internal/utils/logger"
)

// Uploader stores one archive object.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Archiver copies audit records past the last watermark to object storage
// as JSON lines. Audit rows are only read.
type Archiver struct {
	db       *gorm.DB
	uploader Uploader
	prefix   string
	batch    int
	// maxBatches bounds one run.
	maxBatches int
	logger     *logger.Logger
}

func NewArchiver(db *gorm.DB, uploader Uploader, prefix string, batch int) *Archiver {
	if batch < 1 {
		batch = 5000
	}
	return &Archiver{
		db:         db,
		uploader:   uploader,
		prefix:     prefix,
		batch:      batch,
		maxBatches: 20,
		logger:     logger.New("ARCHIVE"),
	}
}

func NewArchiveTask() *asynq.Task {
	return asynq.NewTask(TaskTypeAuditArchive, nil,
		asynq.Queue(QueueLow),
		asynq.MaxRetry(RetryMin),
		asynq.Timeout(TimeoutLong),
	)
}

func (a *Archiver) ProcessTask(ctx context.Context, t *asynq.Task) error {
	n, err := a.Run(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("archived %d audit records", n)
	return nil
}

// Run exports batches until the backlog is empty, ctx is done or the batch
// limit is hit. It returns the number of records exported.
func (a *Archiver) Run(ctx context.Context) (int, error) {
	total := 0
	for i := 0; i < a.maxBatches; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := a.runBatch(ctx)
		total += n
		if err != nil || n < a.batch {
			return total, err
		}
	}
	return total, nil
}

func (a *Archiver) watermark(ctx context.Context) (*models.AuditArchive, error) {
	var last models.AuditArchive
	err := a.db.WithContext(ctx).Order("to_time DESC").Order("last_id DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive watermark: %w", err)
	}
	return &last, nil
}

func (a *Archiver) runBatch(ctx context.Context) (int, error) {
	last, err := a.watermark(ctx)
	if err != nil {
		return 0, err
	}

	q := a.db.WithContext(ctx).Model(&models.AuditLog{})
	if last != nil {
		q = q.Where("created_at > ? OR (created_at = ? AND id > ?)", last.ToTime, last.ToTime, last.LastID)
	}
	var rows []models.AuditLog
	if err := q.Order("created_at").Order("id").Limit(a.batch).Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to read audit records: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range rows {
		if err := enc.Encode(&rows[i]); err != nil {
			return 0, fmt.Errorf("failed to encode audit record %s: %w", rows[i].ID, err)
		}
	}

	first, end := rows[0], rows[len(rows)-1]
	key := ObjectKey(a.prefix, first.CreatedAt, end.ID)
	if _, err := a.uploader.Upload(ctx, key, buf.Bytes(), "application/x-ndjson"); err != nil {
		return 0, err
	}

	mark := &models.AuditArchive{
		ObjectKey: key,
		FromTime:  first.CreatedAt,
		ToTime:    end.CreatedAt,
		LastID:    end.ID,
		Count:     len(rows),
	}
	if err := a.db.WithContext(ctx).Create(mark).Error; err != nil {
		return 0, a.logger.Error("Uploaded %s but failed to record it", err, key)
	}
	return len(rows), nil
}

// ObjectKey is <prefix>/<yyyy>/<mm>/<dd>/<from>-<last id>.jsonl.
func ObjectKey(prefix string, from time.Time, lastID string) string {
	from = from.UTC()
	name := fmt.Sprintf("%s/%s-%s.jsonl", from.Format("2006/01/02"), from.Format("20060102T150405Z"), lastID)
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
