package audit

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists entries synchronously.
type Store interface {
	Write(ctx context.Context, e Entry) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Write inserts e. A second write for the same request uuid is a no-op, so a
// queued entry that was also written directly is stored once.
func (s *GormStore) Write(ctx context.Context, e Entry) error {
	row, err := e.Model()
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "request_uuid"}}, DoNothing: true}).
		Create(row).Error
}
