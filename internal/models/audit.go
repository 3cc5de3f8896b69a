package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is one request/response pair. Rows are append-only.
type AuditLog struct {
	ID          string         `gorm:"type:uuid;primary_key" json:"id"`
	APIKeyID    *string        `gorm:"type:uuid;index" json:"apiKeyId"`
	RequestUUID string         `gorm:"uniqueIndex;not null" json:"requestUuid"`
	Method      string         `gorm:"size:16" json:"method"`
	URL         string         `gorm:"not null" json:"url"`
	Headers     datatypes.JSON `json:"headers"`
	IP          string         `gorm:"size:64" json:"ip"`
	Status      int            `json:"status"`
	Body        string         `json:"body"`
	Truncated   bool           `json:"truncated"`
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`
}

// AuditArchive records an exported batch of audit rows. ToTime and LastID
// identify the last row exported, the watermark for the next batch.
type AuditArchive struct {
	Base
	ObjectKey string    `gorm:"not null" json:"objectKey"`
	FromTime  time.Time `json:"fromTime"`
	ToTime    time.Time `gorm:"index" json:"toTime"`
	LastID    string    `gorm:"type:uuid" json:"lastId"`
	Count     int       `json:"count"`
}

// BeforeCreate assigns an id the same way Base does.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
