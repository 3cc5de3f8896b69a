package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"scopedrest/internal/models"
)

// ErrUnknownToken covers every token that must not authenticate: unknown,
// inactive, deleted or expired.
var ErrUnknownToken = errors.New("unknown api token")

// IdentityService resolves bearer tokens to API keys. It only reads.
type IdentityService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewIdentityService(db *gorm.DB) *IdentityService {
	return &IdentityService{
		db:  db,
		now: time.Now,
	}
}

// FindByToken looks token up by digest. The token is never stored or logged,
// and the key row is never written.
func (s *IdentityService) FindByToken(ctx context.Context, token string) (*models.APIKey, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnknownToken
	}

	var key models.APIKey
	err := s.db.WithContext(ctx).
		Where("token_digest = ? AND is_deleted = ?", models.DigestToken(token), false).
		First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}

	if !key.Usable(s.now()) {
		return nil, ErrUnknownToken
	}
	return &key, nil
}
