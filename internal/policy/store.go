package policy

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"scopedrest/internal/models"
)

// RuleStore loads the scope rules that apply to a key.
type RuleStore interface {
	RulesFor(ctx context.Context, key *models.APIKey, resource, action string) ([]models.ScopeRule, error)
}

type GormRuleStore struct {
	db *gorm.DB
}

func NewGormRuleStore(db *gorm.DB) *GormRuleStore {
	return &GormRuleStore{db: db}
}

// RulesFor returns live rules bound to the key or to any of its roles, for
// the resource or the wildcard, for the action or the wildcard.
func (s *GormRuleStore) RulesFor(ctx context.Context, key *models.APIKey, resource, action string) ([]models.ScopeRule, error) {
	q := s.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Where("resource IN ?", []string{resource, models.Wildcard}).
		Where("action IN ?", []string{action, models.Wildcard})

	if roles := key.RoleList(); len(roles) > 0 {
		q = q.Where(s.db.Where("api_key_id = ?", key.ID).Or("role IN ?", roles))
	} else {
		q = q.Where("api_key_id = ?", key.ID)
	}

	var rules []models.ScopeRule
	if err := q.Order("created_at").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to load scope rules for %s: %w", resource, err)
	}
	return rules, nil
}
