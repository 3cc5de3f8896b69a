package models

import (
	"errors"
	"fmt"
	"time"

	"scopedrest/internal/config"
	console "scopedrest/internal/utils/logger"

	"gorm.io/gorm"
)

var log = console.New("SEEDER")

// SeedAPIKeyFromEnv creates the bootstrap key described by cfg.Seed when a
// token is configured and no key with the same digest exists yet.
func SeedAPIKeyFromEnv(db *gorm.DB, cfg *config.Config) error {
	if cfg.Seed.APIToken == "" {
		log.Info("SEED_API_TOKEN not set, skipping API key seed")
		return nil
	}

	key := NewAPIKey(cfg.Seed.Name, cfg.Seed.APIToken, SplitList(cfg.Seed.Roles)...)
	created, err := EnsureAPIKey(db, key)
	if err != nil {
		return err
	}
	if created {
		log.Success("Seeded API key %s (%s...) with roles %s", key.Name, key.TokenPrefix, key.Roles)
	} else {
		log.Info("API key %s... already present", key.TokenPrefix)
	}
	return nil
}

// EnsureAPIKey inserts key unless its digest is already stored. key.ID is
// set to the stored row's id either way.
func EnsureAPIKey(db *gorm.DB, key *APIKey) (bool, error) {
	var existing APIKey
	err := db.Where("token_digest = ?", key.TokenDigest).First(&existing).Error
	switch {
	case err == nil:
		key.ID = existing.ID
		return false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, fmt.Errorf("failed to look up api key: %w", err)
	}

	if err := db.Create(key).Error; err != nil {
		return false, fmt.Errorf("failed to create api key %s: %w", key.Name, err)
	}
	return true, nil
}

// SeedDemoFromEnv loads the demo catalog when SEED_DEMO_DATA is set and the
// categories table is empty.
func SeedDemoFromEnv(db *gorm.DB, cfg *config.Config) error {
	if !cfg.Seed.DemoData {
		return nil
	}
	var n int64
	if err := db.Model(&Category{}).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if n > 0 {
		log.Info("Catalog already has data, skipping demo seed")
		return nil
	}
	c, err := SeedDemoCatalog(db, time.Now().UTC().Truncate(time.Second))
	if err != nil {
		return err
	}
	log.Success("Seeded demo catalog with %d widgets", len(c.Widgets))
	return nil
}
