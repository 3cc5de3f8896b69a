package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"scopedrest/internal/config"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(All()...))
	return db
}

func TestDigestTokenIsStable(t *testing.T) {
	a := DigestToken("secret-token")
	assert.Len(t, a, 64)
	assert.Equal(t, a, DigestToken("secret-token"))
	assert.NotEqual(t, a, DigestToken("secret-token2"))
}

func TestNewAPIKey(t *testing.T) {
	key := NewAPIKey("ci", "abcdefghijkl", "reader", "auditor")
	assert.Equal(t, key.TokenDigest[:8], key.TokenPrefix)
	assert.NotContains(t, "abcdefghijkl", key.TokenPrefix)
	assert.Equal(t, []string{"reader", "auditor"}, key.RoleList())
	assert.True(t, key.Active)
	assert.NotContains(t, key.TokenDigest, "abcdefghijkl")
}

func TestNewAPIKeyShortTokenNotRetained(t *testing.T) {
	key := NewAPIKey("short", "abc")
	assert.NotEqual(t, "abc", key.TokenPrefix)
	assert.Len(t, key.TokenPrefix, 8)
}

func TestAPIKeyUsable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&APIKey{Active: true}).Usable(now))
	assert.False(t, (&APIKey{Active: false}).Usable(now))
	assert.False(t, (&APIKey{Active: true, ExpiresAt: &past}).Usable(now))
	assert.True(t, (&APIKey{Active: true, ExpiresAt: &future}).Usable(now))

	deleted := &APIKey{Active: true}
	deleted.IsDeleted = true
	assert.False(t, deleted.Usable(now))
}

func TestScopeRuleLists(t *testing.T) {
	r := ScopeRule{Columns: " id, name ,", Associations: "*"}
	assert.Equal(t, []string{"id", "name"}, r.ColumnList())
	assert.Nil(t, r.AssociationList())
	assert.False(t, r.HasFilter())

	r.Filter = datatypes.JSON(`{"status_eq":"open"}`)
	assert.True(t, r.HasFilter())
	r.Filter = datatypes.JSON(`null`)
	assert.False(t, r.HasFilter())
}

func TestSeedAPIKeyFromEnv(t *testing.T) {
	db := openTestDB(t)
	cfg := &config.Config{Seed: config.SeedConfig{APIToken: "bootstrap-token", Name: "boot", Roles: "admin"}}

	require.NoError(t, SeedAPIKeyFromEnv(db, cfg))
	require.NoError(t, SeedAPIKeyFromEnv(db, cfg))

	var keys []APIKey
	require.NoError(t, db.Find(&keys).Error)
	require.Len(t, keys, 1)
	assert.Equal(t, DigestToken("bootstrap-token"), keys[0].TokenDigest)
	assert.Equal(t, []string{"admin"}, keys[0].RoleList())
	assert.NotEmpty(t, keys[0].ID)
}

func TestSeedSkipsWithoutToken(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, SeedAPIKeyFromEnv(db, &config.Config{}))

	var count int64
	require.NoError(t, db.Model(&APIKey{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWidgetDisplayName(t *testing.T) {
	w := &Widget{Name: "Sprocket", Status: "open"}
	assert.Equal(t, "Sprocket (open)", w.DisplayName())
}

func TestSeedDemoCatalog(t *testing.T) {
	db := openTestDB(t)
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c, err := SeedDemoCatalog(db, epoch)
	require.NoError(t, err)
	assert.Len(t, c.Widgets, 9)
	assert.Len(t, c.Categories, 2)

	var bolt Widget
	require.NoError(t, db.Preload("Tags").Preload("Parts").First(&bolt, "id = ?", c.Widgets["Bolt"].ID).Error)
	assert.Len(t, bolt.Tags, 2)
	assert.Len(t, bolt.Parts, 2)
	assert.Equal(t, c.Categories["hardware"].ID, *bolt.CategoryID)
	assert.True(t, c.Widgets["Nut"].CreatedAt.After(bolt.CreatedAt))

	var ghost Widget
	require.NoError(t, db.First(&ghost, "id = ?", c.Widgets["Ghost"].ID).Error)
	assert.True(t, ghost.IsDeleted)

	var tagCount int64
	require.NoError(t, db.Model(&Tag{}).Count(&tagCount).Error)
	assert.Equal(t, int64(3), tagCount)
}

func TestSeedDemoFromEnv(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, SeedDemoFromEnv(db, &config.Config{}))
	var n int64
	require.NoError(t, db.Model(&Widget{}).Count(&n).Error)
	assert.Zero(t, n)

	cfg := &config.Config{Seed: config.SeedConfig{DemoData: true}}
	require.NoError(t, SeedDemoFromEnv(db, cfg))
	require.NoError(t, SeedDemoFromEnv(db, cfg))
	require.NoError(t, db.Model(&Widget{}).Count(&n).Error)
	assert.Equal(t, int64(len(demoWidgets)), n)
}
