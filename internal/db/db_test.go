package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scopedrest/internal/config"
	"scopedrest/internal/models"
)

func TestOpenMemoryMigrates(t *testing.T) {
	gdb, err := OpenMemory(t.Name())
	require.NoError(t, err)

	for _, m := range models.All() {
		assert.True(t, gdb.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, gdb.Migrator().HasTable("widget_tags"))
}

func TestOpenMemoryIsIsolated(t *testing.T) {
	a, err := OpenMemory(t.Name() + "_a")
	require.NoError(t, err)
	b, err := OpenMemory(t.Name() + "_b")
	require.NoError(t, err)

	require.NoError(t, a.Create(&models.Tag{Name: "only-in-a"}).Error)

	var count int64
	require.NoError(t, b.Model(&models.Tag{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDialectorFor(t *testing.T) {
	_, err := dialectorFor(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)

	d, err := dialectorFor(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = dialectorFor(config.DatabaseConfig{Driver: "postgres", Host: "h", Port: 5432})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}
