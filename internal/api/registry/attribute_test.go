package registry

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestResolveAttribute(t *testing.T) {
	res, err := catalog(t).Resolve("widgets")
	require.NoError(t, err)

	attr, ok := res.ResolveAttribute("status")
	require.True(t, ok)
	assert.Nil(t, attr.Association)
	assert.Equal(t, "status", attr.Column())

	attr, ok = res.ResolveAttribute("category_name")
	require.True(t, ok)
	require.NotNil(t, attr.Association)
	assert.Equal(t, "category", attr.Association.Name)
	assert.Equal(t, "name", attr.Column())

	attr, ok = res.ResolveAttribute("category_id")
	require.True(t, ok)
	assert.Nil(t, attr.Association, "own column wins")

	attr, ok = res.ResolveAttribute("parts_sku")
	require.True(t, ok)
	assert.Equal(t, "parts", attr.Association.Name)

	_, ok = res.ResolveAttribute("tags_secret")
	assert.False(t, ok)
	_, ok = res.ResolveAttribute("is_deleted")
	assert.False(t, ok)
	_, ok = res.ResolveAttribute("deleted_at")
	assert.False(t, ok)
}

func TestCoerceValue(t *testing.T) {
	res, err := catalog(t).Resolve("widgets")
	require.NoError(t, err)
	field := func(name string) *schema.Field {
		f, ok := res.Field(name)
		require.True(t, ok, name)
		return f
	}

	v, err := CoerceValue(field("price"), "9.5")
	require.NoError(t, err)
	assert.Equal(t, 9.5, v)

	v, err = CoerceValue(field("quantity"), " 3 ")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	_, err = CoerceValue(field("quantity"), "three")
	assert.ErrorIs(t, err, ErrBadValue)

	v, err = CoerceValue(field("featured"), "true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = CoerceValue(field("created_at"), "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), v)

	id := uuid.NewString()
	v, err = CoerceValue(field("id"), id)
	require.NoError(t, err)
	assert.Equal(t, id, v)
	_, err = CoerceValue(field("id"), "nope")
	assert.ErrorIs(t, err, ErrBadValue)

	v, err = CoerceValue(field("name"), "bolt")
	require.NoError(t, err)
	assert.Equal(t, "bolt", v)

	assert.True(t, IsText(field("name")))
	assert.False(t, IsText(field("price")))
}
