package registry

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"

	"scopedrest/internal/models"
)

func catalog(t *testing.T) *Registry {
	t.Helper()
	r, err := Catalog(schema.NamingStrategy{})
	require.NoError(t, err)
	return r
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("widgets"))
	assert.True(t, ValidName("widget_tags2"))
	for _, bad := range []string{"", "Widgets", "1widgets", "widgets;drop", "wid-gets", "../etc", "a b"} {
		assert.False(t, ValidName(bad), bad)
	}
}

func TestResolve(t *testing.T) {
	r := catalog(t)

	res, err := r.Resolve("widgets")
	require.NoError(t, err)
	assert.Equal(t, "widgets", res.Table())

	_, err = r.Resolve("api_keys")
	assert.ErrorIs(t, err, ErrUnknownResource)

	_, err = r.Resolve("Widgets;--")
	assert.ErrorIs(t, err, ErrInvalidName)

	assert.Equal(t, []string{"categories", "parts", "tags", "widgets"}, r.Names())
}

func TestColumnsHideSecretsAndSoftDelete(t *testing.T) {
	res, err := catalog(t).Resolve("widgets")
	require.NoError(t, err)

	cols := res.Columns()
	assert.Contains(t, cols, "id")
	assert.Contains(t, cols, "name")
	assert.Contains(t, cols, "category_id")
	assert.NotContains(t, cols, "deleted_at")
	assert.NotContains(t, cols, SoftDeleteColumn)
	assert.True(t, res.SoftDelete())
	assert.Equal(t, "id", res.PrimaryKey().DBName)
}

func TestWithHidden(t *testing.T) {
	r := New(nil)
	require.NoError(t, Register[models.Widget](r, "widgets", WithHidden("cost_price", "tags")))
	res, err := r.Resolve("widgets")
	require.NoError(t, err)
	assert.False(t, res.HasColumn("cost_price"))
	_, ok := res.Association("tags")
	assert.False(t, ok)
}

func TestAssociationsRequireRegisteredTarget(t *testing.T) {
	r := New(nil)
	require.NoError(t, Register[models.Widget](r, "widgets"))
	require.NoError(t, Register[models.Part](r, "parts"))

	res, err := r.Resolve("widgets")
	require.NoError(t, err)
	assert.Equal(t, []string{"parts"}, res.Associations())

	a, err := res.Nested("parts")
	require.NoError(t, err)
	assert.Equal(t, "parts", a.Target.Name)
	assert.Equal(t, schema.HasMany, a.Relationship.Type)

	_, err = res.Nested("category")
	assert.ErrorIs(t, err, ErrUnknownAssociation)
	_, err = res.Nested("Parts")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCatalogAssociations(t *testing.T) {
	res, err := catalog(t).Resolve("widgets")
	require.NoError(t, err)
	assert.Equal(t, []string{"category", "parts", "tags"}, res.Associations())

	tags, ok := res.Association("tags")
	require.True(t, ok)
	assert.Equal(t, schema.Many2Many, tags.Relationship.Type)
	require.NotNil(t, tags.Relationship.JoinTable)
	assert.Equal(t, "widget_tags", tags.Relationship.JoinTable.Table)

	category, ok := res.Association("category")
	require.True(t, ok)
	assert.Equal(t, schema.BelongsTo, category.Relationship.Type)
}

func TestMethods(t *testing.T) {
	res, err := catalog(t).Resolve("widgets")
	require.NoError(t, err)
	assert.Equal(t, []string{"display_name"}, res.Methods())

	fn, ok := res.Method("display_name")
	require.True(t, ok)
	assert.Equal(t, "Bolt (open)", fn(&models.Widget{Name: "Bolt", Status: "open"}))
	assert.Nil(t, fn(&models.Part{}))
}

func TestParseID(t *testing.T) {
	res, err := catalog(t).Resolve("widgets")
	require.NoError(t, err)

	id := uuid.NewString()
	v, err := res.ParseID(id)
	require.NoError(t, err)
	assert.Equal(t, id, v)

	_, err = res.ParseID("42 OR 1=1")
	assert.True(t, errors.Is(err, ErrInvalidID))
	_, err = res.ParseID("")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestRegisterTwiceFails(t *testing.T) {
	r := New(nil)
	require.NoError(t, Register[models.Tag](r, "tags"))
	assert.Error(t, Register[models.Tag](r, "tags"))
	assert.ErrorIs(t, Register[models.Tag](r, "Tags"), ErrInvalidName)
}

func TestNewSlice(t *testing.T) {
	res, err := catalog(t).Resolve("tags")
	require.NoError(t, err)
	_, ok := res.NewSlice().(*[]models.Tag)
	assert.True(t, ok)
	_, ok = res.Model().(*models.Tag)
	assert.True(t, ok)
	assert.Equal(t, 50, res.PerPage())
	assert.Equal(t, "name", res.DefaultSort())
}
