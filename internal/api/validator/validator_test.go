package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListParamsValidation(t *testing.T) {
	v := NewValidator()

	ok := ListParams{ResourceParams: ResourceParams{Resource: "widgets", Nested: "parts"}, Order: "desc"}
	assert.NoError(t, v.Validate(&ok))

	bad := ListParams{ResourceParams: ResourceParams{Resource: "Widgets"}, Order: "sideways", Page: -1}
	err := v.Validate(&bad)
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))

	fields := map[string]string{}
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	assert.Equal(t, map[string]string{
		"resource": "resource_name",
		"order":    "oneof",
		"page":     "gte",
	}, fields)
}

func TestSplitNames(t *testing.T) {
	p := ListParams{Select: "id, name,,status ", Include: ""}
	assert.Equal(t, []string{"id", "name", "status"}, p.SelectNames())
	assert.Nil(t, p.IncludeNames())
}

func TestListParamsPageBound(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&ListParams{ResourceParams: ResourceParams{Resource: "widgets"}, Page: 1000000}))

	err := v.Validate(&ListParams{ResourceParams: ResourceParams{Resource: "widgets"}, Page: 1 << 62})
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve, 1)
	assert.Equal(t, "page", ve[0].Field())
	assert.Equal(t, "lte", ve[0].Tag())
}
