package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key  string
		attr string
		pred Predicate
		ok   bool
	}{
		{"name_cont", "name", Cont, true},
		{"name_not_cont", "name", NotCont, true},
		{"name_i_cont", "name", ICont, true},
		{"status_eq", "status", Eq, true},
		{"status_not_eq", "status", NotEq, true},
		{"price_lteq", "price", Lteq, true},
		{"created_at_gt", "created_at", Gt, true},
		{"notes_not_null", "notes", NotNull, true},
		{"category_name_start", "category_name", Start, true},
		{"id_not_in", "id", NotIn, true},
		{"featured_true", "featured", True, true},
		{"weekend", "", "", false},
		{"_eq", "", "", false},
		{"name", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			attr, p, ok := SplitKey(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.attr, attr)
			assert.Equal(t, tt.pred, p)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	res := Parse("   ")
	assert.Equal(t, FormEmpty, res.Form)
	assert.True(t, res.Tree.Empty())
	assert.NoError(t, res.JSONErr)
}

func TestParseJSONAndFlatAgree(t *testing.T) {
	jsonRes := Parse(`{"name_cont":"foo"}`)
	flatRes := Parse(`name_cont=foo`)

	require.Equal(t, FormJSON, jsonRes.Form)
	require.Equal(t, FormFlat, flatRes.Form)
	assert.Error(t, flatRes.JSONErr)
	assert.Equal(t, jsonRes.Tree, flatRes.Tree)
}

func TestParseJSONGroups(t *testing.T) {
	res := Parse(`{"status_eq":"open","or":[{"name_cont":"bolt"},{"price_lt":5}],"not":{"featured_true":true}}`)
	require.Equal(t, FormJSON, res.Form)

	tree := res.Tree
	assert.Equal(t, And, tree.Combinator)
	require.Len(t, tree.Children, 3)

	not, ok := tree.Children[0].(Group)
	require.True(t, ok)
	assert.True(t, not.Negated)
	assert.Equal(t, []Condition{{Key: "featured_true", Attribute: "featured", Predicate: True, Values: []string{"true"}}}, not.Conditions())

	or, ok := tree.Children[1].(Group)
	require.True(t, ok)
	assert.Equal(t, Or, or.Combinator)
	conds := or.Conditions()
	require.Len(t, conds, 2)
	assert.Equal(t, "bolt", conds[0].Value())
	assert.Equal(t, "5", conds[1].Value())

	status, ok := tree.Children[2].(Condition)
	require.True(t, ok)
	assert.Equal(t, "open", status.Value())
}

func TestParseRansackGrouping(t *testing.T) {
	res := Parse(`{"m":"or","g":[{"name_eq":"a"},{"name_eq":"b"}]}`)
	require.Equal(t, FormJSON, res.Form)
	assert.Equal(t, Or, res.Tree.Combinator)
	assert.Len(t, res.Tree.Children, 2)
	assert.Len(t, res.Tree.Conditions(), 2)
}

func TestParseInValues(t *testing.T) {
	jsonRes := Parse(`{"status_in":["open","closed"]}`)
	flatRes := Parse(`status_in=open,closed`)
	assert.Equal(t, []string{"open", "closed"}, jsonRes.Tree.Conditions()[0].Values)
	assert.Equal(t, jsonRes.Tree, flatRes.Tree)

	res := Parse(`{"status_in":"open, closed"}`)
	assert.Equal(t, []string{"open", "closed"}, res.Tree.Conditions()[0].Values)
}

func TestParseDropsUnknownKeysButKeepsLeaves(t *testing.T) {
	res := Parse(`{"bogus":"1' OR '1'='1","name_eq":{"nested":"x"}}`)
	require.Equal(t, FormJSON, res.Form)
	assert.Empty(t, res.Tree.Conditions())
	assert.Contains(t, res.Leaves, "1' OR '1'='1")
	assert.Contains(t, res.Leaves, "nested")
	assert.Contains(t, res.Leaves, "x")
}

func TestParseMalformedJSONFallsBackToFlat(t *testing.T) {
	res := Parse(`{"name_cont":"foo"`)
	assert.Equal(t, FormFlat, res.Form)
	assert.Error(t, res.JSONErr)
	assert.Empty(t, res.Tree.Conditions())
}

func TestParseNonObjectJSONIsFlat(t *testing.T) {
	for _, raw := range []string{`null`, `"name_eq=x"`, `[1,2]`} {
		res := Parse(raw)
		assert.Equal(t, FormFlat, res.Form, raw)
		assert.Error(t, res.JSONErr, raw)
	}
}

func TestParseFlatBadEscapeKeepsRawLeaf(t *testing.T) {
	res := Parse(`name_eq=%zz&status_eq=open`)
	assert.Equal(t, FormFlat, res.Form)
	assert.Contains(t, res.Leaves, `name_eq=%zz&status_eq=open`)
	conds := res.Tree.Conditions()
	require.Len(t, conds, 1)
	assert.Equal(t, "status", conds[0].Attribute)
}

func TestParseFlag(t *testing.T) {
	v, ok := ParseFlag("yes")
	assert.True(t, ok)
	assert.True(t, v)
	v, ok = ParseFlag("0")
	assert.True(t, ok)
	assert.False(t, v)
	_, ok = ParseFlag("maybe")
	assert.False(t, ok)
}
