package query

import (
	"scopedrest/internal/filter"
	"scopedrest/internal/guard"
)

// Filter is a parsed q expression that has passed the injection guard.
// The zero value is not usable; Compile rejects it.
type Filter struct {
	tree      filter.Group
	form      filter.Form
	validated bool
}

// ValidateFilter runs every leaf of res through g. It is the only way to
// obtain a Filter Compile accepts.
func ValidateFilter(g *guard.Guard, res filter.Result) (Filter, error) {
	if err := g.CheckAll(res.Leaves); err != nil {
		return Filter{}, err
	}
	return Filter{tree: res.Tree, form: res.Form, validated: true}, nil
}

func (f Filter) Tree() filter.Group { return f.tree }

func (f Filter) Form() filter.Form { return f.form }

func (f Filter) Validated() bool { return f.validated }
