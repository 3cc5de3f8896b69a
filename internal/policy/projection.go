package policy

import (
	"sort"

	"scopedrest/internal/api/registry"
	"scopedrest/internal/filter"
)

// Scope is what one key may read of one resource.
type Scope struct {
	Resource *registry.Resource
	Action   string

	columns      map[string]bool
	methods      map[string]bool
	associations map[string]*AssociationScope
	rowsAll      bool
	rows         []filter.Group
}

// AssociationScope is the scope applied to an association's target rows.
type AssociationScope struct {
	Association *registry.Association
	Scope       *Scope
}

func (s *Scope) allowAllColumns() {
	for _, c := range s.Resource.Columns() {
		s.columns[c] = true
	}
	for _, m := range s.Resource.Methods() {
		s.methods[m] = true
	}
}

// Columns returns the permitted columns in resource order.
func (s *Scope) Columns() []string {
	var out []string
	for _, c := range s.Resource.Columns() {
		if s.columns[c] {
			out = append(out, c)
		}
	}
	return out
}

func (s *Scope) AllowsColumn(name string) bool { return s.columns[name] }

func (s *Scope) AllowsMethod(name string) bool { return s.methods[name] }

// Association returns the scope of a permitted association.
func (s *Scope) Association(name string) (*AssociationScope, bool) {
	a, ok := s.associations[name]
	return a, ok
}

// Associations returns the permitted association names, sorted.
func (s *Scope) Associations() []string {
	out := make([]string, 0, len(s.associations))
	for name := range s.associations {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Unrestricted reports whether every row is visible.
func (s *Scope) Unrestricted() bool { return s.rowsAll }

// Rows returns the row filters, any one of which makes a row visible. With
// Unrestricted false and no rows, nothing is visible.
func (s *Scope) Rows() []filter.Group {
	return append([]filter.Group(nil), s.rows...)
}

// Projection is the intersection of a request's select and include lists
// with a Scope. Only Scope.Project creates one.
type Projection struct {
	scope        *Scope
	Columns      []string
	Associations []string
	Methods      []string
}

// Scope returns the scope the projection was cut from, or nil for a
// projection not built by Project.
func (p Projection) Scope() *Scope { return p.scope }

// Project intersects the requested names with the scope. Names that do not
// exist and names that are not permitted are dropped the same way. An empty
// selectNames means every permitted column.
func (s *Scope) Project(selectNames, includeNames []string) Projection {
	p := Projection{scope: s}

	if len(selectNames) == 0 {
		p.Columns = s.Columns()
	} else {
		seen := map[string]bool{}
		for _, name := range selectNames {
			if seen[name] || !s.columns[name] {
				continue
			}
			seen[name] = true
			p.Columns = append(p.Columns, name)
		}
	}

	seen := map[string]bool{}
	for _, name := range includeNames {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, isAssoc := s.Resource.Association(name); isAssoc {
			if _, ok := s.associations[name]; ok {
				p.Associations = append(p.Associations, name)
			}
			continue
		}
		if _, isMethod := s.Resource.Method(name); isMethod && s.methods[name] {
			p.Methods = append(p.Methods, name)
		}
	}
	return p
}
