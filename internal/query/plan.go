// Package query compiles a request into an executable Plan: the guarded
// filter, the scope's row predicate, sort, page and the projection cut from
// the scope.
package query

import (
	"errors"
	"fmt"

	"gorm.io/gorm/clause"

	"scopedrest/internal/api/registry"
	"scopedrest/internal/policy"
)

var (
	ErrUnvalidatedFilter  = errors.New("query: filter was not validated")
	ErrUnscopedProjection = errors.New("query: projection was not cut from the scope")
	ErrMissingScope       = errors.New("query: missing scope")
	ErrParentMismatch     = errors.New("query: parent does not lead to the scoped resource")
)

// Input is everything Compile needs for one request.
type Input struct {
	Scope      *policy.Scope
	Filter     Filter
	Projection policy.Projection
	Sort       string
	Order      string
	Page       int
	PerPage    int
	// ID restricts the plan to one record (show).
	ID any
	// Parent restricts the plan to one record's association (nested list).
	Parent *Parent
}

// Include is a preloaded association.
type Include struct {
	Name    string
	Field   string
	Target  *registry.Resource
	Columns []string
	Fetch   []string
	Where   []clause.Expression
}

// Plan is immutable once compiled. Accessors return copies.
type Plan struct {
	resource *registry.Resource
	scope    *policy.Scope
	keys     []clause.Expression
	rows     clause.Expression
	filter   clause.Expression
	order    []clause.OrderByColumn
	page     int
	perPage  int
	columns  []string
	fetch    []string
	includes []Include
	methods  []string
}

type Compiler struct {
	defaultPerPage int
	maxPerPage     int
}

func NewCompiler(defaultPerPage, maxPerPage int) *Compiler {
	if defaultPerPage < 1 {
		defaultPerPage = 25
	}
	if maxPerPage < defaultPerPage {
		maxPerPage = defaultPerPage
	}
	return &Compiler{defaultPerPage: defaultPerPage, maxPerPage: maxPerPage}
}

// Compile refuses filters that did not pass ValidateFilter and projections
// that were not produced by in.Scope.Project.
func (c *Compiler) Compile(in Input) (*Plan, error) {
	if in.Scope == nil {
		return nil, ErrMissingScope
	}
	if !in.Filter.Validated() {
		return nil, ErrUnvalidatedFilter
	}
	if in.Projection.Scope() != in.Scope {
		return nil, ErrUnscopedProjection
	}
	res := in.Scope.Resource
	if in.Parent != nil && in.Parent.association.Target != res {
		return nil, ErrParentMismatch
	}

	p := &Plan{resource: res, scope: in.Scope}

	if in.ID != nil {
		p.keys = append(p.keys, clause.Eq{Column: clause.Column{Table: res.Table(), Name: res.PrimaryKey().DBName}, Value: in.ID})
	}
	if in.Parent != nil {
		p.keys = append(p.keys, in.Parent.conds...)
	}
	if res.SoftDelete() {
		p.keys = append(p.keys, notDeleted(res))
	}

	rows, err := scopeRows(in.Scope)
	if err != nil {
		return nil, err
	}
	p.rows = rows

	p.filter, err = conditionCompiler{resource: res, scope: in.Scope}.group(in.Filter.tree)
	if err != nil {
		return nil, err
	}

	p.order = c.order(in.Scope, in.Sort, in.Order)
	p.page, p.perPage = c.window(res, in.Page, in.PerPage)

	p.columns = append([]string(nil), in.Projection.Columns...)
	p.methods = append([]string(nil), in.Projection.Methods...)
	fetch := newColumnSet()
	if len(p.methods) > 0 {
		fetch.add(res.Schema.DBNames...)
	} else {
		fetch.add(res.PrimaryKey().DBName)
		fetch.add(p.columns...)
	}

	for _, name := range in.Projection.Associations {
		inc, ownerKey, err := include(in.Scope, name)
		if err != nil {
			return nil, err
		}
		fetch.add(ownerKey)
		p.includes = append(p.includes, inc)
	}
	p.fetch = fetch.list()
	return p, nil
}

func include(s *policy.Scope, name string) (Include, string, error) {
	as, ok := s.Association(name)
	if !ok {
		return Include{}, "", fmt.Errorf("query: association %q not in scope", name)
	}
	l, err := linkOf(as.Association)
	if err != nil {
		return Include{}, "", err
	}
	target := as.Association.Target
	inc := Include{
		Name:    name,
		Field:   as.Association.Relationship.Name,
		Target:  target,
		Columns: as.Scope.Columns(),
	}

	fetch := newColumnSet()
	fetch.add(target.PrimaryKey().DBName)
	if l.targetKey != nil {
		fetch.add(l.targetKey.DBName)
	}
	fetch.add(inc.Columns...)
	inc.Fetch = fetch.list()

	if target.SoftDelete() {
		inc.Where = append(inc.Where, notDeleted(target))
	}
	rows, err := scopeRows(as.Scope)
	if err != nil {
		return Include{}, "", err
	}
	if rows != nil {
		inc.Where = append(inc.Where, rows)
	}
	return inc, l.ownerKey.DBName, nil
}

func (c *Compiler) order(s *policy.Scope, sort, order string) []clause.OrderByColumn {
	res := s.Resource
	seen := map[string]bool{}
	var out []clause.OrderByColumn
	permitted := func(terms []SortTerm) {
		for _, t := range terms {
			if seen[t.Column] || !s.AllowsColumn(t.Column) {
				continue
			}
			seen[t.Column] = true
			out = append(out, clause.OrderByColumn{Column: clause.Column{Table: res.Table(), Name: t.Column}, Desc: t.Desc})
		}
	}
	permitted(ParseSort(sort, order))
	if len(out) == 0 {
		permitted(ParseSort(res.DefaultSort(), ""))
	}

	pk := res.PrimaryKey().DBName
	if !seen[pk] {
		out = append(out, clause.OrderByColumn{Column: clause.Column{Table: res.Table(), Name: pk}})
	}
	return out
}

func (c *Compiler) window(res *registry.Resource, page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = res.PerPage()
	}
	if perPage < 1 {
		perPage = c.defaultPerPage
	}
	if perPage > c.maxPerPage {
		perPage = c.maxPerPage
	}
	return page, perPage
}

func (p *Plan) Resource() *registry.Resource { return p.resource }

func (p *Plan) Scope() *policy.Scope { return p.scope }

// Where returns the full predicate: record keys, scope rows, caller filter.
func (p *Plan) Where() []clause.Expression {
	out := append([]clause.Expression(nil), p.keys...)
	if p.rows != nil {
		out = append(out, p.rows)
	}
	if p.filter != nil {
		out = append(out, p.filter)
	}
	return out
}

// KeyWhere returns only the record keys, without scope rows or filter.
func (p *Plan) KeyWhere() []clause.Expression {
	return append([]clause.Expression(nil), p.keys...)
}

func (p *Plan) Order() []clause.OrderByColumn {
	return append([]clause.OrderByColumn(nil), p.order...)
}

func (p *Plan) Page() int { return p.page }

func (p *Plan) PerPage() int { return p.perPage }

func (p *Plan) Offset() int { return (p.page - 1) * p.perPage }

// Columns returns the projected columns, in render order.
func (p *Plan) Columns() []string { return append([]string(nil), p.columns...) }

// Fetch returns the columns to select, a superset of Columns that carries
// the keys preloads need.
func (p *Plan) Fetch() []string { return append([]string(nil), p.fetch...) }

func (p *Plan) Includes() []Include {
	out := make([]Include, len(p.includes))
	for i, inc := range p.includes {
		inc.Columns = append([]string(nil), inc.Columns...)
		inc.Fetch = append([]string(nil), inc.Fetch...)
		inc.Where = append([]clause.Expression(nil), inc.Where...)
		out[i] = inc
	}
	return out
}

func (p *Plan) Methods() []string { return append([]string(nil), p.methods...) }

type columnSet struct {
	seen  map[string]bool
	order []string
}

func newColumnSet() *columnSet { return &columnSet{seen: map[string]bool{}} }

func (s *columnSet) add(cols ...string) {
	for _, c := range cols {
		if c != "" && !s.seen[c] {
			s.seen[c] = true
			s.order = append(s.order, c)
		}
	}
}

func (s *columnSet) list() []string { return s.order }
