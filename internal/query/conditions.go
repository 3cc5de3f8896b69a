package query

import (
	"fmt"
	"strings"

	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"scopedrest/internal/api/registry"
	"scopedrest/internal/filter"
	"scopedrest/internal/policy"
)

// conditionCompiler turns a filter tree into a WHERE expression for one
// resource. With a scope, conditions on columns the scope does not permit
// and values that do not convert are dropped. Without one (trusted rule
// filters) the same cases are errors.
type conditionCompiler struct {
	resource *registry.Resource
	scope    *policy.Scope
}

func (c conditionCompiler) strict() bool { return c.scope == nil }

func (c conditionCompiler) group(g filter.Group) (clause.Expression, error) {
	exprs := make([]clause.Expression, 0, len(g.Children))
	for _, child := range g.Children {
		var (
			e   clause.Expression
			err error
		)
		switch n := child.(type) {
		case filter.Group:
			e, err = c.group(n)
		case filter.Condition:
			e, err = c.condition(n)
		}
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}

	op := "AND"
	if g.Combinator == filter.Or {
		op = "OR"
	}
	e := combine(op, false, exprs)
	if e != nil && g.Negated {
		e = not(e)
	}
	return e, nil
}

func (c conditionCompiler) condition(cond filter.Condition) (clause.Expression, error) {
	attr, ok := c.resource.ResolveAttribute(cond.Attribute)
	if !ok {
		return c.drop(fmt.Errorf("unknown attribute %q", cond.Attribute))
	}

	var targetScope *policy.Scope
	if !c.strict() {
		if attr.Association == nil {
			if !c.scope.AllowsColumn(attr.Column()) {
				return c.drop(nil)
			}
		} else {
			as, ok := c.scope.Association(attr.Association.Name)
			if !ok || !as.Scope.AllowsColumn(attr.Column()) {
				return c.drop(nil)
			}
			targetScope = as.Scope
		}
	}

	table := c.resource.Table()
	if attr.Association != nil {
		table = attr.Association.Target.Table()
	}
	column := clause.Column{Table: table, Name: attr.Column()}

	pred, err := predicate(column, attr.Field, cond)
	if err != nil || pred == nil {
		return c.drop(err)
	}
	if attr.Association == nil {
		return pred, nil
	}

	where := []clause.Expression{pred}
	target := attr.Association.Target
	if target.SoftDelete() {
		where = append(where, notDeleted(target))
	}
	if targetScope != nil {
		rows, err := scopeRows(targetScope)
		if err != nil {
			return nil, err
		}
		where = append(where, rows)
	}
	return associationSubquery(attr.Association, where)
}

func (c conditionCompiler) drop(err error) (clause.Expression, error) {
	if c.strict() {
		if err == nil {
			err = fmt.Errorf("condition not permitted")
		}
		return nil, err
	}
	return nil, nil
}

// predicate builds the comparison for one condition. A nil expression with
// a nil error means the condition carries nothing to compare.
func predicate(column clause.Column, field *schema.Field, cond filter.Condition) (clause.Expression, error) {
	p := cond.Predicate
	if p.Flag() {
		on, ok := filter.ParseFlag(cond.Value())
		if !ok {
			return nil, fmt.Errorf("%s: bad flag value", cond.Key)
		}
		return flagPredicate(column, field, p, on), nil
	}

	if p.Multi() {
		values := make([]interface{}, 0, len(cond.Values))
		for _, raw := range cond.Values {
			v, err := registry.CoerceValue(field, raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", cond.Key, err)
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			return nil, nil
		}
		in := clause.IN{Column: column, Values: values}
		if p == filter.NotIn {
			return not(in), nil
		}
		return in, nil
	}

	switch p {
	case filter.Cont, filter.NotCont, filter.ICont, filter.Start, filter.End:
		raw := escapeLike(cond.Value())
		pattern := map[filter.Predicate]string{
			filter.Cont:    "%" + raw + "%",
			filter.NotCont: "%" + raw + "%",
			filter.ICont:   "%" + raw + "%",
			filter.Start:   raw + "%",
			filter.End:     "%" + raw,
		}[p]
		if p == filter.ICont {
			pattern = strings.ToLower(pattern)
		}
		return like{column: column, pattern: pattern, negated: p == filter.NotCont, fold: p == filter.ICont}, nil
	}

	v, err := registry.CoerceValue(field, cond.Value())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cond.Key, err)
	}
	switch p {
	case filter.Eq:
		return clause.Eq{Column: column, Value: v}, nil
	case filter.NotEq:
		return clause.Neq{Column: column, Value: v}, nil
	case filter.Lt:
		return clause.Lt{Column: column, Value: v}, nil
	case filter.Lteq:
		return clause.Lte{Column: column, Value: v}, nil
	case filter.Gt:
		return clause.Gt{Column: column, Value: v}, nil
	case filter.Gteq:
		return clause.Gte{Column: column, Value: v}, nil
	}
	return nil, fmt.Errorf("%s: unsupported predicate", cond.Key)
}

func flagPredicate(column clause.Column, field *schema.Field, p filter.Predicate, on bool) clause.Expression {
	isNull := clause.Eq{Column: column, Value: nil}
	notNull := clause.Neq{Column: column, Value: nil}
	switch p {
	case filter.Null, filter.NotNull:
		if (p == filter.Null) == on {
			return isNull
		}
		return notNull
	case filter.Present, filter.Blank:
		present := clause.Expression(notNull)
		blank := clause.Expression(isNull)
		if registry.IsText(field) {
			present = and(notNull, clause.Neq{Column: column, Value: ""})
			blank = or(isNull, clause.Eq{Column: column, Value: ""})
		}
		if (p == filter.Present) == on {
			return present
		}
		return blank
	default:
		return clause.Eq{Column: column, Value: (p == filter.True) == on}
	}
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '%', '_':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func notDeleted(res *registry.Resource) clause.Expression {
	return clause.Eq{Column: clause.Column{Table: res.Table(), Name: registry.SoftDeleteColumn}, Value: false}
}

// scopeRows compiles the scope's row filters: nil when every row is
// visible, never when none is.
func scopeRows(s *policy.Scope) (clause.Expression, error) {
	if s.Unrestricted() {
		return nil, nil
	}
	rows := s.Rows()
	if len(rows) == 0 {
		return never, nil
	}
	cc := conditionCompiler{resource: s.Resource}
	exprs := make([]clause.Expression, 0, len(rows))
	for _, r := range rows {
		e, err := cc.group(r)
		if err != nil {
			return nil, fmt.Errorf("scope rule on %s: %w", s.Resource.Name, err)
		}
		if e == nil {
			return nil, nil
		}
		exprs = append(exprs, e)
	}
	return or(exprs...), nil
}
