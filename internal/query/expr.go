package query

import (
	"gorm.io/gorm/clause"
)

// group joins expressions with AND or OR inside parentheses, optionally
// negated. clause.AndConditions and clause.OrConditions are avoided because
// gorm rewrites single-element OR groups when they are nested in a WHERE.
type group struct {
	op      string
	negated bool
	exprs   []clause.Expression
}

func (g group) Build(b clause.Builder) {
	if g.negated {
		b.WriteString("NOT ")
	}
	b.WriteByte('(')
	for i, e := range g.exprs {
		if i > 0 {
			b.WriteString(" " + g.op + " ")
		}
		e.Build(b)
	}
	b.WriteByte(')')
}

func and(exprs ...clause.Expression) clause.Expression {
	return combine("AND", false, exprs)
}

func or(exprs ...clause.Expression) clause.Expression {
	return combine("OR", false, exprs)
}

func not(e clause.Expression) clause.Expression {
	if g, ok := e.(group); ok {
		g.negated = !g.negated
		return g
	}
	return group{op: "AND", negated: true, exprs: []clause.Expression{e}}
}

// combine drops nil operands and returns nil when nothing is left.
func combine(op string, negated bool, exprs []clause.Expression) clause.Expression {
	var kept []clause.Expression
	for _, e := range exprs {
		if e != nil {
			kept = append(kept, e)
		}
	}
	switch {
	case len(kept) == 0:
		return nil
	case len(kept) == 1 && !negated:
		return kept[0]
	default:
		return group{op: op, negated: negated, exprs: kept}
	}
}

// never matches no rows.
var never clause.Expression = clause.Expr{SQL: "1 = 0"}

// like is column LIKE pattern with backslash escaping, optionally lowercased
// on both sides.
type like struct {
	column  clause.Column
	pattern string
	negated bool
	fold    bool
}

func (l like) Build(b clause.Builder) {
	if l.fold {
		b.WriteString("LOWER(")
		b.WriteQuoted(l.column)
		b.WriteString(")")
	} else {
		b.WriteQuoted(l.column)
	}
	if l.negated {
		b.WriteString(" NOT LIKE ")
	} else {
		b.WriteString(" LIKE ")
	}
	b.AddVar(b, l.pattern)
	b.WriteString(` ESCAPE '\'`)
}

// inSubquery is column IN (SELECT selectColumn FROM from [JOIN] [WHERE]).
type inSubquery struct {
	column       clause.Column
	selectColumn clause.Column
	from         string
	join         *joinOn
	where        []clause.Expression
}

type joinOn struct {
	table string
	left  clause.Column
	right clause.Column
}

func (s inSubquery) Build(b clause.Builder) {
	b.WriteQuoted(s.column)
	b.WriteString(" IN (SELECT ")
	b.WriteQuoted(s.selectColumn)
	b.WriteString(" FROM ")
	b.WriteQuoted(clause.Table{Name: s.from})
	if s.join != nil {
		b.WriteString(" INNER JOIN ")
		b.WriteQuoted(clause.Table{Name: s.join.table})
		b.WriteString(" ON ")
		b.WriteQuoted(s.join.left)
		b.WriteString(" = ")
		b.WriteQuoted(s.join.right)
	}
	if where := and(s.where...); where != nil {
		b.WriteString(" WHERE ")
		where.Build(b)
	}
	b.WriteByte(')')
}
