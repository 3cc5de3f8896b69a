package query

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"scopedrest/internal/api/registry"
)

var ErrUnsupportedAssociation = errors.New("query: unsupported association")

// link describes how owner rows join target rows for one association.
type link struct {
	kind schema.RelationshipType
	// ownerKey is the owner column matched against the target side:
	// the foreign key for belongs-to, the primary key otherwise.
	ownerKey *schema.Field
	// targetKey is the target column ownerKey equals (absent for many2many).
	targetKey *schema.Field
	// many2many only.
	joinTable  string
	joinOwner  string
	joinTarget string
	targetPK   *schema.Field
}

func linkOf(a *registry.Association) (link, error) {
	rel := a.Relationship
	l := link{kind: rel.Type}

	if rel.JoinTable != nil {
		l.joinTable = rel.JoinTable.Table
		for _, ref := range rel.References {
			if ref.PrimaryKey == nil || ref.ForeignKey == nil {
				continue
			}
			if ref.OwnPrimaryKey {
				l.ownerKey = ref.PrimaryKey
				l.joinOwner = ref.ForeignKey.DBName
			} else {
				l.targetPK = ref.PrimaryKey
				l.joinTarget = ref.ForeignKey.DBName
			}
		}
		if l.ownerKey == nil || l.targetPK == nil {
			return link{}, fmt.Errorf("%s: %w", a.Name, ErrUnsupportedAssociation)
		}
		return l, nil
	}

	var refs []*schema.Reference
	for _, ref := range rel.References {
		if ref.PrimaryKey != nil && ref.ForeignKey != nil {
			refs = append(refs, ref)
		}
	}
	if len(refs) != 1 {
		return link{}, fmt.Errorf("%s: %w", a.Name, ErrUnsupportedAssociation)
	}
	ref := refs[0]
	if ref.OwnPrimaryKey {
		l.ownerKey, l.targetKey = ref.PrimaryKey, ref.ForeignKey
	} else {
		l.ownerKey, l.targetKey = ref.ForeignKey, ref.PrimaryKey
	}
	return l, nil
}

// associationSubquery matches owner rows having at least one target row
// that satisfies where.
func associationSubquery(a *registry.Association, where []clause.Expression) (clause.Expression, error) {
	l, err := linkOf(a)
	if err != nil {
		return nil, err
	}
	owner, target := a.Owner.Table(), a.Target.Table()
	sub := inSubquery{
		column: clause.Column{Table: owner, Name: l.ownerKey.DBName},
		where:  where,
	}
	if l.joinTable != "" {
		sub.selectColumn = clause.Column{Table: l.joinTable, Name: l.joinOwner}
		sub.from = l.joinTable
		sub.join = &joinOn{
			table: target,
			left:  clause.Column{Table: target, Name: l.targetPK.DBName},
			right: clause.Column{Table: l.joinTable, Name: l.joinTarget},
		}
	} else {
		sub.selectColumn = clause.Column{Table: target, Name: l.targetKey.DBName}
		sub.from = target
	}
	return sub, nil
}

// Parent restricts a nested listing to the targets of one loaded record.
type Parent struct {
	association *registry.Association
	conds       []clause.Expression
}

// ParentOf builds the constraint for a's targets of record, a pointer to a
// loaded owner model.
func ParentOf(ctx context.Context, a *registry.Association, record any) (*Parent, error) {
	l, err := linkOf(a)
	if err != nil {
		return nil, err
	}
	rv := reflect.Indirect(reflect.ValueOf(record))
	if !rv.IsValid() || rv.Type() != a.Owner.Schema.ModelType {
		return nil, fmt.Errorf("query: parent record is not a %s", a.Owner.Name)
	}

	value, ok := fieldValue(ctx, l.ownerKey, rv)
	p := &Parent{association: a}
	target := a.Target.Table()
	switch {
	case !ok:
		p.conds = []clause.Expression{never}
	case l.joinTable != "":
		p.conds = []clause.Expression{inSubquery{
			column:       clause.Column{Table: target, Name: l.targetPK.DBName},
			selectColumn: clause.Column{Table: l.joinTable, Name: l.joinTarget},
			from:         l.joinTable,
			where:        []clause.Expression{clause.Eq{Column: clause.Column{Table: l.joinTable, Name: l.joinOwner}, Value: value}},
		}}
	default:
		p.conds = []clause.Expression{clause.Eq{Column: clause.Column{Table: target, Name: l.targetKey.DBName}, Value: value}}
	}
	return p, nil
}

// fieldValue reads f from rv, dereferencing pointers. ok is false for nil
// or zero keys.
func fieldValue(ctx context.Context, f *schema.Field, rv reflect.Value) (any, bool) {
	v, zero := f.ValueOf(ctx, rv)
	if zero || v == nil {
		return nil, false
	}
	pv := reflect.ValueOf(v)
	for pv.Kind() == reflect.Pointer {
		if pv.IsNil() {
			return nil, false
		}
		pv = pv.Elem()
	}
	return pv.Interface(), true
}
