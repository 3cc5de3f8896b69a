package pagination

import (
	"bytes"
	"context"
	"reflect"

	"github.com/goccy/go-json"
	"gorm.io/gorm/schema"

	"scopedrest/internal/api/registry"
	"scopedrest/internal/query"
)

// Record is a rendered row: an object whose keys keep insertion order.
type Record struct {
	keys   []string
	values map[string]any
}

func newRecord(size int) *Record {
	return &Record{keys: make([]string, 0, size), values: make(map[string]any, size)}
}

func (r *Record) Set(key string, value any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

func (r *Record) Keys() []string { return append([]string(nil), r.keys...) }

func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// renderer turns loaded models into Records holding only the plan's
// projection.
type renderer struct {
	ctx  context.Context
	plan *query.Plan
}

func (r renderer) record(rv reflect.Value) *Record {
	res := r.plan.Resource()
	includes := r.plan.Includes()
	methods := r.plan.Methods()
	columns := r.plan.Columns()

	rec := columnsOf(r.ctx, res.Schema, columns, rv, len(includes)+len(methods))
	for _, inc := range includes {
		rec.Set(inc.Name, r.include(inc, rv))
	}
	for _, name := range methods {
		if fn, ok := res.Method(name); ok && rv.CanAddr() {
			rec.Set(name, fn(rv.Addr().Interface()))
		}
	}
	return rec
}

func (r renderer) include(inc query.Include, owner reflect.Value) any {
	rel, ok := r.plan.Resource().Schema.Relationships.Relations[inc.Field]
	if !ok {
		return nil
	}
	v := reflect.Indirect(rel.Field.ReflectValueOf(r.ctx, owner))
	return renderValue(r.ctx, inc.Target, inc.Columns, v)
}

func renderValue(ctx context.Context, target *registry.Resource, columns []string, v reflect.Value) any {
	switch v.Kind() {
	case reflect.Slice:
		out := make([]*Record, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			item := reflect.Indirect(v.Index(i))
			if item.IsValid() {
				out = append(out, columnsOf(ctx, target.Schema, columns, item, 0))
			}
		}
		return out
	case reflect.Struct:
		pk := target.PrimaryKey()
		if _, zero := pk.ValueOf(ctx, v); zero {
			return nil
		}
		return columnsOf(ctx, target.Schema, columns, v, 0)
	default:
		return nil
	}
}

func columnsOf(ctx context.Context, s *schema.Schema, columns []string, rv reflect.Value, extra int) *Record {
	rec := newRecord(len(columns) + extra)
	for _, c := range columns {
		f, ok := s.FieldsByDBName[c]
		if !ok {
			continue
		}
		rec.Set(c, deref(f.ReflectValueOf(ctx, rv)))
	}
	return rec
}

func deref(v reflect.Value) any {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}
