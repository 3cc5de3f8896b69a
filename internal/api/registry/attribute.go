package registry

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/schema"
)

var ErrBadValue = errors.New("value does not match column type")

// Attribute is a filterable column, either on the resource itself or on one
// of its associations (written <association>_<column>).
type Attribute struct {
	Association *Association
	Field       *schema.Field
}

// Column is the attribute's column name on its own table.
func (a Attribute) Column() string { return a.Field.DBName }

// ResolveAttribute resolves a filter attribute. Own columns win over
// association columns; longer association names win over shorter ones.
func (r *Resource) ResolveAttribute(attr string) (Attribute, bool) {
	if f, ok := r.fields[attr]; ok {
		return Attribute{Field: f}, true
	}

	var best *Association
	var bestField *schema.Field
	for name := range r.associations {
		prefix := name + "_"
		if !strings.HasPrefix(attr, prefix) || (best != nil && len(name) <= len(best.Name)) {
			continue
		}
		a, ok := r.Association(name)
		if !ok {
			continue
		}
		if f, ok := a.Target.fields[attr[len(prefix):]]; ok {
			best, bestField = a, f
		}
	}
	if best == nil {
		return Attribute{}, false
	}
	return Attribute{Association: best, Field: bestField}, true
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// CoerceValue converts raw to the Go type stored in f.
func CoerceValue(f *schema.Field, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch f.DataType {
	case schema.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, ErrBadValue
		}
		return b, nil
	case schema.Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, ErrBadValue
		}
		return n, nil
	case schema.Uint:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, ErrBadValue
		}
		return n, nil
	case schema.Float:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, ErrBadValue
		}
		return n, nil
	case schema.Time:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return nil, ErrBadValue
	case "uuid":
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, ErrBadValue
		}
		return id.String(), nil
	default:
		return raw, nil
	}
}

// IsText reports whether f holds text, which makes LIKE predicates and
// blank checks meaningful.
func IsText(f *schema.Field) bool {
	return f.DataType == schema.String
}
