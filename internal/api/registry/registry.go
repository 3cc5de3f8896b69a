// Package registry maps resource names to the allow-listed set of models
// built at startup. Requests can only reach tables registered here.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm/schema"
)

var (
	ErrInvalidName        = errors.New("malformed resource name")
	ErrUnknownResource    = errors.New("unknown resource")
	ErrUnknownAssociation = errors.New("unknown association")
	ErrInvalidID          = errors.New("invalid record id")
)

// SoftDeleteColumn marks rows hidden from every query when true.
const SoftDeleteColumn = "is_deleted"

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// ValidName reports whether name is shaped like a resource or association
// name. It says nothing about whether the name is registered.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// MethodFunc computes a value from a loaded record (a pointer to the model).
type MethodFunc func(record any) any

type Registry struct {
	mu      sync.RWMutex
	cache   *sync.Map
	namer   schema.Namer
	byName  map[string]*Resource
	byTable map[string]*Resource
}

// New returns an empty registry. namer should be the gorm connection's
// NamingStrategy so column names match the database.
func New(namer schema.Namer) *Registry {
	if namer == nil {
		namer = schema.NamingStrategy{}
	}
	return &Registry{
		cache:   &sync.Map{},
		namer:   namer,
		byName:  map[string]*Resource{},
		byTable: map[string]*Resource{},
	}
}

// Register exposes model T under name.
func Register[T any](r *Registry, name string, opts ...Option) error {
	if !ValidName(name) {
		return fmt.Errorf("register %q: %w", name, ErrInvalidName)
	}
	s, err := schema.Parse(new(T), r.cache, r.namer)
	if err != nil {
		return fmt.Errorf("register %q: %w", name, err)
	}

	res := &Resource{
		Name:         name,
		Schema:       s,
		registry:     r,
		fields:       map[string]*schema.Field{},
		associations: map[string]*schema.Relationship{},
		methods:      map[string]MethodFunc{},
		hidden:       map[string]bool{},
	}
	for _, opt := range opts {
		opt(res)
	}

	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		if f.DBName == SoftDeleteColumn {
			res.softDelete = true
			continue
		}
		if res.hidden[f.DBName] || jsonHidden(f.Tag) {
			continue
		}
		res.columns = append(res.columns, f.DBName)
		res.fields[f.DBName] = f
	}

	for _, rel := range s.Relationships.Relations {
		if rel.Polymorphic != nil || jsonHidden(rel.Field.Tag) {
			continue
		}
		assocName := r.namer.ColumnName("", rel.Name)
		if res.hidden[assocName] {
			continue
		}
		res.associations[assocName] = rel
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("register %q: already registered", name)
	}
	r.byName[name] = res
	r.byTable[s.Table] = res
	return nil
}

func jsonHidden(tag reflect.StructTag) bool {
	return strings.SplitN(tag.Get("json"), ",", 2)[0] == "-"
}

// Resolve returns the resource registered as name.
func (r *Registry) Resolve(name string) (*Resource, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.byName[name]
	if !ok {
		return nil, ErrUnknownResource
	}
	return res, nil
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) byTableName(table string) *Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byTable[table]
}

// Resource describes one exposed model.
type Resource struct {
	Name   string
	Schema *schema.Schema

	registry     *Registry
	columns      []string
	fields       map[string]*schema.Field
	associations map[string]*schema.Relationship
	methods      map[string]MethodFunc
	methodNames  []string
	hidden       map[string]bool
	defaultSort  string
	perPage      int
	softDelete   bool
}

// Association is a relationship whose target is itself a registered resource.
type Association struct {
	Name         string
	Relationship *schema.Relationship
	Owner        *Resource
	Target       *Resource
}

func (r *Resource) Table() string { return r.Schema.Table }

// Columns returns the exposable column names in declaration order.
func (r *Resource) Columns() []string {
	return append([]string(nil), r.columns...)
}

func (r *Resource) HasColumn(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// Field returns the schema field for an exposable column.
func (r *Resource) Field(name string) (*schema.Field, bool) {
	f, ok := r.fields[name]
	return f, ok
}

func (r *Resource) PrimaryKey() *schema.Field {
	return r.Schema.PrioritizedPrimaryField
}

func (r *Resource) SoftDelete() bool { return r.softDelete }

func (r *Resource) DefaultSort() string { return r.defaultSort }

// PerPage is the resource's page size, or 0 to use the server default.
func (r *Resource) PerPage() int { return r.perPage }

// Associations returns the names of associations whose target is registered.
func (r *Resource) Associations() []string {
	var names []string
	for name := range r.associations {
		if _, ok := r.Association(name); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Association resolves name to a relationship with a registered target.
func (r *Resource) Association(name string) (*Association, bool) {
	rel, ok := r.associations[name]
	if !ok {
		return nil, false
	}
	target := r.registry.byTableName(rel.FieldSchema.Table)
	if target == nil {
		return nil, false
	}
	return &Association{Name: name, Relationship: rel, Owner: r, Target: target}, true
}

// Nested resolves the association addressed by /:resource/:id/:nested.
func (r *Resource) Nested(name string) (*Association, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}
	a, ok := r.Association(name)
	if !ok {
		return nil, ErrUnknownAssociation
	}
	return a, nil
}

// Methods returns the registered computed method names.
func (r *Resource) Methods() []string {
	return append([]string(nil), r.methodNames...)
}

func (r *Resource) Method(name string) (MethodFunc, bool) {
	fn, ok := r.methods[name]
	return fn, ok
}

// ParseID converts a path id into a primary key value.
func (r *Resource) ParseID(raw string) (any, error) {
	pk := r.PrimaryKey()
	if pk == nil || raw == "" {
		return nil, ErrInvalidID
	}
	switch pk.DataType {
	case "uuid":
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, ErrInvalidID
		}
		return id.String(), nil
	case schema.Int, schema.Uint:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, ErrInvalidID
		}
		return n, nil
	default:
		return raw, nil
	}
}

// NewSlice returns a pointer to an empty slice of the model type.
func (r *Resource) NewSlice() any {
	return reflect.New(reflect.SliceOf(r.Schema.ModelType)).Interface()
}

// Model returns a pointer to a zero model value.
func (r *Resource) Model() any {
	return reflect.New(r.Schema.ModelType).Interface()
}
