// Package filter parses the q parameter into a predicate tree.
//
// Two forms are accepted. The JSON form is an object whose keys are
// attribute_predicate pairs or the grouping keys and, or, not, m and g:
//
//	{"status_eq":"open","or":[{"name_cont":"bolt"},{"price_lt":5}]}
//
// Anything that does not decode as a JSON object is read as the flat form,
// a query string such as name_cont=bolt&status_in=open,closed.
package filter

import (
	"bytes"
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

var errNotObject = errors.New("filter: not a JSON object")

type Combinator string

const (
	And Combinator = "and"
	Or  Combinator = "or"
)

// Form records which parse path produced a Result.
type Form int

const (
	FormEmpty Form = iota
	FormJSON
	FormFlat
)

func (f Form) String() string {
	switch f {
	case FormJSON:
		return "json"
	case FormFlat:
		return "flat"
	default:
		return "empty"
	}
}

// Node is a Group or a Condition.
type Node interface {
	node()
}

type Group struct {
	Combinator Combinator
	Negated    bool
	Children   []Node
}

type Condition struct {
	Key       string
	Attribute string
	Predicate Predicate
	Values    []string
}

func (Group) node()     {}
func (Condition) node() {}

// Value returns the first value, or "" when there is none.
func (c Condition) Value() string {
	if len(c.Values) == 0 {
		return ""
	}
	return c.Values[0]
}

// Empty reports whether g has no conditions anywhere below it.
func (g Group) Empty() bool {
	for _, child := range g.Children {
		switch n := child.(type) {
		case Condition:
			return false
		case Group:
			if !n.Empty() {
				return false
			}
		}
	}
	return true
}

// Conditions returns every condition in g, depth first.
func (g Group) Conditions() []Condition {
	var out []Condition
	for _, child := range g.Children {
		switch n := child.(type) {
		case Condition:
			out = append(out, n)
		case Group:
			out = append(out, n.Conditions()...)
		}
	}
	return out
}

// Result is the outcome of Parse. JSONErr is set when the input was not a
// JSON object and the flat form was used instead.
type Result struct {
	Form    Form
	Tree    Group
	JSONErr error
	// Leaves holds every key and string value seen, including ones that did
	// not become conditions.
	Leaves []string
}

// Parse never fails. Input that is neither a JSON object nor a valid query
// string yields the conditions that could be read.
func Parse(raw string) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{Form: FormEmpty, Tree: Group{Combinator: And}}
	}

	obj, err := decodeObject(raw)
	if err == nil {
		res := Result{Form: FormJSON, Tree: parseObject(obj, And)}
		collectLeaves(obj, &res.Leaves)
		return res
	}

	res := parseFlat(raw)
	res.JSONErr = err
	return res
}

func decodeObject(raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errNotObject
	}
	return obj, nil
}

func parseObject(obj map[string]any, comb Combinator) Group {
	if m, ok := obj["m"].(string); ok && strings.EqualFold(m, string(Or)) {
		comb = Or
	}
	g := Group{Combinator: comb}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		val := obj[key]
		switch strings.ToLower(key) {
		case "and":
			if child, ok := parseNested(val, And); ok {
				g.Children = append(g.Children, child)
			}
		case "or":
			if child, ok := parseNested(val, Or); ok {
				g.Children = append(g.Children, child)
			}
		case "not":
			if child, ok := parseNested(val, And); ok {
				child.Negated = !child.Negated
				g.Children = append(g.Children, child)
			}
		case "g":
			for _, sub := range objects(val) {
				g.Children = append(g.Children, parseObject(sub, And))
			}
		case "m":
		default:
			if cond, ok := newCondition(key, jsonValues(val)); ok {
				g.Children = append(g.Children, cond)
			}
		}
	}
	return g
}

// parseNested reads the operand of and/or/not: an object whose entries are
// combined with comb, or an array of objects each combined with comb.
func parseNested(val any, comb Combinator) (Group, bool) {
	switch v := val.(type) {
	case map[string]any:
		return parseObject(v, comb), true
	case []any:
		g := Group{Combinator: comb}
		for _, sub := range objects(v) {
			g.Children = append(g.Children, parseObject(sub, And))
		}
		return g, true
	}
	return Group{}, false
}

func objects(val any) []map[string]any {
	switch v := val.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func jsonValues(val any) []string {
	switch v := val.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := scalar(item); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		if s, ok := scalar(v); ok {
			return []string{s}
		}
		return nil
	}
}

func scalar(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case bool:
		if s {
			return "true", true
		}
		return "false", true
	}
	return "", false
}

func collectLeaves(val any, leaves *[]string) {
	switch v := val.(type) {
	case map[string]any:
		for k, item := range v {
			*leaves = append(*leaves, k)
			collectLeaves(item, leaves)
		}
	case []any:
		for _, item := range v {
			collectLeaves(item, leaves)
		}
	case string:
		*leaves = append(*leaves, v)
	case json.Number:
		*leaves = append(*leaves, v.String())
	}
}

func parseFlat(raw string) Result {
	res := Result{Form: FormFlat, Tree: Group{Combinator: And}}
	values, err := url.ParseQuery(raw)
	if err != nil {
		res.Leaves = append(res.Leaves, raw)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		res.Leaves = append(res.Leaves, key)
		for _, v := range values[key] {
			res.Leaves = append(res.Leaves, v)
			if cond, ok := newCondition(key, []string{v}); ok {
				res.Tree.Children = append(res.Tree.Children, cond)
			}
		}
	}
	return res
}

func newCondition(key string, values []string) (Condition, bool) {
	attr, p, ok := SplitKey(key)
	if !ok {
		return Condition{}, false
	}
	if p.Multi() && len(values) == 1 {
		values = splitCSV(values[0])
	}
	if len(values) == 0 {
		return Condition{}, false
	}
	return Condition{Key: key, Attribute: attr, Predicate: p, Values: values}, true
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
