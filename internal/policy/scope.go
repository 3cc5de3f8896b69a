// Package policy decides what an API key may read: a class-level gate
// backed by casbin, and a row, column and association scope folded from the
// key's scope rules.
package policy

import (
	"context"
	"errors"
	"fmt"

	"scopedrest/internal/api/registry"
	"scopedrest/internal/filter"
	"scopedrest/internal/guard"
	"scopedrest/internal/models"
	console "scopedrest/internal/utils/logger"
)

var ErrForbidden = errors.New("forbidden")

var log = console.New("POLICY")

// Checker is the class-level policy engine.
type Checker interface {
	Can(key *models.APIKey, action, resource string) (bool, error)
}

// Authorizer computes Scopes. A Scope is built per request and never cached.
type Authorizer struct {
	checker Checker
	rules   RuleStore
	guard   *guard.Guard
}

func NewAuthorizer(checker Checker, rules RuleStore, g *guard.Guard) *Authorizer {
	return &Authorizer{checker: checker, rules: rules, guard: g}
}

// Scope returns what key may see of res, or ErrForbidden when the policy
// engine denies the action on the resource class.
func (a *Authorizer) Scope(ctx context.Context, key *models.APIKey, res *registry.Resource, action string) (*Scope, error) {
	ok, err := a.checker.Can(key, action, res.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s on %s: %w", action, res.Name, ErrForbidden)
	}
	return a.fold(ctx, key, res, action, true)
}

func (a *Authorizer) fold(ctx context.Context, key *models.APIKey, res *registry.Resource, action string, withAssociations bool) (*Scope, error) {
	rules, err := a.rules.RulesFor(ctx, key, res.Name, action)
	if err != nil {
		return nil, err
	}

	s := &Scope{
		Resource:     res,
		Action:       action,
		columns:      map[string]bool{},
		methods:      map[string]bool{},
		associations: map[string]*AssociationScope{},
	}
	candidates := map[string]bool{}

	if len(rules) == 0 {
		s.rowsAll = true
		s.allowAllColumns()
		for _, name := range res.Associations() {
			candidates[name] = true
		}
	}

	for i := range rules {
		rule := &rules[i]
		var rows *filter.Group
		if rule.HasFilter() {
			tree, err := a.ruleFilter(res, rule)
			if err != nil {
				log.Warn("Skipping scope rule %s for %s: %v", rule.ID, res.Name, err)
				continue
			}
			rows = &tree
		}

		if cols := rule.ColumnList(); cols == nil {
			s.allowAllColumns()
		} else {
			for _, c := range cols {
				if res.HasColumn(c) {
					s.columns[c] = true
				} else if _, ok := res.Method(c); ok {
					s.methods[c] = true
				}
			}
		}

		if assocs := rule.AssociationList(); assocs == nil {
			for _, name := range res.Associations() {
				candidates[name] = true
			}
		} else {
			for _, name := range assocs {
				candidates[name] = true
			}
		}

		if rows == nil {
			s.rowsAll = true
		} else {
			s.rows = append(s.rows, *rows)
		}
	}
	if s.rowsAll {
		s.rows = nil
	}

	if !withAssociations {
		return s, nil
	}
	for name := range candidates {
		assoc, ok := res.Association(name)
		if !ok {
			continue
		}
		allowed, err := a.checker.Can(key, action, assoc.Target.Name)
		if err != nil {
			return nil, err
		}
		if !allowed {
			continue
		}
		sub, err := a.fold(ctx, key, assoc.Target, action, false)
		if err != nil {
			return nil, err
		}
		s.associations[name] = &AssociationScope{Association: assoc, Scope: sub}
	}
	return s, nil
}

// ruleFilter parses and checks a rule's row filter. Rules are rejected, not
// partially applied, when any part of the filter is unusable.
func (a *Authorizer) ruleFilter(res *registry.Resource, rule *models.ScopeRule) (filter.Group, error) {
	parsed := filter.Parse(string(rule.Filter))
	if parsed.Form != filter.FormJSON {
		return filter.Group{}, fmt.Errorf("filter is not a JSON object")
	}
	if err := a.guard.CheckAll(parsed.Leaves); err != nil {
		return filter.Group{}, err
	}
	conds := parsed.Tree.Conditions()
	if len(conds) == 0 {
		return filter.Group{}, fmt.Errorf("filter has no usable conditions")
	}
	for _, c := range conds {
		attr, ok := res.ResolveAttribute(c.Attribute)
		if !ok {
			return filter.Group{}, fmt.Errorf("unknown attribute %q", c.Attribute)
		}
		if c.Predicate.Flag() {
			if _, ok := filter.ParseFlag(c.Value()); !ok {
				return filter.Group{}, fmt.Errorf("bad flag value for %q", c.Key)
			}
			continue
		}
		for _, v := range c.Values {
			if _, err := registry.CoerceValue(attr.Field, v); err != nil {
				return filter.Group{}, fmt.Errorf("%q: %w", c.Key, err)
			}
		}
	}
	return parsed.Tree, nil
}
