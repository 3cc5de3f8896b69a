package models

import "gorm.io/datatypes"

// Scope rule wildcards and actions.
const (
	Wildcard   = "*"
	ActionRead = "read"
)

// ScopeRule narrows what an API key, or every key holding Role, can see of a
// resource. Filter uses the same expression language as the q parameter.
// Columns and Associations are comma separated; empty or "*" means all.
type ScopeRule struct {
	Base
	APIKeyID     *string        `gorm:"type:uuid;index" json:"apiKeyId"`
	Role         string         `gorm:"index" json:"role"`
	Resource     string         `gorm:"not null;index" json:"resource"`
	Action       string         `gorm:"not null;default:read" json:"action"`
	Filter       datatypes.JSON `json:"filter"`
	Columns      string         `json:"columns"`
	Associations string         `json:"associations"`
}

// ColumnList returns nil when every column is allowed.
func (r *ScopeRule) ColumnList() []string {
	return wildcardList(r.Columns)
}

// AssociationList returns nil when every association is allowed.
func (r *ScopeRule) AssociationList() []string {
	return wildcardList(r.Associations)
}

// HasFilter reports whether the rule restricts rows.
func (r *ScopeRule) HasFilter() bool {
	s := string(r.Filter)
	return s != "" && s != "null" && s != "{}"
}

func wildcardList(s string) []string {
	list := SplitList(s)
	for _, v := range list {
		if v == Wildcard {
			return nil
		}
	}
	return list
}
