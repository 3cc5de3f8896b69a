package models

// All lists every model migrated at startup, parents before children.
func All() []interface{} {
	return []interface{}{
		&APIKey{},
		&ScopeRule{},
		&AuditLog{},
		&AuditArchive{},
		&Category{},
		&Widget{},
		&Part{},
		&Tag{},
	}
}
