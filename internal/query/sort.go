package query

import (
	"strings"
)

// SortTerm orders by one column.
type SortTerm struct {
	Column string
	Desc   bool
}

// ParseSort reads "-created_at,+name,status". Unprefixed terms take their
// direction from order ("asc" or "desc"; anything else is ascending).
func ParseSort(raw, order string) []SortTerm {
	defaultDesc := strings.EqualFold(strings.TrimSpace(order), "desc")
	var terms []SortTerm
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		term := SortTerm{Desc: defaultDesc}
		switch part[0] {
		case '-':
			term.Desc = true
			part = part[1:]
		case '+':
			term.Desc = false
			part = part[1:]
		}
		if part = strings.TrimSpace(part); part != "" {
			term.Column = part
			terms = append(terms, term)
		}
	}
	return terms
}
