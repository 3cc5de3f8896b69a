package filter

import (
	"sort"
	"strings"
)

// Predicate is the comparison named by a filter key's suffix, as in
// name_cont or price_gteq.
type Predicate string

const (
	Eq      Predicate = "eq"
	NotEq   Predicate = "not_eq"
	Cont    Predicate = "cont"
	NotCont Predicate = "not_cont"
	ICont   Predicate = "i_cont"
	Start   Predicate = "start"
	End     Predicate = "end"
	Lt      Predicate = "lt"
	Lteq    Predicate = "lteq"
	Gt      Predicate = "gt"
	Gteq    Predicate = "gteq"
	In      Predicate = "in"
	NotIn   Predicate = "not_in"
	Null    Predicate = "null"
	NotNull Predicate = "not_null"
	Present Predicate = "present"
	Blank   Predicate = "blank"
	True    Predicate = "true"
	False   Predicate = "false"
)

// suffixes holds every predicate, longest first, so not_eq wins over eq.
var suffixes = func() []Predicate {
	all := []Predicate{Eq, NotEq, Cont, NotCont, ICont, Start, End, Lt, Lteq, Gt, Gteq,
		In, NotIn, Null, NotNull, Present, Blank, True, False}
	sort.SliceStable(all, func(i, j int) bool { return len(all[i]) > len(all[j]) })
	return all
}()

// Multi reports whether the predicate takes a list of values.
func (p Predicate) Multi() bool {
	return p == In || p == NotIn
}

// Flag reports whether the predicate's value is a boolean switch rather than
// an operand, as in {"notes_null": true}.
func (p Predicate) Flag() bool {
	switch p {
	case Null, NotNull, Present, Blank, True, False:
		return true
	}
	return false
}

// SplitKey separates a filter key into attribute and predicate. ok is false
// when the key carries no known predicate suffix.
func SplitKey(key string) (attribute string, p Predicate, ok bool) {
	for _, s := range suffixes {
		suffix := "_" + string(s)
		if strings.HasSuffix(key, suffix) && len(key) > len(suffix) {
			return key[:len(key)-len(suffix)], s, true
		}
	}
	return "", "", false
}

// ParseFlag interprets a flag predicate's value.
func ParseFlag(v string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, true
	case "0", "f", "false", "n", "no", "off":
		return false, true
	}
	return false, false
}
