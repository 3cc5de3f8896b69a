// Package guard rejects request inputs that carry SQL injection signatures.
// It runs before any input reaches resource resolution, authorization or
// query compilation.
package guard

import (
	"fmt"
	"regexp"
	"strings"
)

// Signature names a family of injection patterns.
type Signature string

const (
	StackedQuery Signature = "stacked_query"
	Comment      Signature = "comment"
	Tautology    Signature = "tautology"
	Union        Signature = "union"
	TimeBased    Signature = "time_based"
	Catalog      Signature = "catalog"
	NullByte     Signature = "null_byte"
)

type rule struct {
	signature Signature
	pattern   *regexp.Regexp
}

var defaultRules = []rule{
	{NullByte, regexp.MustCompile(`\x00`)},
	{StackedQuery, regexp.MustCompile(`(?i);\s*(select|insert|update|delete|drop|alter|create|truncate|grant|revoke|exec|execute|declare|shutdown|copy|attach|pragma)\b`)},
	{Comment, regexp.MustCompile(`--|/\*|\*/|'\s*#`)},
	{Tautology, regexp.MustCompile(`(?i)\b\d+\s*=\s*\d+\s*(or|and)\b`)},
	{Tautology, regexp.MustCompile(`(?i)\b(or|and)\s+['"]?(\w+)['"]?\s*(=|<>|!=|[<>]=?|like)\s*['"]?\w+`)},
	{Tautology, regexp.MustCompile(`(?i)'\s*(or|and)\s*'`)},
	{Tautology, regexp.MustCompile(`(?i)\b(or|and)\s+(true|not\s+false)\b`)},
	{Union, regexp.MustCompile(`(?i)\bunion\b(\s+(all|distinct))?\s+select\b`)},
	{TimeBased, regexp.MustCompile(`(?i)\b(sleep|pg_sleep|benchmark|dbms_lock\.sleep)\s*\(`)},
	{TimeBased, regexp.MustCompile(`(?i)\bwaitfor\s+delay\b`)},
	{Catalog, regexp.MustCompile(`(?i)\b(information_schema|pg_catalog|pg_shadow|sqlite_master|sqlite_schema|mysql\.user|sys\.objects|xp_cmdshell)\b`)},
}

// Violation is returned when a value matches a signature.
type Violation struct {
	Signature Signature
	Value     string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("input rejected: %s pattern in %q", v.Signature, truncate(v.Value, 64))
}

// Guard checks strings against a fixed set of signatures. It is safe for
// concurrent use.
type Guard struct {
	rules []rule
}

func New() *Guard {
	return &Guard{rules: defaultRules}
}

// Check returns a *Violation for the first signature value matches.
func (g *Guard) Check(value string) error {
	if value == "" {
		return nil
	}
	for _, r := range g.rules {
		if r.pattern.MatchString(value) {
			return &Violation{Signature: r.signature, Value: value}
		}
	}
	return nil
}

// CheckAll checks every value and returns the first violation.
func (g *Guard) CheckAll(values []string) error {
	for _, v := range values {
		if err := g.Check(v); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
