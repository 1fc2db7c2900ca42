// Package match reconciles extracted biomarker names against the standards
// catalog and classifies converted values against gender-scoped reference
// ranges.
package match

import (
	"strings"

	"github.com/joseph-ayodele/labs-tracker/internal/catalog"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// Rule tags which step of the matching chain produced a hit. The chain is an
// explicit priority order: exact identifiers outrank descriptive text, and
// partial matching is the permissive last resort.
type Rule int

const (
	RuleNone Rule = iota
	RuleExactCode
	RuleExactName
	RuleExactAlias
	RulePartial
)

func (r Rule) String() string {
	switch r {
	case RuleExactCode:
		return "exact_code"
	case RuleExactName:
		return "exact_name"
	case RuleExactAlias:
		return "exact_alias"
	case RulePartial:
		return "partial"
	}
	return "none"
}

type Matcher struct {
	cat *catalog.Catalog
}

func NewMatcher(cat *catalog.Catalog) *Matcher {
	return &Matcher{cat: cat}
}

// Match resolves an extracted name to a catalog entry, first match wins,
// case-insensitive. Each rule scans the whole catalog in order before the
// next rule is tried, so a later entry's exact name still beats an earlier
// entry's alias-only partial overlap.
func (m *Matcher) Match(originalName string) (*entity.BiomarkerStandard, Rule, bool) {
	name := strings.ToLower(strings.TrimSpace(originalName))
	if name == "" {
		return nil, RuleNone, false
	}

	if s, ok := m.cat.LookupByCode(name); ok {
		return s, RuleExactCode, true
	}
	for _, s := range m.cat.All() {
		if strings.ToLower(s.Name) == name {
			return s, RuleExactName, true
		}
	}
	for _, s := range m.cat.All() {
		for _, a := range s.Aliases {
			if strings.ToLower(strings.TrimSpace(a)) == name {
				return s, RuleExactAlias, true
			}
		}
	}
	for _, s := range m.cat.All() {
		lower := strings.ToLower(s.Name)
		if strings.Contains(lower, name) || strings.Contains(name, lower) {
			return s, RulePartial, true
		}
	}
	return nil, RuleNone, false
}
