// Package catalog holds the biomarker standards reference data: codes,
// aliases, categories, unit factors and gender-scoped ranges. The catalog is
// loaded once and read-only during pipeline runs, so it needs no locking.
package catalog

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

type Catalog struct {
	ordered    []*entity.BiomarkerStandard
	byCode     map[string]*entity.BiomarkerStandard
	categories []string
	log        *slog.Logger
}

// New builds the lookup indexes and audits alias collisions. Aliases
// duplicated across entries are kept on the entry declared first in catalog
// order (lookups walk that order), and every collision is logged so the data
// can be fixed upstream.
func New(standards []entity.BiomarkerStandard, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		byCode: make(map[string]*entity.BiomarkerStandard, len(standards)),
		log:    logger,
	}
	aliasOwner := make(map[string]string)
	seenCat := make(map[string]struct{})
	for i := range standards {
		s := &standards[i]
		code := strings.ToLower(s.Code)
		if prev, dup := c.byCode[code]; dup {
			c.log.Warn("catalog.duplicate_code", "code", code, "kept", prev.Name, "dropped", s.Name)
			continue
		}
		c.byCode[code] = s
		c.ordered = append(c.ordered, s)
		if _, ok := seenCat[s.Category]; !ok {
			seenCat[s.Category] = struct{}{}
			c.categories = append(c.categories, s.Category)
		}
		for _, a := range s.Aliases {
			key := strings.ToLower(strings.TrimSpace(a))
			if owner, dup := aliasOwner[key]; dup {
				c.log.Warn("catalog.alias_collision", "alias", key, "first", owner, "also", code)
				continue
			}
			aliasOwner[key] = code
		}
	}
	c.log.Info("catalog.loaded", "standards", len(c.ordered), "categories", len(c.categories))
	return c
}

// LookupByCode returns the entry for a (case-insensitive) code.
func (c *Catalog) LookupByCode(code string) (*entity.BiomarkerStandard, bool) {
	s, ok := c.byCode[strings.ToLower(strings.TrimSpace(code))]
	return s, ok
}

// LookupByCategory returns entries of one category in catalog order.
func (c *Catalog) LookupByCategory(category string) []*entity.BiomarkerStandard {
	var out []*entity.BiomarkerStandard
	for _, s := range c.ordered {
		if strings.EqualFold(s.Category, category) {
			out = append(out, s)
		}
	}
	return out
}

// Search matches query as a case-insensitive substring over name, code and
// aliases, in catalog order.
func (c *Catalog) Search(query string) []*entity.BiomarkerStandard {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []*entity.BiomarkerStandard
	for _, s := range c.ordered {
		if strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.Code), q) {
			out = append(out, s)
			continue
		}
		for _, a := range s.Aliases {
			if strings.Contains(strings.ToLower(a), q) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Categories returns distinct categories in catalog display order.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.categories))
	copy(out, c.categories)
	return out
}

// All returns every entry in catalog order. Callers must not mutate entries.
func (c *Catalog) All() []*entity.BiomarkerStandard {
	return c.ordered
}

func (c *Catalog) Len() int {
	return len(c.ordered)
}
