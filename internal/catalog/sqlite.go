package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// LoadSQLite reads the standards table from an embedded sqlite database.
// Aliases, unit conversions and ranges are stored as JSON columns; row order
// (display_order, then code) defines catalog display order.
func LoadSQLite(ctx context.Context, path string) ([]entity.BiomarkerStandard, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT code, name, category, standard_unit, aliases, unit_conversions, reference_ranges
		FROM biomarker_standard
		ORDER BY display_order, code`)
	if err != nil {
		return nil, fmt.Errorf("query standards: %w", err)
	}
	defer rows.Close()

	var out []entity.BiomarkerStandard
	for rows.Next() {
		var s entity.BiomarkerStandard
		var aliases, conversions, ranges []byte
		if err := rows.Scan(&s.Code, &s.Name, &s.Category, &s.StandardUnit, &aliases, &conversions, &ranges); err != nil {
			return nil, fmt.Errorf("scan standard: %w", err)
		}
		if len(aliases) > 0 {
			if err := json.Unmarshal(aliases, &s.Aliases); err != nil {
				return nil, fmt.Errorf("decode aliases for %s: %w", s.Code, err)
			}
		}
		if len(conversions) > 0 {
			if err := json.Unmarshal(conversions, &s.UnitConversions); err != nil {
				return nil, fmt.Errorf("decode unit conversions for %s: %w", s.Code, err)
			}
		}
		if len(ranges) > 0 {
			if err := json.Unmarshal(ranges, &s.ReferenceRanges); err != nil {
				return nil, fmt.Errorf("decode reference ranges for %s: %w", s.Code, err)
			}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate standards: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("catalog db %s contains no standards", path)
	}
	return out, nil
}
