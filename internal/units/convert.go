// Package units normalizes heterogeneous lab units against a standard's
// conversion table. Conversions are linear: value-in-standard-unit =
// value × factor.
package units

import (
	"log/slog"
	"strings"
)

// Converter performs linear unit normalization. A missing factor is not an
// error: the value passes through unchanged and the caller surfaces a
// validation issue, since an unconverted mismatched-unit value is clinically
// misleading.
type Converter struct {
	Log *slog.Logger
}

func NewConverter(logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{Log: logger}
}

// Convert returns the value expressed in standardUnit and whether a
// conversion path existed. Same-unit input (case-insensitive) is the
// identity with ok=true and no factor lookup. Factor lookup is exact first,
// then lowercase fallback.
func (c *Converter) Convert(value float64, fromUnit, standardUnit string, conversions map[string]float64) (float64, bool) {
	from := strings.TrimSpace(fromUnit)
	if strings.EqualFold(from, strings.TrimSpace(standardUnit)) {
		return value, true
	}
	if factor, ok := conversions[from]; ok {
		return value * factor, true
	}
	lower := strings.ToLower(from)
	for unit, factor := range conversions {
		if strings.ToLower(unit) == lower {
			return value * factor, true
		}
	}
	c.Log.Warn("units.conversion_skipped", "from_unit", fromUnit, "standard_unit", standardUnit)
	return value, false
}
