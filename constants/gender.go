package constants

import "strings"

// Gender scopes reference-range selection. Only male/female carry ranges in
// the standards catalog; anything else yields a validation issue downstream
// instead of a guessed range.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender canonicalizes common spellings. The boolean is false when the
// input does not map onto a catalog-ranged gender; the raw (lowercased) value
// is still returned so it can be echoed in telemetry.
func ParseGender(input string) (Gender, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	switch normalized {
	case "male", "m":
		return GenderMale, true
	case "female", "f":
		return GenderFemale, true
	}
	return Gender(normalized), false
}
