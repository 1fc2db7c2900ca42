package match

import (
	"errors"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// ErrNoReferenceRange is returned for genders the catalog carries no range
// for. Callers record it as a validation issue rather than defaulting.
var ErrNoReferenceRange = errors.New("no reference range available")

// criticalMarginRatio widens the range by 20% on each side before a value is
// flagged critical instead of merely low/high.
const criticalMarginRatio = 0.2

// RangeForGender selects the range matching the subject's recorded gender.
func RangeForGender(rr entity.ReferenceRanges, gender constants.Gender) (entity.ReferenceRange, error) {
	switch gender {
	case constants.GenderMale:
		return rr.Male, nil
	case constants.GenderFemale:
		return rr.Female, nil
	}
	return entity.ReferenceRange{}, ErrNoReferenceRange
}

// Status classifies value against r. Rules evaluated in order:
// below low−margin → critical, below low → low, above high+margin →
// critical, above high → high, else normal. Comparisons are strict, so a
// value at exactly low−margin is low, not critical.
func Status(value float64, r entity.ReferenceRange) constants.BiomarkerStatus {
	margin := (r.High - r.Low) * criticalMarginRatio
	switch {
	case value < r.Low-margin:
		return constants.BiomarkerCritical
	case value < r.Low:
		return constants.BiomarkerLow
	case value > r.High+margin:
		return constants.BiomarkerCritical
	case value > r.High:
		return constants.BiomarkerHigh
	}
	return constants.BiomarkerNormal
}
