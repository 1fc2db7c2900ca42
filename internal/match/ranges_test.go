package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

func TestStatusBoundaries(t *testing.T) {
	// range {70,100} -> margin 6
	r := entity.ReferenceRange{Low: 70, High: 100}

	cases := []struct {
		value float64
		want  constants.BiomarkerStatus
	}{
		{63.9, constants.BiomarkerCritical},
		{64, constants.BiomarkerLow}, // exactly low-margin: strict <, so low
		{69.9, constants.BiomarkerLow},
		{70, constants.BiomarkerNormal},
		{85, constants.BiomarkerNormal},
		{100, constants.BiomarkerNormal},
		{100.1, constants.BiomarkerHigh},
		{106, constants.BiomarkerHigh}, // exactly high+margin: strict >, so high
		{106.1, constants.BiomarkerCritical},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Status(c.value, r), "value %v", c.value)
	}
}

func TestRangeForGender(t *testing.T) {
	rr := entity.ReferenceRanges{
		Male:   entity.ReferenceRange{Low: 13.5, High: 17.5},
		Female: entity.ReferenceRange{Low: 12.0, High: 15.5},
	}

	r, err := RangeForGender(rr, constants.GenderMale)
	require.NoError(t, err)
	assert.Equal(t, 13.5, r.Low)

	r, err = RangeForGender(rr, constants.GenderFemale)
	require.NoError(t, err)
	assert.Equal(t, 15.5, r.High)

	_, err = RangeForGender(rr, constants.Gender("other"))
	assert.ErrorIs(t, err, ErrNoReferenceRange)
}
