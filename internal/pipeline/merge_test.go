package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/llm"
)

func TestMergeInvariant(t *testing.T) {
	m := NewMergeStage(nil, nil)

	chunks := []ChunkReadings{
		{Index: 0, FirstPage: 1, Readings: []llm.Reading{
			{Name: "Glucose", Value: 95, Unit: "mg/dL"},
			{Name: "HDL", Value: 55, Unit: "mg/dL"},
		}},
		{Index: 1, FirstPage: 2, Readings: []llm.Reading{
			{Name: "glucose", Value: 95, Unit: "mg/dL"}, // duplicate, same value
			{Name: "LDL", Value: 110, Unit: "mg/dL"},
		}},
	}
	merged, info := m.Run(chunks)

	assert.Equal(t, 4, info.TotalBiomarkersBeforeMerge)
	assert.Equal(t, 3, info.TotalBiomarkersAfterMerge)
	assert.Equal(t, 1, info.DuplicatesRemoved)
	assert.Equal(t, 0, info.ConflictsResolved) // same value within tolerance
	assert.Equal(t, info.TotalBiomarkersBeforeMerge-info.DuplicatesRemoved, info.TotalBiomarkersAfterMerge)
	require.Len(t, merged, 3)
	// first-seen order preserved
	assert.Equal(t, "Glucose", merged[0].OriginalName)
	assert.Equal(t, "HDL", merged[1].OriginalName)
	assert.Equal(t, "LDL", merged[2].OriginalName)
}

func TestMergeConflictHighestConfidence(t *testing.T) {
	m := NewMergeStage(HighestConfidence{}, nil)

	chunks := []ChunkReadings{
		{Index: 0, FirstPage: 1, Readings: []llm.Reading{
			{Name: "TSH", Value: 2.1, Unit: "mIU/L", Confidence: 0.6},
		}},
		{Index: 1, FirstPage: 2, Readings: []llm.Reading{
			{Name: "TSH", Value: 3.4, Unit: "mIU/L", Confidence: 0.9},
		}},
	}
	merged, info := m.Run(chunks)

	require.Len(t, merged, 1)
	assert.Equal(t, 1, info.ConflictsResolved)
	assert.Equal(t, 3.4, merged[0].RawValue)
	assert.Equal(t, 2, merged[0].Page)
}

func TestMergeConflictLatestPage(t *testing.T) {
	m := NewMergeStage(LatestPage{}, nil)

	chunks := []ChunkReadings{
		{Index: 0, FirstPage: 1, Readings: []llm.Reading{
			{Name: "CRP", Value: 1.0, Unit: "mg/L", Confidence: 0.99},
		}},
		{Index: 1, FirstPage: 3, Readings: []llm.Reading{
			{Name: "CRP", Value: 2.0, Unit: "mg/L", Confidence: 0.5},
		}},
	}
	merged, _ := m.Run(chunks)

	require.Len(t, merged, 1)
	assert.Equal(t, 2.0, merged[0].RawValue)
	assert.Equal(t, 3, merged[0].Page)
}

func TestMergeUnitMismatchIsConflict(t *testing.T) {
	a := entity.ExtractedBiomarker{RawValue: 95, RawUnit: "mg/dL"}
	b := entity.ExtractedBiomarker{RawValue: 95, RawUnit: "mmol/L"}
	assert.True(t, isConflict(a, b))

	c := entity.ExtractedBiomarker{RawValue: 95, RawUnit: "MG/DL"}
	assert.False(t, isConflict(a, c))
}
