package pipeline

import (
	"log/slog"
	"math"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// valueTolerance is the relative difference below which two readings of the
// same biomarker are the same measurement, not a conflict.
const valueTolerance = 1e-6

// ConflictPolicy decides which of two duplicate readings survives.
type ConflictPolicy interface {
	Resolve(kept, incoming entity.ExtractedBiomarker) entity.ExtractedBiomarker
	Name() string
}

// HighestConfidence keeps the reading with the higher stage-1 confidence,
// falling back to the later page on ties. This is the default policy.
type HighestConfidence struct{}

func (HighestConfidence) Name() string { return "highest_confidence" }

func (HighestConfidence) Resolve(kept, incoming entity.ExtractedBiomarker) entity.ExtractedBiomarker {
	if incoming.Confidence > kept.Confidence {
		return incoming
	}
	if incoming.Confidence == kept.Confidence && incoming.Page > kept.Page {
		return incoming
	}
	return kept
}

// LatestPage keeps the reading from the highest page number.
type LatestPage struct{}

func (LatestPage) Name() string { return "latest_page" }

func (LatestPage) Resolve(kept, incoming entity.ExtractedBiomarker) entity.ExtractedBiomarker {
	if incoming.Page >= kept.Page {
		return incoming
	}
	return kept
}

// MergeStage combines per-chunk biomarker lists into one deduplicated list
// before matching. Runs only for chunked documents. Duplicate detection keys
// on the normalized extracted name; resolving matcher-level duplicates here
// would invert the stage order, so colliding aliases remain separate
// readings until matching.
type MergeStage struct {
	Policy ConflictPolicy
	Log    *slog.Logger
}

func NewMergeStage(policy ConflictPolicy, logger *slog.Logger) *MergeStage {
	if policy == nil {
		policy = HighestConfidence{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MergeStage{Policy: policy, Log: logger}
}

// Run deduplicates readings across chunks. Input order is chunk index then
// reading order, so the output is deterministic for a given extraction.
// Invariant: before - duplicatesRemoved == after.
func (m *MergeStage) Run(chunks []ChunkReadings) ([]entity.ExtractedBiomarker, entity.MergeInfo) {
	var all []entity.ExtractedBiomarker
	for _, c := range chunks {
		for _, r := range c.Readings {
			all = append(all, entity.ExtractedBiomarker{
				OriginalName: r.Name,
				RawValue:     r.Value,
				RawUnit:      r.Unit,
				Page:         c.FirstPage,
				Confidence:   r.Confidence,
			})
		}
	}

	index := make(map[string]int)
	var merged []entity.ExtractedBiomarker
	duplicates, conflicts := 0, 0
	for _, b := range all {
		key := normalizeName(b.OriginalName)
		at, seen := index[key]
		if !seen {
			index[key] = len(merged)
			merged = append(merged, b)
			continue
		}
		duplicates++
		kept := merged[at]
		if isConflict(kept, b) {
			conflicts++
			winner := m.Policy.Resolve(kept, b)
			m.Log.Debug("pipeline.merge.conflict",
				"name", b.OriginalName, "policy", m.Policy.Name(),
				"kept_value", winner.RawValue, "kept_page", winner.Page,
			)
			merged[at] = winner
		}
	}

	info := entity.MergeInfo{
		TotalBiomarkersBeforeMerge: len(all),
		TotalBiomarkersAfterMerge:  len(merged),
		DuplicatesRemoved:          duplicates,
		ConflictsResolved:          conflicts,
	}
	m.Log.Info("pipeline.merge.ok",
		"before", info.TotalBiomarkersBeforeMerge,
		"after", info.TotalBiomarkersAfterMerge,
		"duplicates", duplicates, "conflicts", conflicts,
	)
	return merged, info
}

func isConflict(a, b entity.ExtractedBiomarker) bool {
	if !strings.EqualFold(strings.TrimSpace(a.RawUnit), strings.TrimSpace(b.RawUnit)) {
		return true
	}
	scale := math.Max(math.Abs(a.RawValue), math.Abs(b.RawValue))
	if scale == 0 {
		return false
	}
	return math.Abs(a.RawValue-b.RawValue)/scale > valueTolerance
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
