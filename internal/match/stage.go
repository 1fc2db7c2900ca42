package match

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/catalog"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/units"
)

// Stage runs catalog reconciliation: match each extracted biomarker, convert
// its unit, classify the converted value against the subject's gender range
// and assemble a detail per reading. Unmatched readings are retained so the
// user can reconcile them manually.
type Stage struct {
	Catalog   *catalog.Catalog
	Converter *units.Converter
	Log       *slog.Logger
}

func NewStage(cat *catalog.Catalog, conv *units.Converter, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	if conv == nil {
		conv = units.NewConverter(logger)
	}
	return &Stage{Catalog: cat, Converter: conv, Log: logger}
}

// Run produces stage-3 debug info. MatchedCount and UnmatchedCount are
// derived from the details, never set independently.
func (s *Stage) Run(ctx context.Context, biomarkers []entity.ExtractedBiomarker, gender constants.Gender) (*entity.Stage3Info, error) {
	if s.Catalog == nil || s.Catalog.Len() == 0 {
		return nil, common.ErrCatalogUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	matcher := NewMatcher(s.Catalog)
	info := &entity.Stage3Info{
		StandardsCount: s.Catalog.Len(),
		UserGender:     string(gender),
		MatchDetails:   make([]entity.BiomarkerMatchDetail, 0, len(biomarkers)),
	}

	for _, b := range biomarkers {
		detail := s.matchOne(matcher, b, gender)
		if detail.MatchedCode != nil {
			info.MatchedCount++
		} else {
			info.UnmatchedCount++
		}
		info.MatchDetails = append(info.MatchDetails, detail)
	}

	info.DurationMs = time.Since(start).Milliseconds()
	s.Log.Info("match.stage.done",
		"total", len(biomarkers),
		"matched", info.MatchedCount,
		"unmatched", info.UnmatchedCount,
		"gender", gender,
		"duration_ms", info.DurationMs,
	)
	return info, nil
}

func (s *Stage) matchOne(matcher *Matcher, b entity.ExtractedBiomarker, gender constants.Gender) entity.BiomarkerMatchDetail {
	detail := entity.BiomarkerMatchDetail{
		OriginalName: b.OriginalName,
		Value:        b.RawValue,
		Unit:         b.RawUnit,
	}

	std, rule, ok := matcher.Match(b.OriginalName)
	if !ok {
		s.Log.Debug("match.miss", "name", b.OriginalName)
		return detail
	}
	detail.MatchedCode = &std.Code
	detail.MatchedName = &std.Name
	s.Log.Debug("match.hit", "name", b.OriginalName, "code", std.Code, "rule", rule.String())

	converted, convOK := s.Converter.Convert(b.RawValue, b.RawUnit, std.StandardUnit, std.UnitConversions)
	if !convOK {
		// Value passes through unconverted; keep the original unit so the
		// mismatch stays visible next to the issue.
		detail.ValidationIssues = append(detail.ValidationIssues,
			fmt.Sprintf("unit conversion skipped: no factor from %q to %q", b.RawUnit, std.StandardUnit))
	} else {
		if converted != b.RawValue {
			detail.ConversionApplied = &entity.ConversionApplied{
				FromValue: b.RawValue,
				FromUnit:  b.RawUnit,
				ToValue:   converted,
				ToUnit:    std.StandardUnit,
			}
		}
		detail.Value = converted
		detail.Unit = std.StandardUnit
	}

	r, err := RangeForGender(std.ReferenceRanges, gender)
	if err != nil {
		detail.ValidationIssues = append(detail.ValidationIssues,
			fmt.Sprintf("no reference range available for gender %q", gender))
		return detail
	}
	detail.Status = string(Status(converted, r))
	return detail
}
