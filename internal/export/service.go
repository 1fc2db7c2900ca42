package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/repository"
)

// Service is a tiny façade over the uploads repository that produces XLSX
// bytes for a completed upload's matched results.
type Service struct {
	uploads repository.LabUploadRepository
	logger  *slog.Logger
}

func NewService(uploads repository.LabUploadRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uploads: uploads, logger: logger}
}

// ExportResultsXLSX returns an XLSX workbook (as bytes) with one row per
// match detail of the upload's extracted data.
func (s *Service) ExportResultsXLSX(ctx context.Context, uploadID uuid.UUID) ([]byte, error) {
	start := time.Now()

	upload, err := s.uploads.GetByID(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("load upload: %w", err)
	}
	if len(upload.ExtractedData) == 0 {
		return nil, fmt.Errorf("upload %s has no extracted data", uploadID)
	}
	var details []entity.BiomarkerMatchDetail
	if err := json.Unmarshal(upload.ExtractedData, &details); err != nil {
		return nil, fmt.Errorf("decode extracted data: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Biomarkers"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Extracted Name",
		"Matched Code",
		"Matched Name",
		"Value",
		"Unit",
		"Original Value",
		"Original Unit",
		"Status",
		"Validation Issues",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, d := range details {
		code, name := "", ""
		if d.MatchedCode != nil {
			code = *d.MatchedCode
		}
		if d.MatchedName != nil {
			name = *d.MatchedName
		}
		origValue, origUnit := any(""), ""
		if d.ConversionApplied != nil {
			origValue = d.ConversionApplied.FromValue
			origUnit = d.ConversionApplied.FromUnit
		}
		issues := ""
		for i, issue := range d.ValidationIssues {
			if i > 0 {
				issues += "; "
			}
			issues += issue
		}

		values := []any{d.OriginalName, code, name, d.Value, d.Unit, origValue, origUnit, d.Status, issues}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	// drop the default sheet if it isn't ours
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("export.xlsx.ok", "upload_id", uploadID, "rows", len(details),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}
