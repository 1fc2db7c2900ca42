package pipeline

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/catalog"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/llm"
	"github.com/joseph-ayodele/labs-tracker/internal/match"
	"github.com/joseph-ayodele/labs-tracker/internal/pdfdoc"
	"github.com/joseph-ayodele/labs-tracker/internal/repository"
	"github.com/joseph-ayodele/labs-tracker/internal/retry"
)

// fakeSplitter reports a fixed page count and empty-bodied chunks; the fake
// extractor keys off the page range, not the bytes.
type fakeSplitter struct{ pages int }

func (f fakeSplitter) PageCount([]byte) (int, error) { return f.pages, nil }

func (f fakeSplitter) Split(_ []byte, pagesPerChunk int) ([]pdfdoc.Chunk, error) {
	return pdfdoc.PageRanges(f.pages, pagesPerChunk), nil
}

type fakeExtractor struct {
	byRange map[string][]llm.Reading // key "" = whole document
	calls   atomic.Int32
	err     error
	onCall  func()
}

func (f *fakeExtractor) ModelName() string   { return "fake-vision" }
func (f *fakeExtractor) EffortLevel() string { return "medium" }

func (f *fakeExtractor) ExtractBiomarkers(_ context.Context, req llm.ExtractionRequest) (llm.ExtractionResult, error) {
	f.calls.Add(1)
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return llm.ExtractionResult{}, f.err
	}
	return llm.ExtractionResult{Readings: f.byRange[req.PageRange]}, nil
}

type fakeVerifier struct {
	calls   atomic.Int32
	passed  bool
	remarks []string
}

func (f *fakeVerifier) ModelName() string   { return "fake-verifier" }
func (f *fakeVerifier) EffortLevel() string { return "low" }

func (f *fakeVerifier) VerifyBiomarkers(context.Context, llm.VerificationRequest) (llm.VerificationResult, error) {
	f.calls.Add(1)
	return llm.VerificationResult{Passed: f.passed, Corrections: f.remarks}, nil
}

func testPipelineCatalog() *catalog.Catalog {
	codes := []string{"glucose", "hdl", "ldl", "tsh", "crp", "alt", "ast", "hba1c"}
	standards := make([]entity.BiomarkerStandard, 0, len(codes))
	for _, code := range codes {
		standards = append(standards, entity.BiomarkerStandard{
			Code: code, Name: code, Category: "General", StandardUnit: "u",
			ReferenceRanges: entity.ReferenceRanges{
				Male:   entity.ReferenceRange{Low: 0, High: 100},
				Female: entity.ReferenceRange{Low: 0, High: 100},
			},
		})
	}
	return catalog.New(standards, nil)
}

func newTestOrchestrator(t *testing.T, repo repository.LabUploadRepository, splitter pdfdoc.Splitter, ex llm.BiomarkerExtractor, vf llm.Verifier) *Orchestrator {
	t.Helper()
	policy := retry.Policy{Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 1}
	return NewOrchestrator(
		repo,
		splitter,
		NewExtractionStage(ex, policy, 2, nil),
		NewVerificationStage(vf, policy, 2, nil),
		NewMergeStage(nil, nil),
		match.NewStage(testPipelineCatalog(), nil, nil),
		nil,
		3, 1,
		nil,
	)
}

func createUpload(t *testing.T, repo repository.LabUploadRepository, skipVerification bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := repo.Create(context.Background(), &entity.LabUpload{
		ID:               id,
		Status:           string(constants.UploadStatusPending),
		SkipVerification: skipVerification,
		Gender:           "male",
		Filename:         "report.pdf",
		CreatedAt:        time.Now().UTC(),
	})
	require.NoError(t, err)
	return id
}

func TestProcessSinglePage(t *testing.T) {
	// Scenario: single-page document, 10 readings, 8 of them in the catalog.
	repo := repository.NewMemoryLabUploadRepository()
	readings := make([]llm.Reading, 0, 10)
	for _, name := range []string{"glucose", "hdl", "ldl", "tsh", "crp", "alt", "ast", "hba1c", "unknown one", "unknown two"} {
		readings = append(readings, llm.Reading{Name: name, Value: 50, Unit: "u"})
	}
	ex := &fakeExtractor{byRange: map[string][]llm.Reading{"": readings}}
	vf := &fakeVerifier{passed: true}

	o := newTestOrchestrator(t, repo, fakeSplitter{pages: 1}, ex, vf)
	id := createUpload(t, repo, false)

	debug, err := o.Process(context.Background(), id, []byte("%PDF"))
	require.NoError(t, err)

	assert.False(t, debug.IsChunked)
	assert.Nil(t, debug.MergeStage)
	require.NotNil(t, debug.Stage2)
	assert.False(t, debug.Stage2.Skipped)
	assert.True(t, debug.Stage2.VerificationPassed)
	assert.Equal(t, 0, debug.Stage2.CorrectionsCount)
	require.NotNil(t, debug.Stage3)
	assert.Equal(t, 8, debug.Stage3.MatchedCount)
	assert.Equal(t, 2, debug.Stage3.UnmatchedCount)

	u, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(constants.UploadStatusComplete), u.Status)
	require.NotNil(t, u.VerificationPassed)
	assert.True(t, *u.VerificationPassed)
	require.NotNil(t, u.CompletedAt)

	var details []entity.BiomarkerMatchDetail
	require.NoError(t, json.Unmarshal(u.ExtractedData, &details))
	assert.Len(t, details, 10)
}

func TestProcessChunkedMerge(t *testing.T) {
	// Scenario: 5-page chunked document, 3 readings per page (15 total),
	// glucose repeated on every page and hdl on two -> 5 duplicates removed.
	repo := repository.NewMemoryLabUploadRepository()
	byRange := map[string][]llm.Reading{
		"1": {{Name: "glucose", Value: 90, Unit: "u"}, {Name: "hdl", Value: 55, Unit: "u"}, {Name: "ldl", Value: 100, Unit: "u"}},
		"2": {{Name: "glucose", Value: 90, Unit: "u"}, {Name: "hdl", Value: 55, Unit: "u"}, {Name: "tsh", Value: 2, Unit: "u"}},
		"3": {{Name: "glucose", Value: 90, Unit: "u"}, {Name: "crp", Value: 1, Unit: "u"}, {Name: "alt", Value: 30, Unit: "u"}},
		"4": {{Name: "glucose", Value: 90, Unit: "u"}, {Name: "ast", Value: 28, Unit: "u"}, {Name: "hba1c", Value: 5, Unit: "u"}},
		"5": {{Name: "glucose", Value: 90, Unit: "u"}, {Name: "vitamin d", Value: 40, Unit: "u"}, {Name: "ferritin", Value: 80, Unit: "u"}},
	}
	ex := &fakeExtractor{byRange: byRange}
	vf := &fakeVerifier{passed: true}

	o := newTestOrchestrator(t, repo, fakeSplitter{pages: 5}, ex, vf)
	id := createUpload(t, repo, false)

	debug, err := o.Process(context.Background(), id, []byte("%PDF"))
	require.NoError(t, err)

	assert.True(t, debug.IsChunked)
	require.NotNil(t, debug.PageCount)
	assert.Equal(t, 5, *debug.PageCount)
	require.NotNil(t, debug.Stage1)
	assert.Equal(t, 15, debug.Stage1.BiomarkersExtracted)
	require.NotNil(t, debug.Stage1.PagesProcessed)
	assert.Equal(t, 5, *debug.Stage1.PagesProcessed)

	require.NotNil(t, debug.MergeStage)
	assert.Equal(t, 15, debug.MergeStage.TotalBiomarkersBeforeMerge)
	assert.Equal(t, 10, debug.MergeStage.TotalBiomarkersAfterMerge)
	assert.Equal(t, 5, debug.MergeStage.DuplicatesRemoved)

	require.NotNil(t, debug.Stage3)
	assert.Equal(t, 10, debug.Stage3.MatchedCount+debug.Stage3.UnmatchedCount)

	// verification ran per chunk
	assert.Equal(t, int32(5), vf.calls.Load())
	require.NotNil(t, debug.Stage2.PagesPassed)
	assert.Equal(t, 5, *debug.Stage2.PagesPassed)
}

func TestProcessSkipVerification(t *testing.T) {
	repo := repository.NewMemoryLabUploadRepository()
	ex := &fakeExtractor{byRange: map[string][]llm.Reading{
		"": {{Name: "glucose", Value: 90, Unit: "u"}},
	}}
	vf := &fakeVerifier{passed: true}

	o := newTestOrchestrator(t, repo, fakeSplitter{pages: 1}, ex, vf)
	id := createUpload(t, repo, true)

	debug, err := o.Process(context.Background(), id, []byte("%PDF"))
	require.NoError(t, err)

	require.NotNil(t, debug.Stage2)
	assert.True(t, debug.Stage2.Skipped)
	assert.Equal(t, int32(0), vf.calls.Load()) // no model call

	u, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(constants.UploadStatusComplete), u.Status)
	assert.Nil(t, u.VerificationPassed)
}

func TestProcessExtractionFailure(t *testing.T) {
	repo := repository.NewMemoryLabUploadRepository()
	ex := &fakeExtractor{err: context.DeadlineExceeded}
	vf := &fakeVerifier{passed: true}

	o := newTestOrchestrator(t, repo, fakeSplitter{pages: 1}, ex, vf)
	id := createUpload(t, repo, false)

	debug, err := o.Process(context.Background(), id, []byte("%PDF"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)

	// first attempt + one retry, then the pipeline fails
	assert.Equal(t, int32(2), ex.calls.Load())
	assert.Nil(t, debug.Stage2)
	assert.Nil(t, debug.Stage3)
	assert.Equal(t, int32(0), vf.calls.Load())

	u, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(constants.UploadStatusError), u.Status)
	require.NotNil(t, u.ErrorMessage)
	assert.NotEmpty(t, *u.ErrorMessage)
}

func TestProcessDiscardsAfterDeletion(t *testing.T) {
	repo := repository.NewMemoryLabUploadRepository()
	var id uuid.UUID
	ex := &fakeExtractor{byRange: map[string][]llm.Reading{
		"": {{Name: "glucose", Value: 90, Unit: "u"}},
	}}
	// upload deleted while the extraction call is in flight
	ex.onCall = func() {
		_ = repo.Delete(context.Background(), id)
	}
	vf := &fakeVerifier{passed: true}

	o := newTestOrchestrator(t, repo, fakeSplitter{pages: 1}, ex, vf)
	id = createUpload(t, repo, false)

	_, err := o.Process(context.Background(), id, []byte("%PDF"))
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, int32(0), vf.calls.Load()) // nothing after the discard

	_, err = repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestProcessVerifierCorrections(t *testing.T) {
	repo := repository.NewMemoryLabUploadRepository()
	ex := &fakeExtractor{byRange: map[string][]llm.Reading{
		"": {{Name: "glucose", Value: 900, Unit: "u"}},
	}}
	vf := &fakeVerifier{passed: false, remarks: []string{"glucose magnitude implausible"}}

	o := newTestOrchestrator(t, repo, fakeSplitter{pages: 1}, ex, vf)
	id := createUpload(t, repo, false)

	debug, err := o.Process(context.Background(), id, []byte("%PDF"))
	require.NoError(t, err) // failed verification is content, not an error

	assert.False(t, debug.Stage2.VerificationPassed)
	assert.Equal(t, 1, debug.Stage2.CorrectionsCount)

	u, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(constants.UploadStatusComplete), u.Status)
	require.NotNil(t, u.VerificationPassed)
	assert.False(t, *u.VerificationPassed)
	require.Len(t, u.Corrections, 1)
}

func TestOverallConfidence(t *testing.T) {
	stage3 := &entity.Stage3Info{MatchedCount: 3, UnmatchedCount: 1}

	// model-reported confidences win
	withConf := []entity.ExtractedBiomarker{{Confidence: 0.8}, {Confidence: 0.6}}
	assert.InDelta(t, 0.7, overallConfidence(withConf, stage3), 1e-6)

	// fallback: matched ratio
	assert.InDelta(t, 0.75, overallConfidence(nil, stage3), 1e-6)

	empty := &entity.Stage3Info{}
	assert.Equal(t, float32(0), overallConfidence(nil, empty))
}
