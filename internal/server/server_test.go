package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/async"
	"github.com/joseph-ayodele/labs-tracker/internal/catalog"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/repository"
)

type captureQueue struct {
	jobs []async.Job
}

func (q *captureQueue) Enqueue(_ context.Context, job async.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *captureQueue) Shutdown(context.Context) {}

func testCatalog() *catalog.Catalog {
	return catalog.New([]entity.BiomarkerStandard{
		{Code: "glucose", Name: "Glucose", Aliases: []string{"blood sugar"}, Category: "Metabolic", StandardUnit: "mg/dL"},
		{Code: "tsh", Name: "TSH", Category: "Thyroid", StandardUnit: "mIU/L"},
	}, nil)
}

func newTestServer(t *testing.T) (*Server, *repository.MemoryLabUploadRepository, *captureQueue) {
	t.Helper()
	repo := repository.NewMemoryLabUploadRepository()
	queue := &captureQueue{}
	return New(repo, queue, testCatalog(), nil, nil, nil), repo, queue
}

func multipartUpload(t *testing.T, filename, gender string, skip bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("gender", gender))
	if skip {
		require.NoError(t, mw.WriteField("skip_verification", "true"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCreateUploadEnqueuesJob(t *testing.T) {
	srv, repo, queue := newTestServer(t)
	router := srv.Router()

	body, contentType := multipartUpload(t, "labs.pdf", "female", true)
	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp createUploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(constants.UploadStatusPending), resp.Status)

	stored, err := repo.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "labs.pdf", stored.Filename)
	assert.Equal(t, "female", stored.Gender)
	assert.True(t, stored.SkipVerification)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, resp.ID, queue.jobs[0].UploadID)
	assert.NotEmpty(t, queue.jobs[0].Document)
}

func TestCreateUploadRejectsNonPDF(t *testing.T) {
	srv, _, queue := newTestServer(t)
	router := srv.Router()

	body, contentType := multipartUpload(t, "labs.docx", "male", false)
	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, queue.jobs)
}

func TestGetUpload(t *testing.T) {
	srv, repo, _ := newTestServer(t)
	router := srv.Router()

	id := uuid.New()
	require.NoError(t, repo.Create(context.Background(), &entity.LabUpload{
		ID:        id,
		Status:    string(constants.UploadStatusComplete),
		Gender:    "male",
		CreatedAt: time.Now().UTC(),
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/uploads/"+id.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got entity.LabUpload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, string(constants.UploadStatusComplete), got.Status)
}

func TestGetUploadNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/v1/uploads/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUploadDebug(t *testing.T) {
	srv, repo, _ := newTestServer(t)
	router := srv.Router()

	id := uuid.New()
	require.NoError(t, repo.Create(context.Background(), &entity.LabUpload{
		ID:        id,
		Status:    string(constants.UploadStatusComplete),
		DebugInfo: json.RawMessage(`{"stage1":{"model":"gemini-2.5-flash"}}`),
		CreatedAt: time.Now().UTC(),
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/uploads/"+id.String()+"/debug", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"stage1":{"model":"gemini-2.5-flash"}}`, rec.Body.String())
}

func TestDeleteUpload(t *testing.T) {
	srv, repo, _ := newTestServer(t)
	router := srv.Router()

	id := uuid.New()
	require.NoError(t, repo.Create(context.Background(), &entity.LabUpload{
		ID:        id,
		Status:    string(constants.UploadStatusPending),
		CreatedAt: time.Now().UTC(),
	}))

	req := httptest.NewRequest(http.MethodDelete, "/v1/uploads/"+id.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := repo.GetByID(context.Background(), id)
	assert.Error(t, err)
}

func TestSearchStandards(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/v1/standards/search?q=sugar", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []standardSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "glucose", got[0].Code)
}

func TestSearchStandardsRequiresQuery(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/v1/standards/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCategories(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/v1/standards/categories", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"Metabolic", "Thyroid"}, got)
}
