package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "salespulse/internal/errors"
	"salespulse/internal/ingest"
	"salespulse/internal/services"
	"salespulse/pkg/contracts/domain"
)

type mockSessionService struct {
	mock.Mock
}

func (m *mockSessionService) Ingest(ctx context.Context, r io.Reader, format ingest.Format, filename string) (*services.Session, error) {
	args := m.Called(ctx, r, format, filename)
	if s := args.Get(0); s != nil {
		return s.(*services.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSessionService) Profile(ctx context.Context, id string) (*domain.ProfileSet, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*domain.ProfileSet), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionService) Clean(ctx context.Context, id string) (*domain.CleaningReport, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*domain.CleaningReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionService) Analyze(ctx context.Context, id string) (*domain.InsightSet, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*domain.InsightSet), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionService) Chart(ctx context.Context, id string, spec domain.ChartSpec) (*domain.ChartDescription, error) {
	args := m.Called(ctx, id, spec)
	if s := args.Get(0); s != nil {
		return s.(*domain.ChartDescription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionService) AutoCharts(ctx context.Context, id string) ([]domain.ChartDescription, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.([]domain.ChartDescription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionService) Export(ctx context.Context, id string, format ingest.Format, w io.Writer) error {
	return m.Called(ctx, id, format, w).Error(0)
}

func (m *mockSessionService) Summary(ctx context.Context, id string) (*services.Summary, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*services.Summary), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestRouter(svc SessionServiceInterface) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewSessionHandler(svc, logger, apierrors.NewErrorHandler(logger))
	r := chi.NewRouter()
	r.Mount("/api/sessions", handler.Routes())
	return r
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestCreateSession(t *testing.T) {
	svc := &mockSessionService{}
	session := &services.Session{
		ID:        uuid.New().String(),
		Filename:  "sales.csv",
		Language:  "en",
		CreatedAt: time.Now().UTC(),
	}
	svc.On("Ingest", mock.Anything, mock.Anything, ingest.FormatCSV, "sales.csv").
		Return(session, nil)

	body, contentType := multipartUpload(t, "file", "sales.csv", "a,b\n1,2\n")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var got services.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, session.ID, got.ID)
	svc.AssertExpectations(t)
}

func TestCreateSessionFormatOverride(t *testing.T) {
	svc := &mockSessionService{}
	svc.On("Ingest", mock.Anything, mock.Anything, ingest.FormatCSV, "upload.bin").
		Return(&services.Session{ID: uuid.New().String()}, nil)

	body, contentType := multipartUpload(t, "file", "upload.bin", "a,b\n1,2\n")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions?format=csv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreateSessionMissingFilePart(t *testing.T) {
	svc := &mockSessionService{}
	body, contentType := multipartUpload(t, "wrong", "sales.csv", "a,b\n1,2\n")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, "Validation Failed", problem["title"])
	svc.AssertNotCalled(t, "Ingest")
}

func TestSessionIDMustBeUUID(t *testing.T) {
	svc := &mockSessionService{}
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/not-a-uuid/profile", nil)
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, "Validation Failed", problem["title"])
	svc.AssertNotCalled(t, "Profile")
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	svc := &mockSessionService{}
	id := uuid.New().String()
	svc.On("Profile", mock.Anything, id).
		Return(nil, apierrors.NewNotFoundError("session "+id))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/profile", nil)
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, apierrors.TypeNotFound, problem["type"])
}

func TestDeleteSession(t *testing.T) {
	svc := &mockSessionService{}
	id := uuid.New().String()
	svc.On("Delete", mock.Anything, id).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil)
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestCleanReturnsReport(t *testing.T) {
	svc := &mockSessionService{}
	id := uuid.New().String()
	svc.On("Clean", mock.Anything, id).Return(&domain.CleaningReport{
		OriginalRows:      10,
		FinalRows:         8,
		DuplicatesRemoved: 2,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/clean", nil)
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var report domain.CleaningReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.DuplicatesRemoved)
}

func TestBuildChart(t *testing.T) {
	svc := &mockSessionService{}
	id := uuid.New().String()
	spec := domain.ChartSpec{Kind: domain.ChartHistogram, Columns: []string{"price"}}
	svc.On("Chart", mock.Anything, id, spec).Return(&domain.ChartDescription{
		Kind:  domain.ChartHistogram,
		Title: "Distribution of price",
	}, nil)

	body, err := json.Marshal(spec)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/charts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var desc domain.ChartDescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &desc))
	assert.Equal(t, domain.ChartHistogram, desc.Kind)
}

func TestBuildChartRequestError(t *testing.T) {
	svc := &mockSessionService{}
	id := uuid.New().String()
	svc.On("Chart", mock.Anything, id, mock.Anything).
		Return(nil, apierrors.NewChartRequestError("histogram requires a numeric column"))

	body := []byte(`{"kind":"histogram","columns":["region"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/charts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, apierrors.TypeChartRequest, problem["type"])
	assert.Contains(t, problem["detail"], "numeric")
}

func TestBuildChartRejectsMalformedBody(t *testing.T) {
	svc := &mockSessionService{}
	id := uuid.New().String()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/charts", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Chart")
}

func TestAutoCharts(t *testing.T) {
	svc := &mockSessionService{}
	id := uuid.New().String()
	svc.On("AutoCharts", mock.Anything, id).Return([]domain.ChartDescription{
		{Kind: domain.ChartHistogram},
		{Kind: domain.ChartBar},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/charts/auto", nil)
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Charts []domain.ChartDescription `json:"charts"`
		Count  int                       `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Charts, 2)
}

func TestExportCSVHeaders(t *testing.T) {
	svc := &mockSessionService{}
	id := uuid.New().String()
	payload := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n1,2\n")...)
	svc.On("Export", mock.Anything, id, ingest.FormatCSV, mock.Anything).
		Run(func(args mock.Arguments) {
			w := args.Get(3).(io.Writer)
			w.Write(payload)
		}).
		Return(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/export", nil)
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="cleaned.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, payload, rec.Body.Bytes())
}

func TestExportXLSXHeaders(t *testing.T) {
	svc := &mockSessionService{}
	id := uuid.New().String()
	svc.On("Export", mock.Anything, id, ingest.FormatXLSX, mock.Anything).Return(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/export?format=xlsx", nil)
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="cleaned.xlsx"`, rec.Header().Get("Content-Disposition"))
}

func TestExportErrorProducesProblem(t *testing.T) {
	svc := &mockSessionService{}
	id := uuid.New().String()
	svc.On("Export", mock.Anything, id, ingest.FormatCSV, mock.Anything).
		Return(apierrors.NewNotFoundError("session " + id))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/export", nil)
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEqual(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestGetSummary(t *testing.T) {
	svc := &mockSessionService{}
	id := uuid.New().String()
	svc.On("Summary", mock.Anything, id).Return(&services.Summary{
		ID:      id,
		Rows:    100,
		Columns: 5,
		Cleaned: true,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/summary", nil)
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var sum services.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 100, sum.Rows)
	assert.True(t, sum.Cleaned)
}
