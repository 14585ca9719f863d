package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type countingExports struct {
	formats []string
}

func (c *countingExports) LeadExported(format string) {
	c.formats = append(c.formats, format)
}

type testServer struct {
	handler http.Handler
	repo    *database.MemoryLeadRepository
	exports *countingExports
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := database.NewMemoryLeadRepository()
	users := database.NewMemoryUserRepository(entity.UserRef{ID: "u1", Name: "Owner", Email: "owner@acme.io"})
	clock := func() time.Time { return testNow }

	lifecycle := usecase.NewLeadLifecycleUseCase(repo, users, nil, nil, time.UTC, nil)
	lifecycle.Now = clock
	notes := usecase.NewAddNoteUseCase(repo, users, nil)
	notes.Now = clock
	analytics := usecase.NewAnalyticsUseCase(repo, time.UTC, nil)
	analytics.Now = clock
	exports := &countingExports{}

	h := NewRouter(RouterConfig{
		Leads:          NewLeadHandler(lifecycle, notes, nil),
		Analytics:      NewAnalyticsHandler(analytics, exports, nil),
		Health:         NewHealthHandler(nil, nil, nil),
		Limiter:        middleware.NewMemoryLimiter(1000, time.Minute),
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	return &testServer{handler: h, repo: repo, exports: exports}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserHeader, "u1")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type leadEnvelope struct {
	Success bool         `json:"success"`
	Count   int          `json:"count"`
	Data    *entity.Lead `json:"data"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) create(t *testing.T, body map[string]interface{}) *entity.Lead {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/leads", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[leadEnvelope](t, rec).Data
}

func TestCreateLead(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/leads", map[string]interface{}{
		"name":         "Ada",
		"email":        " ADA@Acme.io ",
		"followUpDate": "2024-03-12",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decode[leadEnvelope](t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "ada@acme.io", env.Data.Email)
	assert.Equal(t, entity.StatusNew, env.Data.Status)
	assert.Equal(t, "Owner", env.Data.CreatedBy.Name)
	require.Len(t, env.Data.ActivityLog, 1)
	assert.Equal(t, `Lead "Ada" created`, env.Data.ActivityLog[0].Details)
}

func TestCreateLead_ValidationError(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/leads", map[string]interface{}{"email": "nope", "status": "Won"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error)
	assert.Len(t, resp.Fields, 3)
}

func TestCreateLead_InvalidJSON(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/leads", "{broken")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_JSON", decode[ErrorResponse](t, rec).Error)
}

func TestAPIRequiresUser(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()

	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leads", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListLeads(t *testing.T) {
	s := newTestServer(t)
	s.create(t, map[string]interface{}{"name": "Bob", "email": "bob@x.io", "priority": "Low"})
	s.create(t, map[string]interface{}{"name": "Carol", "email": "carol@x.io", "priority": "Urgent"})
	s.create(t, map[string]interface{}{"name": "Dan", "email": "dan@x.io", "status": "Lost"})

	rec := s.do(t, http.MethodGet, "/api/leads?sortBy=priority&status=New", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[struct {
		Success bool           `json:"success"`
		Count   int            `json:"count"`
		Data    []*entity.Lead `json:"data"`
	}](t, rec)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Carol", resp.Data[0].Name)
	assert.Equal(t, "Bob", resp.Data[1].Name)
}

func TestListLeads_UnknownFilter(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/leads?status=Won", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUpdateDeleteLead(t *testing.T) {
	s := newTestServer(t)
	lead := s.create(t, map[string]interface{}{"name": "Ada", "email": "ada@x.io"})

	rec := s.do(t, http.MethodGet, "/api/leads/"+lead.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/leads/"+lead.ID, map[string]interface{}{"status": "Qualified", "value": 500})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[leadEnvelope](t, rec).Data
	assert.Equal(t, entity.StatusQualified, updated.Status)
	assert.Equal(t, 500.0, updated.Value)
	assert.Len(t, updated.ActivityLog, 2)

	rec = s.do(t, http.MethodDelete, "/api/leads/"+lead.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/leads/"+lead.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodDelete, "/api/leads/"+lead.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddNote(t *testing.T) {
	s := newTestServer(t)
	lead := s.create(t, map[string]interface{}{"name": "Ada", "email": "ada@x.io"})

	rec := s.do(t, http.MethodPost, "/api/leads/"+lead.ID+"/notes", AddNoteRequest{Content: "  called, no answer "})

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[leadEnvelope](t, rec).Data
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "called, no answer", got.Notes[0].Content)
	assert.Equal(t, "Owner", got.Notes[0].CreatedBy.Name)
	assert.Len(t, got.ActivityLog, 1)

	rec = s.do(t, http.MethodPost, "/api/leads/"+lead.ID+"/notes", AddNoteRequest{Content: " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	s := newTestServer(t)
	lead := s.create(t, map[string]interface{}{"name": "Ada", "email": "ada@x.io"})

	rec := s.do(t, http.MethodPatch, "/api/leads/"+lead.ID+"/status", UpdateStatusRequest{Status: "Contacted"})

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[leadEnvelope](t, rec).Data
	assert.Equal(t, entity.StatusContacted, got.Status)
	require.NotNil(t, got.LastContactedAt)
	assert.Equal(t, "New → Contacted", got.ActivityLog[len(got.ActivityLog)-1].Details)

	rec = s.do(t, http.MethodPatch, "/api/leads/missing/status", UpdateStatusRequest{Status: "Contacted"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)
	s.create(t, map[string]interface{}{"name": "Ada", "email": "ada@x.io", "status": "Converted", "value": 300})
	s.create(t, map[string]interface{}{"name": "Bob", "email": "bob@x.io", "value": 100})

	rec := s.do(t, http.MethodGet, "/api/analytics/dashboard", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[struct {
		Success bool                     `json:"success"`
		Data    usecase.AnalyticsSummary `json:"data"`
	}](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Data.TotalLeads)
	assert.Equal(t, 50.0, resp.Data.ConversionRate)
	assert.Equal(t, 400.0, resp.Data.PipelineValue)
	assert.Equal(t, 300.0, resp.Data.ConvertedValue)
	assert.Len(t, resp.Data.MonthlyLeads, 6)
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	s.create(t, map[string]interface{}{"name": "Ada", "email": "ada@x.io", "company": "Acme, Inc."})

	rec := s.do(t, http.MethodGet, "/api/analytics/export", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="leads-export.csv"`, rec.Header().Get("Content-Disposition"))
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, usecase.ExportHeader, records[0])
	assert.Equal(t, "Acme, Inc.", records[1][3])
	assert.Equal(t, "3/10/2024", records[1][9])
	assert.Equal(t, []string{"csv"}, s.exports.formats)
}

func TestExportXLSX(t *testing.T) {
	s := newTestServer(t)
	s.create(t, map[string]interface{}{"name": "Ada", "email": "ada@x.io"})

	rec := s.do(t, http.MethodGet, "/api/analytics/export?format=xlsx", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="leads-export.xlsx"`, rec.Header().Get("Content-Disposition"))
	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	rows, err := f.GetRows("Leads")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestExport_UnsupportedFormat(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/analytics/export?format=pdf", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.exports.formats)
}

type failingRepo struct {
	usecase.LeadRepository
}

func (failingRepo) Stream(ctx context.Context, q entity.LeadQuery, order entity.Ordering, fn func(*entity.Lead) error) error {
	return errors.New("connection reset")
}

func TestExport_StoreFailureBeforeAnyByte(t *testing.T) {
	analytics := usecase.NewAnalyticsUseCase(failingRepo{}, time.UTC, nil)
	h := NewAnalyticsHandler(analytics, nil, nil)
	rec := httptest.NewRecorder()

	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/export", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "STORE_ERROR", decode[ErrorResponse](t, rec).Error)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestHealth_NothingConfigured(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()

	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "not configured", resp.Dependencies["redis"])
}
