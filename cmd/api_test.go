package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/healthqa-cli/internal/config"
	"github.com/sells-group/healthqa-cli/internal/model"
	"github.com/sells-group/healthqa-cli/internal/store"
)

var apiEvalTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// stubStore backs handler tests with canned data.
type stubStore struct {
	snapshot  *model.Snapshot
	findings  []model.Finding
	metrics   []model.Metric
	updateErr error

	lastFilter store.FindingFilter
	inserted   []model.Finding
}

func (s *stubStore) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	if s.snapshot == nil {
		return model.NewSnapshot(nil, nil, nil, nil, nil), nil
	}
	return s.snapshot, nil
}

func (s *stubStore) CreateRun(ctx context.Context, evalTime time.Time) (*model.CheckRun, error) {
	return &model.CheckRun{ID: "run-1", Status: model.RunStateRunning, EvaluationTime: evalTime}, nil
}

func (s *stubStore) InsertFindings(ctx context.Context, runID string, findings []model.Finding) error {
	s.inserted = append(s.inserted, findings...)
	return nil
}

func (s *stubStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	return nil
}

func (s *stubStore) FailRun(ctx context.Context, runID string, reason string) error { return nil }

func (s *stubStore) ListFindings(ctx context.Context, filter store.FindingFilter) ([]model.Finding, error) {
	s.lastFilter = filter
	return s.findings, nil
}

func (s *stubStore) OpenFindingKeys(ctx context.Context) (map[model.FindingKey]struct{}, error) {
	return map[model.FindingKey]struct{}{}, nil
}

func (s *stubStore) UpdateFindingStatus(ctx context.Context, findingID string, status model.FindingStatus, assignedTo, notes *string, resolvedAt *time.Time) error {
	return s.updateErr
}

func (s *stubStore) InsertMetrics(ctx context.Context, metrics []model.Metric) error { return nil }

func (s *stubStore) ListMetrics(ctx context.Context, filter store.MetricFilter) ([]model.Metric, error) {
	return s.metrics, nil
}

func (s *stubStore) Migrate(ctx context.Context) error { return nil }
func (s *stubStore) Close() error                      { return nil }

func testServerConfig() *config.Config {
	return &config.Config{
		Check: config.CheckConfig{
			Parallelism:             1,
			StaleClaimDays:          30,
			HighAmountThreshold:     50000,
			HighFrequencyCount:      50,
			HighFrequencyWindowDays: 365,
			StaleRecordDays:         730,
			DocumentationGraceDays:  7,
			BillingGraceDays:        14,
		},
		Server: config.ServerConfig{Port: 8080, AllowedOrigins: []string{"*"}},
	}
}

func TestAPI_Healthz(t *testing.T) {
	router := newAPIRouter(&stubStore{}, testServerConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPI_ListFindings_PassesFilters(t *testing.T) {
	st := &stubStore{findings: []model.Finding{{
		ID:        "f-1",
		CheckType: model.CheckCredential,
		TableName: "providers",
		RecordID:  "PRV-1",
		IssueType: model.IssueExpiredLicense,
		Severity:  model.SeverityCritical,
		Status:    model.FindingStatusOpen,
	}}}
	router := newAPIRouter(st, testServerConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/findings?severity=CRITICAL&status=OPEN&limit=10", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.SeverityCritical, st.lastFilter.Severity)
	assert.Equal(t, model.FindingStatusOpen, st.lastFilter.Status)
	assert.Equal(t, 10, st.lastFilter.Limit)

	var out []model.Finding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "f-1", out[0].ID)
}

func TestAPI_ListFindings_EmptyIsArray(t *testing.T) {
	router := newAPIRouter(&stubStore{}, testServerConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/findings", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestAPI_ResolveFinding(t *testing.T) {
	router := newAPIRouter(&stubStore{}, testServerConfig())

	body := strings.NewReader(`{"notes":"fixed upstream"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/findings/f-1/resolve", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"f-1","status":"RESOLVED"}`, rec.Body.String())
}

func TestAPI_ResolveFinding_NotFound(t *testing.T) {
	st := &stubStore{updateErr: eris.New("finding not found: nope")}
	router := newAPIRouter(st, testServerConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/findings/nope/resolve", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ResolveFinding_InvalidStatus(t *testing.T) {
	router := newAPIRouter(&stubStore{}, testServerConfig())

	body := strings.NewReader(`{"status":"CLOSED"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/findings/f-1/resolve", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ListMetrics(t *testing.T) {
	st := &stubStore{metrics: []model.Metric{{
		MetricDate:  apiEvalTime,
		MetricName:  "claims_total",
		MetricValue: 42,
		Category:    model.MetricCategoryVolume,
	}}}
	router := newAPIRouter(st, testServerConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics?category=volume", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var out []model.Metric
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, 42.0, out[0].MetricValue)
}

func TestAPI_ListMetrics_BadSince(t *testing.T) {
	router := newAPIRouter(&stubStore{}, testServerConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics?since=yesterday", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RunChecks(t *testing.T) {
	expired := model.Provider{
		ProviderID:        "PRV-1",
		ProviderName:      strPtrTest("Dr. Smith"),
		NPINumber:         strPtrTest("1234567890"),
		LicenseNumber:     strPtrTest("LIC-1"),
		LicenseExpiryDate: timePtrTest(apiEvalTime.AddDate(0, 0, -10)),
		Specialty:         strPtrTest("cardiology"),
		ContactEmail:      strPtrTest("dr@clinic.example.com"),
		IsActive:          true,
	}
	st := &stubStore{snapshot: model.NewSnapshot(nil, []model.Provider{expired}, nil, nil, nil)}
	router := newAPIRouter(st, testServerConfig())

	body := strings.NewReader(`{"as_of":"2026-06-01T12:00:00Z"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checks/run", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var summary model.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, "FAIL", summary.Status)
	assert.Equal(t, 10, summary.ChecksRun)
	assert.Equal(t, 1, summary.TotalFindings)
	require.Len(t, st.inserted, 1)
	assert.Equal(t, model.IssueExpiredLicense, st.inserted[0].IssueType)
}

func TestAPI_RunChecks_DryRun(t *testing.T) {
	st := &stubStore{}
	router := newAPIRouter(st, testServerConfig())

	body := strings.NewReader(`{"dry_run":true}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checks/run", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var summary model.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "PASS", summary.Status)
	assert.Empty(t, st.inserted)
}

func strPtrTest(s string) *string { return &s }

func timePtrTest(t time.Time) *time.Time { return &t }
