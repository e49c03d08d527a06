package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicore/internal/config"
	"clinicore/internal/infrastructure"
	"clinicore/internal/report"
)

func testApp(t *testing.T) *Application {
	t.Helper()
	infrastructure.ResetLoggerForTesting()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Storage.DataDir = dir
	cfg.Storage.ArtifactsDir = filepath.Join(dir, "artifacts")
	cfg.Storage.DatabasePath = filepath.Join(dir, "reports.db")
	require.NoError(t, cfg.EnsureDirectories())

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Store.Close() })
	return a
}

func TestHealthEndpoint(t *testing.T) {
	a := testApp(t)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestReadinessEndpoint(t *testing.T) {
	a := testApp(t)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReportsRequireOwner(t *testing.T) {
	a := testApp(t)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReportLifecycleOverHTTP(t *testing.T) {
	a := testApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Queue.Start(ctx)
	defer a.Queue.Stop(5 * time.Second)

	payload, err := json.Marshal(map[string]interface{}{
		"title":    "Diagnósticos do Semestre",
		"type":     "medical",
		"category": "diagnoses",
		"format":   "csv",
		"filters": map[string]interface{}{
			"date_from": "2026-01-01",
			"date_to":   "2026-06-30",
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Owner-ID", "dr-souza")

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var created report.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	// Poll until the worker finishes.
	deadline := time.Now().Add(10 * time.Second)
	var got report.Report
	for {
		getReq := httptest.NewRequest(http.MethodGet, "/api/reports/"+created.ID, nil)
		getReq.Header.Set("X-Owner-ID", "dr-souza")
		getRec := httptest.NewRecorder()
		a.Router.ServeHTTP(getRec, getReq)
		require.Equal(t, http.StatusOK, getRec.Code)
		require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &got))

		if got.Status == report.StatusCompleted || got.Status == report.StatusFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("report stuck in status %s", got.Status)
		}
		time.Sleep(50 * time.Millisecond)
	}
	require.Equal(t, report.StatusCompleted, got.Status)

	dlReq := httptest.NewRequest(http.MethodGet, "/api/reports/"+created.ID+"/download", nil)
	dlReq.Header.Set("X-Owner-ID", "dr-souza")
	dlRec := httptest.NewRecorder()
	a.Router.ServeHTTP(dlRec, dlReq)

	require.Equal(t, http.StatusOK, dlRec.Code)
	assert.Contains(t, dlRec.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, dlRec.Body.Len())
}

func TestExportEndpoint(t *testing.T) {
	a := testApp(t)

	payload := `{"category":"revenue","format":"csv","filters":{"date_from":"2025-01-01","date_to":"2025-06-30"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/export", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Owner-ID", "dr-souza")

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}

func TestUnsupportedFormatIsProblemJSON(t *testing.T) {
	a := testApp(t)

	payload := `{"category":"patients","type":"statistical","format":"docx"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Owner-ID", "dr-souza")

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}
