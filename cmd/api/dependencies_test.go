package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/service"
	"github.com/FACorreiaa/statement-extractor/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "localhost",
			Port:           8080,
			AllowedOrigins: []string{"https://app.example.com"},
			MaxUploadMB:    1,
			RequestTimeout: 30 * time.Second,
		},
		Observability: config.ObservabilityConfig{MetricsEnabled: true},
		Pipeline: config.PipelineConfig{
			MaxPages:          200,
			DiagnosticLogPath: filepath.Join(dir, "diag", "diagnostics.csv"),
			LowConfidence:     0.6,
			EnrichThreshold:   0.5,
		},
		Storage: config.StorageConfig{
			LocalPath: filepath.Join(dir, "uploads"),
			RetainFor: time.Hour,
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitDependencies_WithoutDatabase(t *testing.T) {
	cfg := testConfig(t)

	deps, err := InitDependencies(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(deps.Cleanup)

	assert.Nil(t, deps.DB)
	assert.Nil(t, deps.StatementRepo)
	assert.Nil(t, deps.OverrideStore)
	assert.NotNil(t, deps.Metrics)
	assert.NotNil(t, deps.Diagnostics)
	assert.NotNil(t, deps.StatementSvc)
	assert.NotNil(t, deps.Scheduler)
	assert.FileExists(t, cfg.Pipeline.DiagnosticLogPath)
}

func TestInitDependencies_BadProfiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.ProfilesPath = filepath.Join(t.TempDir(), "missing.json")

	_, err := InitDependencies(context.Background(), cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bank profiles")
}

func TestNewEnricher_Disabled(t *testing.T) {
	en, err := newEnricher(context.Background(), config.GeminiConfig{}, testLogger())
	require.NoError(t, err)
	assert.Nil(t, en)
}

func TestRoutes(t *testing.T) {
	deps, err := InitDependencies(context.Background(), testConfig(t), testLogger())
	require.NoError(t, err)
	t.Cleanup(deps.Cleanup)

	srv := httptest.NewServer(NewHTTPServer(deps.Config, deps).Handler)
	t.Cleanup(srv.Close)

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{name: "health", path: "/healthz", status: http.StatusOK, body: `"status":"ok"`},
		{name: "metrics", path: "/metrics", status: http.StatusOK, body: "go_goroutines"},
		{name: "lookup needs persistence", path: "/v1/statements/abc", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				data, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Contains(t, string(data), tt.body)
			}
		})
	}
}

func TestRoutes_ExtractEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	deps, err := InitDependencies(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(deps.Cleanup)

	srv := httptest.NewServer(NewHTTPServer(cfg, deps).Handler)
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "april.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Date,Description,Debit,Credit,Balance\n" +
		"01/04/2024,Salary Credit,,50000.00,50000.00\n" +
		"02/04/2024,Grocery Store Purchase,1200.00,,48800.00\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/statements", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Origin", "https://app.example.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	var out service.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, service.StatusSuccess, out.Status)
	assert.Len(t, out.Transactions, 2)

	// Uploads are removed once processed unless retention is on.
	entries, err := os.ReadDir(cfg.Storage.LocalPath)
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, e.IsDir() || strings.HasPrefix(e.Name(), "."), "leftover upload %s", e.Name())
	}
}
