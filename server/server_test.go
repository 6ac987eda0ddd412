package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ot-clark/llm-rank-diagnostic/analyzer"
	"github.com/ot-clark/llm-rank-diagnostic/config"
	"github.com/ot-clark/llm-rank-diagnostic/crawler"
	"github.com/ot-clark/llm-rank-diagnostic/history"
	"github.com/ot-clark/llm-rank-diagnostic/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServer(t *testing.T, withHistory bool) *Server {
	t.Helper()

	dataDir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dataDir
	cfg.HistoryPath = filepath.Join(dataDir, "history.db")
	cfg.RateLimit.PerSecond = 1000
	cfg.RateLimit.Burst = 1000

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	an, err := analyzer.New(dataDir, analyzer.WithLogger(logger))
	if err != nil {
		t.Fatalf("analyzer.New: %v", err)
	}
	t.Cleanup(func() { an.Shutdown() })

	var hist *history.DB
	if withHistory {
		hist, err = history.Open(cfg.HistoryPath)
		if err != nil {
			t.Fatalf("history.Open: %v", err)
		}
		t.Cleanup(func() { hist.Close() })
	}

	cr := crawler.New(an.Fetcher(), an, crawler.WithLogger(logger), crawler.WithMaxPages(2))
	usage := logging.Initialize(dataDir)

	return New(cfg, an, cr, hist, usage, logger)
}

func doJSON(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t, false)

	w := doJSON(t, s, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("body = %v", resp)
	}
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	s := testServer(t, false)

	tests := []struct {
		name string
		body []byte
	}{
		{"missing url", []byte(`{}`)},
		{"not a url", []byte(`{"url": "not a url"}`)},
		{"broken json", []byte(`{"url":`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/api/analyze", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestAnalyzeStoresRun(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Page</title></head><body><h1>Page</h1><main>text</main></body></html>`))
	}))
	defer page.Close()

	s := testServer(t, true)

	body, _ := json.Marshal(map[string]string{"url": page.URL})
	w := doJSON(t, s, http.MethodPost, "/api/analyze", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var report analyzer.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.URL != page.URL || report.ID == "" {
		t.Errorf("report = %q / %q", report.URL, report.ID)
	}

	hw := doJSON(t, s, http.MethodGet, "/api/history", nil)
	if hw.Code != http.StatusOK {
		t.Fatalf("history status = %d", hw.Code)
	}
	var listing struct {
		Runs []history.Run `json:"runs"`
	}
	if err := json.Unmarshal(hw.Body.Bytes(), &listing); err != nil {
		t.Fatal(err)
	}
	if len(listing.Runs) != 1 || listing.Runs[0].ID != report.ID {
		t.Errorf("runs = %+v, want the stored run", listing.Runs)
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	s := testServer(t, false)

	w := doJSON(t, s, http.MethodGet, "/api/history", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHistoryEmptyListsNotNull(t *testing.T) {
	s := testServer(t, true)

	w := doJSON(t, s, http.MethodGet, "/api/history?url=https://example.com/none", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"runs":[]`)) {
		t.Errorf("body = %s, want an empty array", w.Body.String())
	}
}

func TestStatisticsEndpoint(t *testing.T) {
	s := testServer(t, false)

	w := doJSON(t, s, http.MethodGet, "/api/statistics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"usage", "cache", "monthly"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("statistics missing %q section", key)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := testServer(t, false)

	w := doJSON(t, s, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := testServer(t, false)

	w := doJSON(t, s, http.MethodOptions, "/api/analyze", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS headers missing")
	}
}
