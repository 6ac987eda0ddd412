package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ot-clark/llm-rank-diagnostic/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiterEnforcesBucket(t *testing.T) {
	router := gin.New()
	router.Use(NewRateLimiter(0.001, 2).RateLimit())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if w := serve(router, http.MethodGet, "/", "10.0.0.1:1000"); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}
	if w := serve(router, http.MethodGet, "/", "10.0.0.1:1000"); w.Code != http.StatusTooManyRequests {
		t.Errorf("exhausted bucket status = %d, want 429", w.Code)
	}

	// Other clients have their own bucket.
	if w := serve(router, http.MethodGet, "/", "10.0.0.2:1000"); w.Code != http.StatusOK {
		t.Errorf("fresh client status = %d, want 200", w.Code)
	}
}

func TestRateLimiterRefills(t *testing.T) {
	router := gin.New()
	router.Use(NewRateLimiter(100, 1).RateLimit())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := serve(router, http.MethodGet, "/", "10.0.0.3:1000"); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	time.Sleep(50 * time.Millisecond)
	if w := serve(router, http.MethodGet, "/", "10.0.0.3:1000"); w.Code != http.StatusOK {
		t.Errorf("refilled bucket status = %d, want 200", w.Code)
	}
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.idleTTL = 10 * time.Millisecond

	if !rl.allow("10.0.0.4") {
		t.Fatal("first request should pass")
	}
	time.Sleep(20 * time.Millisecond)

	rl.mu.Lock()
	rl.lastSweep = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.allow("10.0.0.5")

	rl.mu.Lock()
	_, stale := rl.buckets["10.0.0.4"]
	total := len(rl.buckets)
	rl.mu.Unlock()
	if stale {
		t.Error("idle bucket survived the sweep")
	}
	if total != 1 {
		t.Errorf("buckets = %d, want only the active client", total)
	}
}

func TestErrorHandlerRecoversPanics(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil))))
	router.GET("/boom", func(c *gin.Context) { panic("handler exploded") })

	w := serve(router, http.MethodGet, "/boom", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unexpected error") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestStatsMiddlewareTracksRequests(t *testing.T) {
	usage := logging.Initialize(t.TempDir())

	router := gin.New()
	router.Use(StatsMiddleware(usage))
	router.POST("/api/analyze", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/api/crawl", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	router.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/api/health", "10.1.0.1:1000")
	serve(router, http.MethodPost, "/api/analyze", "10.1.0.2:1000")
	serve(router, http.MethodPost, "/api/crawl", "10.1.0.2:1000")

	if got := usage.GetUniqueVisitorsCount(); got != 2 {
		t.Errorf("unique visitors = %d, want 2", got)
	}
	if got := usage.TotalRequests(); got != 2 {
		t.Errorf("total requests = %d, want the two POSTs", got)
	}
	if rate := usage.GetErrorRate(); rate != 50 {
		t.Errorf("error rate = %f, want 50 after one failed crawl", rate)
	}
}
