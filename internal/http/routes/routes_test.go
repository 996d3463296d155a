package routes

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/image-watermark/internal/config"
	"github.com/phambaophuc/image-watermark/internal/http/handlers"
	"github.com/phambaophuc/image-watermark/internal/metrics"
	"github.com/phambaophuc/image-watermark/internal/services/processor"
	"github.com/phambaophuc/image-watermark/internal/services/staging"
	"github.com/phambaophuc/image-watermark/internal/watermark"
	"go.uber.org/zap"
)

func newEngine(t *testing.T, mutate func(*config.Config)) *gin.Engine {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Server:    config.ServerConfig{MaxRequestSize: 1 << 20},
		Watermark: config.WatermarkConfig{Opacity: 0.4, JPEGQuality: 90, Workers: 1},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1},
		Metrics:   true,
		Debug:     true,
	}
	if mutate != nil {
		mutate(cfg)
	}
	gin.SetMode(gin.TestMode)
	metrics.Init()

	area := staging.New(filepath.Join(root, "u"), filepath.Join(root, "p"), zap.NewNop())
	if err := area.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	proc := processor.NewWatermarkProcessor(watermark.NewCompositor(watermark.Options{}, nil), 1, zap.NewNop())
	h := handlers.NewWatermarkHandler(proc, area, nil, nil, zap.NewNop(), cfg)

	return NewRouter(h, cfg, zap.NewNop()).SetupRoutes()
}

func TestRoutesServeIndexAndMetrics(t *testing.T) {
	r := newEngine(t, nil)

	for _, path := range []string{"/", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", path, w.Code)
		}
	}
}

func TestMetricsRouteDisabled(t *testing.T) {
	r := newEngine(t, func(c *config.Config) { c.Metrics = false })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /metrics = %d", w.Code)
	}
}

func TestUploadIsRateLimited(t *testing.T) {
	r := newEngine(t, nil)

	codes := make([]int, 2)
	for i := range codes {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
		req.RemoteAddr = "192.0.2.1:5000"
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusSeeOther || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v", codes)
	}
}

func TestUploadBodyLimit(t *testing.T) {
	r := newEngine(t, func(c *config.Config) { c.Server.MaxRequestSize = 16 })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 64)))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestJobsUnavailableWithoutQueue(t *testing.T) {
	r := newEngine(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader("")))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
}
