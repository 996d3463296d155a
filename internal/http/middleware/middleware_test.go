package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(1, 2, 16, time.Minute)

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst of 2 not allowed")
	}
	if l.Allow("a") {
		t.Fatalf("third request within the burst window allowed")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must not share a bucket")
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewMemoryLimiter(0.001, 1, 16, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	codes := make([]int, 2)
	for i := range codes {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v", codes)
	}
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		c.String(http.StatusOK, "ok")
	})

	tests := []struct {
		name          string
		body          string
		contentLength int64
		want          int
	}{
		{"small", "1234", 4, http.StatusOK},
		{"announced too large", strings.Repeat("x", 20), 20, http.StatusRequestEntityTooLarge},
		{"chunked too large", strings.Repeat("x", 20), -1, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestErrorHandlerRecovers(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop()))
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"success":false`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{"X-Frame-Options", "X-Content-Type-Options", "Content-Security-Policy"} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}

func TestMetricsDoesNotBreakChain(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/x/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x/42", nil))
	if w.Code != http.StatusOK || w.Body.String() != "42" {
		t.Fatalf("response = %d %q", w.Code, w.Body.String())
	}
}
