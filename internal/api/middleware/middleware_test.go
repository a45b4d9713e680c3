package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"recipe-planner/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/health", ok)
	r.GET("/api/v1/thing", ok)
	r.POST("/api/v1/thing", ok)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false} {
		if got, _, _ := rl.Allow("a"); got != want {
			t.Errorf("request %d allowed = %v, want %v", i, got, want)
		}
	}
	if ok, _, _ := rl.Allow("b"); !ok {
		t.Error("other client should have its own bucket")
	}

	now = now.Add(30 * time.Second)
	ok, remaining, _ := rl.Allow("a")
	if !ok || remaining != 0 {
		t.Errorf("after refill allowed = %v remaining = %d", ok, remaining)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newEngine(RateLimit(1, time.Minute))
	before := testutil.ToFloat64(metrics.RateLimited)

	w := do(r, http.MethodGet, "/api/v1/thing", "")
	if w.Code != http.StatusOK || w.Header().Get("X-RateLimit-Limit") != "1" || w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("first request code = %d headers = %v", w.Code, w.Header())
	}

	w = do(r, http.MethodGet, "/api/v1/thing", "")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" || !strings.Contains(w.Body.String(), "TOO_MANY_REQUESTS") {
		t.Errorf("second request code = %d headers = %v", w.Code, w.Header())
	}
	if got := testutil.ToFloat64(metrics.RateLimited) - before; got != 1 {
		t.Errorf("rate limited counter delta = %v, want 1", got)
	}

	for i := 0; i < 3; i++ {
		if w := do(r, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
			t.Errorf("health check should not be limited, got %d", w.Code)
		}
	}
}

func TestDeduplication(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	r := newEngine(d.Middleware())

	if w := do(r, http.MethodPost, "/api/v1/thing", `{"a":1}`); w.Code != http.StatusOK {
		t.Fatalf("first POST = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/thing", `{"a":1}`); w.Code != http.StatusTooManyRequests {
		t.Errorf("duplicate POST = %d, want 429", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/thing", `{"a":2}`); w.Code != http.StatusOK {
		t.Errorf("different body = %d, want 200", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/thing", ""); w.Code != http.StatusOK {
		t.Errorf("GET = %d, want 200", w.Code)
	}
}

func TestBodySizeLimit(t *testing.T) {
	r := newEngine(BodySizeLimit(4))
	if w := do(r, http.MethodPost, "/api/v1/thing", "too large"); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("code = %d, want 413", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/thing", "ok"); w.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	w := do(newEngine(SecurityHeaders()), http.MethodGet, "/api/v1/thing", "")
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRecovery(t *testing.T) {
	w := do(newEngine(Recovery(), Logger()), http.MethodGet, "/panic", "")
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "INTERNAL_ERROR") {
		t.Errorf("code = %d body = %s", w.Code, w.Body.String())
	}
}

func TestTimeout(t *testing.T) {
	w := do(newEngine(Timeout(10*time.Millisecond)), http.MethodGet, "/slow", "")
	if w.Code != http.StatusGatewayTimeout || !strings.Contains(w.Body.String(), `"code":"GATEWAY_TIMEOUT"`) {
		t.Errorf("code = %d body = %s, want 504 GATEWAY_TIMEOUT", w.Code, w.Body.String())
	}
}
