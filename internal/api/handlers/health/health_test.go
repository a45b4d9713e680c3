package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func serve(h gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestHealthCheck(t *testing.T) {
	h := NewHandler("1.2.3", nil)
	w := serve(h.HealthCheck)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"version":"1.2.3"`) {
		t.Errorf("code = %d body = %s", w.Code, w.Body.String())
	}
}

func TestReadinessCheck(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		checks map[string]Checker
		want   int
	}{
		{"no checks", nil, http.StatusOK},
		{"all ok", map[string]Checker{"database": ok, "cache": ok}, http.StatusOK},
		{"one down", map[string]Checker{"database": ok, "cache": down}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(NewHandler("test", tt.checks).ReadinessCheck)
			if w.Code != tt.want {
				t.Errorf("code = %d, want %d, body = %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestLivenessCheck(t *testing.T) {
	if w := serve(NewHandler("test", nil).LivenessCheck); w.Code != http.StatusOK {
		t.Errorf("code = %d", w.Code)
	}
}
