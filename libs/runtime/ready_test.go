package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadyz(t *testing.T) {
	mux := NewBaseMuxWithReady(
		ReadyCheck{Name: "db", Check: func(context.Context) error { return nil }},
		ReadyCheck{Name: "kafka"},
	)
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	failing := NewBaseMuxWithReady(ReadyCheck{Name: "redis", Check: func(context.Context) error {
		return errors.New("connection refused")
	}})
	rw = httptest.NewRecorder()
	failing.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), "connection refused") {
		t.Fatalf("expected failure detail in body, got %q", rw.Body.String())
	}
}
