package middleware

import (
	"net/http/httptest"
	"testing"
)

func TestEnsureRequestID(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Request-Id", "abc-123")
	if got := ensureRequestID(r); got != "abc-123" {
		t.Errorf("passthrough = %q", got)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Correlation-Id", " corr-9 ")
	if got := ensureRequestID(r); got != "corr-9" {
		t.Errorf("correlation fallback = %q", got)
	}

	r = httptest.NewRequest("GET", "/", nil)
	generated := ensureRequestID(r)
	if len(generated) != 32 {
		t.Errorf("generated id = %q, want 32 hex chars", generated)
	}
	if other := ensureRequestID(r); other == generated {
		t.Error("two generated ids collided")
	}
}
