package middleware

import (
	"net/http"
	"net/http/httptest"
	"staytax/pkg/logger"
	"testing"
	"time"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Service: "test"})
}

func TestClientRateLimiter_FixedWindow(t *testing.T) {
	limiter := NewClientRateLimiter(3, time.Minute, nil, testLogger())
	defer limiter.Stop()

	now := time.Now()
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Error("request over the limit should be rejected")
	}

	// Other clients are unaffected.
	if !limiter.Allow("10.0.0.2") {
		t.Error("different client should be allowed")
	}

	// A new window resets the count.
	now = now.Add(time.Minute)
	if !limiter.Allow("10.0.0.1") {
		t.Error("request in a fresh window should be allowed")
	}
}

func TestClientRateLimiter_EmptyKeyBypasses(t *testing.T) {
	limiter := NewClientRateLimiter(1, time.Minute, nil, testLogger())
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		if !limiter.Allow("") {
			t.Fatal("empty key must never be limited")
		}
	}
}

func TestClientRateLimit_Middleware(t *testing.T) {
	limiter := NewClientRateLimiter(1, time.Minute, nil, testLogger())
	defer limiter.Stop()

	handler := ClientRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
	req.RemoteAddr = "192.0.2.1:4242"
	handler.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second request: expected 429, got %d", second.Code)
	}
}

func TestDefaultClientExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:1234"

	if got := DefaultClientExtractor(req); got != "192.0.2.7" {
		t.Errorf("expected remote host, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := DefaultClientExtractor(req); got != "203.0.113.9" {
		t.Errorf("expected first forwarded entry, got %q", got)
	}
}
