package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignatureVerification(t *testing.T) {
	const secret = "sandbox-secret"
	body := []byte(`{"transaction_id":"tx-1","status":"settled"}`)

	handler := SignatureVerification(secret, "/api/v1/payments/notifications", testLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	t.Run("valid signature passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/notifications", bytes.NewReader(body))
		req.Header.Set(SignatureHeader, Sign(body, secret))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/notifications", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/notifications", bytes.NewReader([]byte(`{"status":"settled","transaction_id":"tx-2"}`)))
		req.Header.Set(SignatureHeader, Sign(body, secret))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("other paths bypass verification", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}
