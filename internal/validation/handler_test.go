package validation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httputil "staytax/pkg/http"
	"staytax/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

func newTestRouter() *httprouter.Router {
	log := logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT, Service: "test"})
	router := httprouter.New()
	NewHandler(log).RegisterRoutes(router)
	return router
}

func checkUUID(t *testing.T, router *httprouter.Router, body string) (int, UUIDResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/validation/uuid", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var wrapped struct {
		Data UUIDResponse `json:"data"`
	}
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&wrapped); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return rec.Code, wrapped.Data
}

func TestCheckUUID_ValidV4(t *testing.T) {
	router := newTestRouter()

	code, resp := checkUUID(t, router, `{"value":"3f2b6c2e-8a31-4a8e-9a0e-0d8f3f6f1c55"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if !resp.Valid {
		t.Error("expected valid UUID")
	}
	if resp.Version != 4 {
		t.Errorf("version = %d, want 4", resp.Version)
	}
}

func TestCheckUUID_Invalid(t *testing.T) {
	router := newTestRouter()

	code, resp := checkUUID(t, router, `{"value":"not-a-uuid"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if resp.Valid {
		t.Error("expected invalid UUID")
	}
	if resp.Version != 0 {
		t.Errorf("version = %d, want 0 for invalid value", resp.Version)
	}
}

func TestCheckUUID_MalformedBody(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/validation/uuid", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var errResp httputil.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error == "" {
		t.Error("expected error message")
	}
}
