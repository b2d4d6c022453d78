package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// newTestChain はサーバーと同じ順序でミドルウェアを積んだchi.Routerを返す。
func newTestChain(logBuf *bytes.Buffer, rec HTTPRecorder) *chi.Mux {
	logger := slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(NewRecoveryMiddleware())
	r.Use(NewSecurityHeadersMiddleware())
	r.Use(NewCORSMiddleware("*"))
	r.Use(NewLoggingMiddleware(logger))
	r.Use(NewMetricsMiddleware(rec))
	return r
}

// TestRouterIntegration_PanicReturnsUnifiedError は
// ハンドラーのpanicが統一フォーマットの500になることを検証する。
func TestRouterIntegration_PanicReturnsUnifiedError(t *testing.T) {
	var buf bytes.Buffer
	rec := &fakeHTTPRecorder{}
	r := newTestChain(&buf, rec)
	r.Get("/api/users", func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("security headers missing on panic response: %q", got)
	}

	// recoveryはloggingとmetricsより外側にある
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
	}
}

// TestRouterIntegration_NormalRequest は通常リクエストでヘッダー・ログ・メトリクスが揃うことを検証する。
func TestRouterIntegration_NormalRequest(t *testing.T) {
	var buf bytes.Buffer
	rec := &fakeHTTPRecorder{}
	r := newTestChain(&buf, rec)
	r.Delete("/api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"acknowledged":true,"deletedCount":1}`))
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/users/u-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Error("expected request_id in log entry")
	}

	if len(rec.requests) != 1 || rec.requests[0].route != "/api/users/{id}" {
		t.Errorf("recorded %+v, want one DELETE /api/users/{id}", rec.requests)
	}
}

// TestRouterIntegration_Preflight はプリフライトがハンドラー未登録でも204になることを検証する。
func TestRouterIntegration_Preflight(t *testing.T) {
	var buf bytes.Buffer
	r := newTestChain(&buf, &fakeHTTPRecorder{})
	r.Put("/api/users/{id}", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodOptions, "/api/users/u-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}
