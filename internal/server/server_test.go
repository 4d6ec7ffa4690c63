package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/database"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clk := clock.NewFixed(time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC))
	s := New(db, cfg, clk, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(s.Stop)
	return s
}

func serve(h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := serve(s.Router(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["database"] != "ok" {
		t.Errorf("database = %v, want ok", body["database"])
	}
	if body["backup"] != "disabled" {
		t.Errorf("backup = %v, want disabled", body["backup"])
	}
	if body["push"] != false {
		t.Errorf("push = %v, want false", body["push"])
	}
}

func TestPushRoutesRequireKeys(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := serve(s.Router(), http.MethodGet, "/api/push/vapid-key", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when push is disabled", rec.Code)
	}
}

func TestBackupRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, Config{AdminToken: "letmein"})
	h := s.Router()

	if rec := serve(h, http.MethodGet, "/api/backups", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}
	rec := serve(h, http.MethodGet, "/api/backups", "", "Authorization", "Bearer letmein")
	if rec.Code != http.StatusOK {
		t.Errorf("with token: status = %d, want 200", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", rec.Body.String())
	}

	rec = serve(h, http.MethodPost, "/api/backups", "", "Authorization", "Bearer letmein")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("run without storage: status = %d, want 503", rec.Code)
	}
}

func TestActivityRateLimited(t *testing.T) {
	s := newTestServer(t, Config{})
	h := s.Router()

	for i := 0; i < awardLimit; i++ {
		if rec := serve(h, http.MethodPost, "/api/activities", `{"kind": "mood"}`); rec.Code != http.StatusCreated {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}
	if rec := serve(h, http.MethodPost, "/api/activities", `{"kind": "mood"}`); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestSweeperRefreshesTasks(t *testing.T) {
	s := newTestServer(t, Config{})
	h := s.Router()

	if rec := serve(h, http.MethodPost, "/api/health/samples", `{"metric": "steps", "value": 12000}`); rec.Code != http.StatusCreated {
		t.Fatalf("sample status = %d", rec.Code)
	}

	s.sweeper.Tick(t.Context())

	if !s.tracker.HasRoutineFor(time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)) {
		t.Error("sweep should generate today's routine")
	}
	var steps bool
	for _, task := range s.tasks.Tasks() {
		if task.Category == "steps" {
			steps = task.IsCompleted
		}
	}
	if !steps {
		t.Error("steps task should be completed")
	}
}
