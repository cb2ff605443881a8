package httpapi

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"satquery/internal/config"
	"satquery/internal/logging"
	"satquery/internal/metrics"
)

type fixedCount int

func (c fixedCount) Len() int { return int(c) }

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestServer(t *testing.T, db *sql.DB, species SpeciesCounter, logger *slog.Logger) *httptest.Server {
	t.Helper()
	m := metrics.New()
	mux := NewMux(db, species, m)
	mux.HandleFunc("POST /echo", func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Info("echo handler")
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	})
	cfg := config.Config{HTTPAddr: ":0", CORSAllowedOrigins: []string{"*"}}
	ts := httptest.NewServer(NewServer(cfg, mux, logger, m).Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name       string
		species    SpeciesCounter
		closeDB    bool
		wantStatus int
	}{
		{name: "ok with species", species: fixedCount(7), wantStatus: http.StatusOK},
		{name: "empty registry", species: fixedCount(0), wantStatus: http.StatusServiceUnavailable},
		{name: "database closed", species: fixedCount(7), closeDB: true, wantStatus: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openTestDB(t)
			ts := newTestServer(t, db, tt.species, slog.New(slog.NewTextHandler(io.Discard, nil)))
			if tt.closeDB {
				_ = db.Close()
			}

			resp, err := ts.Client().Get(ts.URL + "/healthz")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] != "ok" || body["species"] != float64(7) {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(t, openTestDB(t), fixedCount(1), slog.New(slog.NewTextHandler(io.Discard, nil)))

	// one request so the http counter has a sample
	if resp, err := ts.Client().Get(ts.URL + "/healthz"); err == nil {
		resp.Body.Close()
	}

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `satquery_http_requests_total{code="2xx",method="GET",route="GET /healthz"} 1`) {
		t.Errorf("metrics output missing healthz counter:\n%s", body)
	}
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t, openTestDB(t), fixedCount(1), slog.New(slog.NewTextHandler(io.Discard, nil)))

	t.Run("generated when missing", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/healthz")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if id := resp.Header.Get(RequestIDHeader); len(id) != 36 {
			t.Errorf("request id = %q, want a uuid", id)
		}
	})

	t.Run("propagated when valid", func(t *testing.T) {
		const id = "6f1c1e2a-8a2b-4c47-9f3e-0d6f5b8f2a11"
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
		req.Header.Set(RequestIDHeader, id)
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("do: %v", err)
		}
		resp.Body.Close()
		if got := resp.Header.Get(RequestIDHeader); got != id {
			t.Errorf("request id = %q, want %q", got, id)
		}
	})

	t.Run("replaced when not a uuid", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("do: %v", err)
		}
		resp.Body.Close()
		if got := resp.Header.Get(RequestIDHeader); got == "<script>" {
			t.Error("invalid request id was echoed")
		}
	})
}

func TestRequestLogger_DebugDetailsKeepBody(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ts := newTestServer(t, openTestDB(t), fixedCount(1), logger)

	payload := `{"species":"mp.H2O"}`
	resp, err := ts.Client().Post(ts.URL+"/echo", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	echoed, _ := io.ReadAll(resp.Body)
	if string(echoed) != payload {
		t.Fatalf("handler saw body %q, want %q", echoed, payload)
	}

	var sawDetails, sawHandler, sawSummary bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log line %q: %v", line, err)
		}
		if rec["request_id"] == nil {
			t.Errorf("log line without request_id: %s", line)
		}
		switch rec["msg"] {
		case "http request details":
			sawDetails = rec["body"] == payload
		case "echo handler":
			sawHandler = true
		case "http request":
			sawSummary = rec["route"] == "POST /echo" && rec["status"] == float64(200)
		}
	}
	if !sawDetails || !sawHandler || !sawSummary {
		t.Errorf("details=%v handler=%v summary=%v\n%s", sawDetails, sawHandler, sawSummary, buf.String())
	}
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantOrigin  string
		wantCredsOK bool
	}{
		{name: "no origin header", allowed: []string{"*"}, method: http.MethodPost, wantStatus: 200},
		{name: "any origin echoed", allowed: []string{"*"}, method: http.MethodPost, origin: "http://a.test", wantStatus: 200, wantOrigin: "http://a.test", wantCredsOK: true},
		{name: "listed origin", allowed: []string{"http://a.test"}, method: http.MethodGet, origin: "http://a.test", wantStatus: 200, wantOrigin: "http://a.test", wantCredsOK: true},
		{name: "unlisted origin", allowed: []string{"http://a.test"}, method: http.MethodGet, origin: "http://b.test", wantStatus: 200},
		{name: "preflight", allowed: []string{"*"}, method: http.MethodOptions, origin: "http://a.test", preflight: true, wantStatus: 204, wantOrigin: "http://a.test", wantCredsOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/sat", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			cors(tt.allowed, ok).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tt.wantCredsOK {
				t.Errorf("allow credentials = %v, want %v", got, tt.wantCredsOK)
			}
		})
	}
}
