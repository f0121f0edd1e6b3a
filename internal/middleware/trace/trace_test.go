package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finwatch/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer) *Middleware {
	logger := log.New(log.Config{Component: log.ComponentHTTP, Output: buf})
	return NewMiddleware(logger, func(*http.Request) string { return "192.0.2.1" })
}

func TestMiddleware_RequestID(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "generated when absent", incoming: "", keep: false},
		{name: "caller id kept", incoming: "abc-123", keep: true},
		{name: "malformed id replaced", incoming: "bad id\n", keep: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(HeaderRequestID)
			if got != seen {
				t.Fatalf("response id %q != context id %q", got, seen)
			}
			if tt.keep && got != tt.incoming {
				t.Fatalf("request id = %q, want %q", got, tt.incoming)
			}
			if !tt.keep && !strings.HasPrefix(got, "req_") {
				t.Fatalf("request id = %q, want generated", got)
			}
		})
	}
}

func TestMiddleware_MetricsAndLogging(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/ok", "/boom", "/ok"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	metrics := m.GetMetrics()
	if metrics.TotalRequests != 3 || metrics.ServerErrors != 1 {
		t.Fatalf("metrics = %+v, want 3 requests and 1 server error", metrics)
	}
	out := buf.String()
	if !strings.Contains(out, "status_code=500") || !strings.Contains(out, "client_ip=192.0.2.1") {
		t.Fatalf("log output = %s", out)
	}
}
