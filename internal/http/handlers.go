package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady checks the database with a short timeout.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"cache": map[string]any{"summary_entries": s.summaries.Size()},
		"rate_limiter": map[string]any{
			"active_clients": s.limiter.ActiveClients(),
		},
	}

	if s.db == nil {
		checks["database"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := s.db.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes request, rate limit and cache counters as plain text.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	cs := s.summaries.Stats()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "finwatch_uptime_seconds %d\n", int64(time.Since(s.startedAt).Seconds()))
	fmt.Fprintf(w, "finwatch_http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "finwatch_http_server_errors_total %d\n", tm.ServerErrors)
	fmt.Fprintf(w, "finwatch_http_response_time_avg_ms %.3f\n", float64(tm.AverageResponseTime.Microseconds())/1000)
	fmt.Fprintf(w, "finwatch_rate_limit_rejected_total %d\n", s.limiter.Rejected())
	fmt.Fprintf(w, "finwatch_rate_limit_active_clients %d\n", s.limiter.ActiveClients())
	fmt.Fprintf(w, "finwatch_suspicious_requests_total %d\n", s.detector.SuspiciousRequests())
	fmt.Fprintf(w, "finwatch_summary_cache_hits_total %d\n", cs.Hits)
	fmt.Fprintf(w, "finwatch_summary_cache_misses_total %d\n", cs.Misses)
	fmt.Fprintf(w, "finwatch_summary_cache_entries %d\n", cs.Size)
}

// handleSummary serves balances, budget consumption and unread alerts. The
// result is cached per user until the next write through this API or the
// cache TTL.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if summary, ok := s.summaries.Get(uid); ok {
		writeJSON(w, http.StatusOK, toSummaryJSON(summary))
		return
	}

	summary, err := s.svc.Monitor.Summary(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.summaries.Set(uid, summary)
	writeJSON(w, http.StatusOK, toSummaryJSON(summary))
}
