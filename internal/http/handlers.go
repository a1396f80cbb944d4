package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"capigastos/internal/log"
	"capigastos/internal/sheets"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports ready once the Accounts table can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{}
	if _, err := s.ledger.Accounts(ctx); err != nil {
		checks["ledger_store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["ledger_store"] = "ok"
	}
	limits := s.limiter.GetMetrics()
	blocked := s.detector.GetMetrics()

	body := map[string]any{
		"status":              status,
		"checks":              checks,
		"rate_limited":        limits.TotalHits,
		"active_clients":      limits.ClientCount,
		"blocked_requests":    blocked.BlockedRequests,
		"suspicious_requests": blocked.SuspiciousRequests,
	}
	if s.stats != nil {
		body["store_calls"] = s.stats.Snapshot()
	}
	NewJSONResponse().Status(code).Body(body).Write(w)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.ledger.Users()).Write(w)
}

// handleInvalidateCache drops cached snapshots so the next read goes to the
// store. ?table= narrows it to one table.
func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("table"))
	if raw == "" {
		s.ledger.Invalidate()
	} else {
		table := sheets.Table(raw)
		if !table.IsValid() {
			BadRequestError("unknown table " + raw).Write(w)
			return
		}
		s.ledger.Invalidate(table)
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Cache invalidated on request", log.FieldTable, raw)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
