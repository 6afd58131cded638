package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ierr "invoicedash/internal/errors"
	"invoicedash/internal/log"
)

const readinessTimeout = 5 * time.Second

func (s *Server) handleInvoiceTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := s.dashboard.InvoiceTrends(r.Context(), ParseMonths(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, trends)
}

func (s *Server) handleTopVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := s.dashboard.TopVendors(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, vendors)
}

func (s *Server) handleCategorySpend(w http.ResponseWriter, r *http.Request) {
	categories, err := s.dashboard.CategorySpend(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, categories)
}

func (s *Server) handleCashOutflow(w http.ResponseWriter, r *http.Request) {
	start, end, err := ParseDateRange(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	outflow, err := s.dashboard.CashOutflow(r.Context(), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, outflow)
}

func (s *Server) handleInvoices(w http.ResponseWriter, r *http.Request) {
	params, err := ParseSearchParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.dashboard.SearchInvoices(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, page)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.dashboard.OverviewStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, stats)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	query, err := ParseChatQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.chat == nil {
		writeError(w, r, ierr.NewError("chat client not configured").
			WithHint("Chat service is not configured").
			Mark(ierr.ErrUpstream))
		return
	}

	answer, err := s.chat.SendQuery(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, answer)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports 503 until the store answers a ping and a chat client is wired.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	switch {
	case s.store == nil:
		checks["store"] = "not_configured"
	default:
		if err := s.store.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness store ping failed", log.FieldError, err)
			checks["store"] = "failed: " + err.Error()
		} else {
			checks["store"] = "ok"
		}
	}
	if s.chat != nil {
		checks["chat"] = "configured"
	} else {
		checks["chat"] = "not_configured"
	}

	if checks["store"] != "ok" || checks["chat"] != "configured" {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	NewJSONResponse().
		Status(httpStatus).
		Body(map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w, r)
}

// handleMetrics writes counters in the Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.trace.GetMetrics()
	rateMetrics := s.rateLimiter.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_client_errors_total", "counter", "Responses with a 4xx status", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_request_duration_avg_seconds", "gauge", "Average request duration", fmt.Sprintf("%.6f", traceMetrics.AverageResponseTime.Seconds()))

	if s.cacheStats != nil {
		stats := s.cacheStats()
		metric("cache_hits_total", "counter", "Analytics cache hits", stats.Hits)
		metric("cache_misses_total", "counter", "Analytics cache misses", stats.Misses)
		metric("cache_entries", "gauge", "Current analytics cache entries", stats.Size)
	}

	metric("rate_limit_allowed_total", "counter", "Chat requests admitted by the rate limiter", rateMetrics.Allowed)
	metric("rate_limit_rejected_total", "counter", "Chat requests rejected by the rate limiter", rateMetrics.Rejected)
	metric("rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateMetrics.ClientCount)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))
}
