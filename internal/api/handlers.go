package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/AI-Template-SDK/visibility-workflows/services"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"service": "visibility-workflows", "status": "running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleRunScan(w http.ResponseWriter, r *http.Request) {
	var req services.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.scans.RunScan(r.Context(), req)
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		s.writeError(w, http.StatusBadRequest, "query_id and platforms are required")
	case errors.Is(err, services.ErrQueryNotFound):
		s.writeError(w, http.StatusNotFound, "Query not found")
	case errors.Is(err, services.ErrNoBrands):
		s.writeError(w, http.StatusBadRequest, "No brands to track. Please add brands first.")
	case err != nil:
		s.logger.Error("Error running scan", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to run scan")
	default:
		s.writeJSON(w, http.StatusOK, result)
	}
}

// handleEnqueueScan hands the scan to the workflow engine instead of running it inline.
func (s *Server) handleEnqueueScan(w http.ResponseWriter, r *http.Request) {
	if s.enqueuer == nil {
		s.writeError(w, http.StatusServiceUnavailable, "workflow engine not configured")
		return
	}

	var req services.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.QueryID == "" || len(req.Platforms) == 0 {
		s.writeError(w, http.StatusBadRequest, "query_id and platforms are required")
		return
	}
	if req.OpenAIAPIKey != "" {
		s.writeError(w, http.StatusBadRequest, "openai_api_key is not supported for queued scans, use /api/scans/run")
		return
	}

	id, err := s.enqueuer.EnqueueScan(r.Context(), req)
	if err != nil {
		s.logger.Error("Failed to send scan event", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to enqueue scan")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{"success": true, "event_ids": []string{id}})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	filter, ok := s.analyticsFilter(w, r)
	if !ok {
		return
	}
	metrics, err := s.analytics.GetVisibility(r.Context(), filter)
	if err != nil {
		s.logger.Error("Error fetching analytics", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch analytics")
		return
	}
	s.writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	filter, ok := s.analyticsFilter(w, r)
	if !ok {
		return
	}
	trends, err := s.analytics.GetTrends(r.Context(), filter)
	if err != nil {
		s.logger.Error("Error fetching trends", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch analytics")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"trendData": trends})
}

func (s *Server) handleCompetitors(w http.ResponseWriter, r *http.Request) {
	competitors, err := s.analytics.GetCompetitors(r.Context())
	if err != nil {
		s.logger.Error("Error fetching competitor analytics", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch competitor analytics")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"competitors": competitors})
}

func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	filter, ok := s.analyticsFilter(w, r)
	if !ok {
		return
	}
	counts, err := s.analytics.GetFailureSummary(r.Context(), filter.Days)
	if err != nil {
		s.logger.Error("Error fetching failure summary", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch failure summary")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"days": filter.Days, "failures": counts})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	report := s.diagnostics.Run(r.Context(), r.URL.Query().Get("test_providers") == "true")
	status := http.StatusOK
	if !report.Success {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, report)
}

func (s *Server) handleDailyScan(w http.ResponseWriter, r *http.Request) {
	result, err := s.scans.RunDailyScan(r.Context())
	if err != nil {
		s.logger.Error("Error running daily cron scan", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "Failed to run daily cron scan"})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// analyticsFilter reads brand_id and days, writing a 400 when days is malformed.
func (s *Server) analyticsFilter(w http.ResponseWriter, r *http.Request) (services.AnalyticsFilter, bool) {
	filter := services.AnalyticsFilter{BrandID: r.URL.Query().Get("brand_id"), Days: 30}
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			s.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return filter, false
		}
		filter.Days = days
	}
	return filter, true
}
