// Package api provides HTTP handlers for focus session management.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
)

// startFocusHandler handles POST /focus/start.
func (s *Server) startFocusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("startFocusHandler invoked", "method", r.Method)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.StartFocusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Failed to decode JSON in startFocusHandler", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	id, err := s.focus.Start(req.DurationMinutes, req.BlockedPackages)
	if err != nil {
		if errors.Is(err, models.ErrSessionAlreadyActive) {
			writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
			return
		}
		slog.Error("startFocusHandler failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to start focus session"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]string{"id": id}))
}

// completeFocusHandler handles POST /focus/complete.
func (s *Server) completeFocusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("completeFocusHandler invoked", "method", r.Method)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.CompleteFocusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Failed to decode JSON in completeFocusHandler", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	if err := s.focus.Complete(req.WasSuccessful, req.InterruptionCount); err != nil {
		if errors.Is(err, models.ErrNoActiveSession) {
			writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
			return
		}
		slog.Error("completeFocusHandler failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to complete focus session"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session completed", nil))
}

// cancelFocusHandler handles POST /focus/cancel.
func (s *Server) cancelFocusHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("cancelFocusHandler invoked", "method", r.Method)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.focus.Cancel(); err != nil {
		if errors.Is(err, models.ErrNoActiveSession) {
			writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
			return
		}
		slog.Error("cancelFocusHandler failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to cancel focus session"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session cancelled", nil))
}

// focusStatusHandler handles GET /focus/status.
func (s *Server) focusStatusHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("focusStatusHandler invoked", "method", r.Method)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"active":         s.focus.IsActive(),
		"elapsed_millis": s.focus.ElapsedMillis(),
	}))
}

// focusStatsHandler handles GET /focus/stats?date=YYYY-MM-DD (defaults to today).
func (s *Server) focusStatsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("focusStatsHandler invoked", "method", r.Method)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	date := s.clk.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, date.Location())
		if err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("date must be in YYYY-MM-DD format"))
			return
		}
		date = parsed
	}

	stats, err := s.focus.Stats(date)
	if err != nil {
		slog.Error("focusStatsHandler failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to compute focus stats"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(stats))
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}
