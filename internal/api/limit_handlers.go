// Package api provides HTTP handlers for progressive limit management.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
)

// limitsHandler handles GET /limits (list active) and POST /limits (opt in).
func (s *Server) limitsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("limitsHandler invoked", "method", r.Method, "path", r.URL.Path)

	switch r.Method {
	case http.MethodGet:
		limits, err := s.limits.ListActive()
		if err != nil {
			slog.Error("limitsHandler list failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list limits"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(limits))
	case http.MethodPost:
		s.createLimitHandler(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// createLimitHandler opts a package into a progressive limit. The starting
// ceiling is derived from the usage ledger's trailing-7-day average.
func (s *Server) createLimitHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Failed to decode JSON in createLimitHandler", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("createLimitHandler validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	average, err := s.st.AverageUsageLast7Days(req.PackageName, s.clk.Now())
	if err != nil {
		slog.Error("createLimitHandler usage query failed", "error", err, "package", req.PackageName)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to read usage history"))
		return
	}

	limit, err := s.limits.Create(req.PackageName, req.TargetLimitMillis, average)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidTargetLimit), errors.Is(err, models.ErrInvalidLimitInput):
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		case errors.Is(err, models.ErrLimitAlreadyActive):
			writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
		default:
			slog.Error("createLimitHandler create failed", "error", err, "package", req.PackageName)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create limit"))
		}
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(limit))
}

// processReductionsHandler handles POST /limits/process: manually trigger
// the daily reduction pass (the scheduler calls the same entry point).
func (s *Server) processReductionsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("processReductionsHandler invoked", "method", r.Method)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.limits.ProcessWeeklyReductions(s.clk.Now()); err != nil {
		slog.Error("processReductionsHandler failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Reduction pass failed"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Reductions processed", nil))
}

// limitItemHandler handles GET /limits/{package} and DELETE /limits/{package}.
func (s *Server) limitItemHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("limitItemHandler invoked", "method", r.Method, "path", r.URL.Path)

	pkg := strings.TrimPrefix(r.URL.Path, "/limits/")
	if pkg == "" || strings.Contains(pkg, "/") {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		limit, err := s.limits.Get(pkg)
		if err != nil {
			if errors.Is(err, models.ErrLimitNotFound) {
				writeJSONResponse(w, http.StatusNotFound, models.Error(err.Error()))
				return
			}
			slog.Error("limitItemHandler get failed", "error", err, "package", pkg)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to read limit"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(limit))
	case http.MethodDelete:
		if err := s.limits.Cancel(pkg); err != nil {
			slog.Error("limitItemHandler cancel failed", "error", err, "package", pkg)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to cancel limit"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Limit cancelled", nil))
	default:
		w.Header().Set("Allow", "GET, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// uncelebratedMilestonesHandler handles GET /milestones/uncelebrated.
func (s *Server) uncelebratedMilestonesHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("uncelebratedMilestonesHandler invoked", "method", r.Method)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	milestones, err := s.limits.UncelebratedMilestones()
	if err != nil {
		slog.Error("uncelebratedMilestonesHandler failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list milestones"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(milestones))
}

// milestoneItemHandler handles POST /milestones/{id}/celebrated.
func (s *Server) milestoneItemHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("milestoneItemHandler invoked", "method", r.Method, "path", r.URL.Path)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/milestones/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "celebrated" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}

	if err := s.limits.MarkCelebrationShown(parts[0]); err != nil {
		if errors.Is(err, models.ErrMilestoneNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error(err.Error()))
			return
		}
		slog.Error("milestoneItemHandler failed", "error", err, "id", parts[0])
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update milestone"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Celebration recorded", nil))
}

// recordUsageHandler handles POST /usage: the host's usage-tracking
// subsystem feeds one day of foreground usage per package.
func (s *Server) recordUsageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("recordUsageHandler invoked", "method", r.Method)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.RecordUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Failed to decode JSON in recordUsageHandler", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	day, err := time.ParseInLocation("2006-01-02", req.Day, s.clk.Now().Location())
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("day must be in YYYY-MM-DD format"))
		return
	}

	sample := models.AppUsageSample{PackageName: req.PackageName, Day: day, UsageMillis: req.UsageMillis}
	if err := s.st.RecordAppUsage(sample); err != nil {
		slog.Error("recordUsageHandler save failed", "error", err, "package", req.PackageName)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record usage"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Usage recorded", nil))
}
