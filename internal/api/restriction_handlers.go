// Package api provides HTTP handlers for restriction management.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
)

// restrictionsHandler handles GET /restrictions (list) and POST /restrictions (create custom).
func (s *Server) restrictionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("restrictionsHandler invoked", "method", r.Method, "path", r.URL.Path)

	switch r.Method {
	case http.MethodGet:
		defs, err := s.restrictions.ListRestrictions()
		if err != nil {
			slog.Error("restrictionsHandler list failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list restrictions"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(defs))
	case http.MethodPost:
		var req models.CreateRestrictionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Failed to decode JSON in restrictionsHandler", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		id, err := s.restrictions.CreateCustom(req)
		if err != nil {
			slog.Warn("restrictionsHandler create failed", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		writeJSONResponse(w, http.StatusCreated, models.Success(map[string]string{"id": id}))
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// activeRestrictionsHandler handles GET /restrictions/active.
func (s *Server) activeRestrictionsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("activeRestrictionsHandler invoked", "method", r.Method)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defs, err := s.restrictions.ActiveRestrictions()
	if err != nil {
		slog.Error("activeRestrictionsHandler failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list active restrictions"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(defs))
}

// restrictionItemHandler handles POST /restrictions/{id}/enable and
// POST /restrictions/{id}/disable.
func (s *Server) restrictionItemHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("restrictionItemHandler invoked", "method", r.Method, "path", r.URL.Path)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/restrictions/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}
	id, action := parts[0], parts[1]

	var enabled bool
	switch action {
	case "enable":
		enabled = true
	case "disable":
		enabled = false
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}

	if err := s.restrictions.SetEnabled(id, enabled); err != nil {
		if errors.Is(err, models.ErrRestrictionNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error(err.Error()))
			return
		}
		slog.Error("restrictionItemHandler SetEnabled failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update restriction"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Restriction updated", nil))
}

// blockedHandler handles GET /blocked?package=<name>: is the package blocked
// right now by any restriction window or by a running focus session.
func (s *Server) blockedHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("blockedHandler invoked", "method", r.Method)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pkg := r.URL.Query().Get("package")
	if pkg == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("package query parameter is required"))
		return
	}

	byRestriction := s.restrictions.IsBlocked(pkg)
	byFocus := s.focus.IsAppBlocked(pkg)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"package":        pkg,
		"blocked":        byRestriction || byFocus,
		"by_restriction": byRestriction,
		"by_focus":       byFocus,
	}))
}
