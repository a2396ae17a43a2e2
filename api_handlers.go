package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"schooldir/internal/school"
	"schooldir/internal/store"
)

// APIHandler handles JSON API requests
type APIHandler struct {
	Store *store.Store
}

// filter reads the region and level query parameters
func filter(r *http.Request) (store.Filter, error) {
	f := store.Filter{
		Region: r.URL.Query().Get("region"),
		Level:  r.URL.Query().Get("level"),
	}
	if f.Level != "" {
		level, err := school.ParseLevel(f.Level)
		if err != nil {
			return f, err
		}
		f.Level = string(level)
	}
	return f, nil
}

// ListSchools handles API list requests
func (h *APIHandler) ListSchools(w http.ResponseWriter, r *http.Request) {
	f, err := filter(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	schools, err := h.Store.ListSchools(r.Context(), f)
	if err != nil {
		slog.Error("List failed", "error", err, "region", f.Region, "level", f.Level)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "List failed",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"schools": convertSchoolsToCmd(schools),
		"count":   len(schools),
		"region":  f.Region,
		"level":   f.Level,
	})
}

// Search handles API search requests
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	f, err := filter(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	limit := maxResults
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
	}

	schools, err := h.Store.SearchSchools(r.Context(), query, f, limit)
	if err != nil {
		slog.Error("Search failed", "error", err, "query", query)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Search failed",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"schools": convertSchoolsToCmd(schools),
		"count":   len(schools),
		"query":   query,
		"region":  f.Region,
		"level":   f.Level,
	})
}

// GetSchool handles API requests for a single school
func (h *APIHandler) GetSchool(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid school ID",
		})
		return
	}

	s, err := h.Store.GetSchoolByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{
				"error": "School not found",
			})
			return
		}
		slog.Error("Database error", "error", err, "school_id", id)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"school": convertSchoolToCmd(*s),
	})
}

// ListRuns handles API requests for recent ingestion reports
func (h *APIHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
	}

	runs, err := listRuns(r.Context(), h.Store, limit)
	if err != nil {
		slog.Error("Listing runs failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// LatestRun handles API requests for the most recent ingestion report
func (h *APIHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.LatestRun(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{
				"error": "No ingestion runs yet",
			})
			return
		}
		slog.Error("Loading latest run failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rec.Report))
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
