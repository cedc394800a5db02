package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/trustscore/trustscored/internal/domainanalysis"
	"github.com/trustscore/trustscored/internal/metrics"
	"github.com/trustscore/trustscored/internal/scheduler"
	"github.com/trustscore/trustscored/internal/store"
)

// AdminHandler serves the operational surface: triggering jobs out of
// band, refreshing a single domain, and reading back counters. It is
// meant to sit behind its own authentication/network boundary, separate
// from the public rating and stats endpoints.
type AdminHandler struct {
	Scheduler *scheduler.Scheduler
	Analyser  *domainanalysis.Analyser
	Store     *store.Store
	Metrics   *metrics.Registry
	Logger    *slog.Logger
}

// TriggerJob handles POST /admin/jobs/{name}/trigger, running the named
// scheduler job immediately regardless of its interval.
func (h *AdminHandler) TriggerJob(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := h.Scheduler.Job(name)
		if !ok {
			WriteError(w, r, NewValidationError("unknown job: "+name), h.Metrics)
			return
		}

		result, err := job.TriggerNow(r.Context())
		if err != nil {
			WriteError(w, r, NewInternalError("job trigger failed", err), h.Metrics)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "job triggered", "result": result})
	}
}

// RefreshDomain handles POST /admin/domains/refresh, re-running domain
// analysis for a single domain outside the nightly batch.
func (h *AdminHandler) RefreshDomain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Domain == "" {
		WriteError(w, r, NewValidationError("domain is required"), h.Metrics)
		return
	}

	entry, err := h.Analyser.Analyse(r.Context(), req.Domain)
	if err != nil {
		WriteError(w, r, NewInternalError("domain refresh failed", err), h.Metrics)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "domain refreshed",
		"domain":  entry.Domain,
	})
}

// UpdateContentTypeRule handles POST /admin/rules, used to seed or
// override a content-type rule outside the rule learner's own inserts.
func (h *AdminHandler) UpdateContentTypeRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain             string  `json:"domain"`
		ContentType        string  `json:"content_type"`
		URLPattern         *string `json:"url_pattern"`
		TrustScoreModifier float64 `json:"trust_score_modifier"`
		MinRatingsRequired int     `json:"min_ratings_required"`
		Description        string  `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Domain == "" || req.ContentType == "" {
		WriteError(w, r, NewValidationError("domain and content_type are required"), h.Metrics)
		return
	}

	err := h.Store.InsertContentTypeRule(r.Context(), store.ContentTypeRule{
		Domain:             req.Domain,
		ContentType:        req.ContentType,
		URLPattern:         req.URLPattern,
		TrustScoreModifier: req.TrustScoreModifier,
		MinRatingsRequired: req.MinRatingsRequired,
		Active:             true,
		Description:        req.Description,
	})
	if err != nil {
		WriteError(w, r, NewDatabaseError("failed to write rule", err), h.Metrics)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "rule saved"})
}

// CacheStats handles GET /admin/stats/cache.
func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Metrics.CacheStats())
}

// ErrorStats handles GET /admin/stats/errors.
func (h *AdminHandler) ErrorStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Metrics.ErrorStats())
}
