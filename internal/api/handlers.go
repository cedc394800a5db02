// Package api implements the submit-rating and get-stats HTTP handlers,
// plus the internal admin/ops surface, translating between the store's
// internal types and the wire responses described for clients.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/trustscore/trustscored/internal/aggregator"
	"github.com/trustscore/trustscored/internal/authctx"
	"github.com/trustscore/trustscored/internal/domainanalysis"
	"github.com/trustscore/trustscored/internal/fingerprint"
	"github.com/trustscore/trustscored/internal/metrics"
	"github.com/trustscore/trustscored/internal/ratelimit"
	"github.com/trustscore/trustscored/internal/scoring"
	"github.com/trustscore/trustscored/internal/store"
)

const analysisDeadline = 10 * time.Second
const batchLimit = 50

// Handler serves the public API surface.
type Handler struct {
	Store      *store.Store
	Aggregator *aggregator.Aggregator
	Analyser   *domainanalysis.Analyser
	Limiter    *ratelimit.Limiter
	Metrics    *metrics.Registry
	Logger     *slog.Logger
}

// StatsResponse is the get-stats wire shape; submit-rating embeds the same
// shape as its "urlStats" field.
type StatsResponse struct {
	URL                    string  `json:"url"`
	URLHash                string  `json:"url_hash"`
	Domain                 string  `json:"domain"`
	FinalTrustScore        float64 `json:"final_trust_score"`
	TrustScore             float64 `json:"trust_score"`
	DomainTrustScore       float64 `json:"domain_trust_score"`
	CommunityTrustScore    float64 `json:"community_trust_score"`
	ContentType            string  `json:"content_type"`
	RatingCount            int     `json:"rating_count"`
	AverageRating          float64 `json:"average_rating"`
	SpamReportsCount       int     `json:"spam_reports_count"`
	MisleadingReportsCount int     `json:"misleading_reports_count"`
	ScamReportsCount       int     `json:"scam_reports_count"`
	LastUpdated            string  `json:"last_updated"`
	DataSource             string  `json:"data_source"`
	CacheStatus            string  `json:"cache_status"`
}

func fromURLStats(s store.URLStats, dataSource, cacheStatus string) StatsResponse {
	return StatsResponse{
		URL:                    s.URL,
		URLHash:                s.Fingerprint,
		Domain:                 s.Domain,
		FinalTrustScore:        s.FinalScore,
		TrustScore:             s.FinalScore,
		DomainTrustScore:       s.DomainScore,
		CommunityTrustScore:    s.CommunityScore,
		ContentType:            s.ContentType,
		RatingCount:            s.RatingCount,
		AverageRating:          s.AvgRating,
		SpamReportsCount:       s.SpamCount,
		MisleadingReportsCount: s.MisleadingCount,
		ScamReportsCount:       s.ScamCount,
		LastUpdated:            s.LastUpdated.UTC().Format(time.RFC3339),
		DataSource:             dataSource,
		CacheStatus:            cacheStatus,
	}
}

// GetStats handles GET /api/stats?url=... . It is idempotent, read-only, and
// safe for anonymous callers.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.Limiter != nil && !h.Limiter.Allow(clientKey(r), ratelimit.DefaultBuckets["query"]) {
		WriteError(w, r, NewRateLimitError("too many requests"), h.Metrics)
		return
	}

	raw := r.URL.Query().Get("url")
	resp, err := h.getStatsFor(r.Context(), raw)
	if err != nil {
		WriteError(w, r, err, h.Metrics)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getStatsFor(ctx context.Context, raw string) (StatsResponse, error) {
	res, err := fingerprint.Compute(raw)
	if err != nil {
		return StatsResponse{}, NewValidationError("invalid url")
	}

	stats, err := h.Store.GetURLStats(ctx, res.Fingerprint)
	if err == store.ErrNotFound {
		return h.baseline(ctx, res), nil
	}
	if err != nil {
		return StatsResponse{}, NewDatabaseError("failed to read url stats", err)
	}

	cacheStatus := "miss"
	if exists, valid, cerr := h.Store.CheckDomainExists(ctx, stats.Domain); cerr == nil && exists {
		if valid {
			cacheStatus = "hit"
			if h.Metrics != nil {
				h.Metrics.DomainCacheHits.Inc()
			}
		} else {
			cacheStatus = "expired"
			if h.Metrics != nil {
				h.Metrics.DomainCacheMisses.Inc()
			}
		}
	} else if cerr == nil && h.Metrics != nil {
		h.Metrics.DomainCacheMisses.Inc()
	}

	return fromURLStats(stats, scoring.DataSource(stats.ProcessingStatus), cacheStatus), nil
}

// baseline synthesises a response for a URL with no stored stats: the
// scorer's output with zero ratings and whatever content-type rule
// applies to the domain, annotated data_source="baseline".
func (h *Handler) baseline(ctx context.Context, res fingerprint.Result) StatsResponse {
	contentType := "general"
	var modifier float64
	if ct, err := h.Store.DetermineContentType(ctx, res.Canonical, res.Domain); err == nil {
		contentType = ct
		if m, err := h.Store.LookupModifier(ctx, res.Domain, ct); err == nil {
			modifier = m
		}
	}

	result := scoring.Score(scoring.Input{ContentType: contentType, ContentModifier: modifier})

	return StatsResponse{
		URL:                 res.Canonical,
		URLHash:             res.Fingerprint,
		Domain:              res.Domain,
		FinalTrustScore:     result.FinalScore,
		TrustScore:          result.FinalScore,
		DomainTrustScore:    result.DomainScore,
		CommunityTrustScore: result.CommunityScore,
		ContentType:         result.ContentType,
		LastUpdated:         time.Now().UTC().Format(time.RFC3339),
		DataSource:          "baseline",
		CacheStatus:         "miss",
	}
}

// BatchGetStats handles a batch of up to 50 URLs, returning one result
// per input URL preserving order. A per-URL failure becomes a nil slot
// rather than failing the whole batch.
func (h *Handler) BatchGetStats(w http.ResponseWriter, r *http.Request) {
	if h.Limiter != nil && !h.Limiter.Allow(clientKey(r), ratelimit.DefaultBuckets["query"]) {
		WriteError(w, r, NewRateLimitError("too many requests"), h.Metrics)
		return
	}

	var req struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, NewValidationError("malformed request body"), h.Metrics)
		return
	}
	if len(req.URLs) > batchLimit {
		WriteError(w, r, NewValidationError("too many urls, max 50 per batch"), h.Metrics)
		return
	}

	results := make([]*StatsResponse, len(req.URLs))
	for i, raw := range req.URLs {
		resp, err := h.getStatsFor(r.Context(), raw)
		if err != nil {
			results[i] = nil
			continue
		}
		results[i] = &resp
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// submitRatingRequest is the inbound submit-rating body.
type submitRatingRequest struct {
	URL          string `json:"url"`
	Score        int    `json:"score"`
	IsSpam       bool   `json:"isSpam"`
	IsMisleading bool   `json:"isMisleading"`
	IsScam       bool   `json:"isScam"`
}

// SubmitRating handles POST /api/ratings.
func (h *Handler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	if h.Limiter != nil && !h.Limiter.Allow(clientKey(r), ratelimit.DefaultBuckets["submit"]) {
		WriteError(w, r, NewRateLimitError("too many requests"), h.Metrics)
		return
	}

	userID := authctx.UserID(r.Context())
	if userID == "" {
		WriteError(w, r, NewAuthError("missing or invalid bearer token"), h.Metrics)
		return
	}

	var req submitRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, NewValidationError("malformed request body"), h.Metrics)
		return
	}
	if req.Score < 1 || req.Score > 5 {
		WriteError(w, r, NewValidationError("score must be between 1 and 5"), h.Metrics)
		return
	}

	res, err := fingerprint.Compute(req.URL)
	if err != nil {
		WriteError(w, r, NewValidationError("invalid url"), h.Metrics)
		return
	}

	_, err = h.Store.AppendRating(r.Context(), store.Rating{
		Fingerprint: res.Fingerprint,
		UserID:      userID,
		Stars:       req.Score,
		Spam:        req.IsSpam,
		Misleading:  req.IsMisleading,
		Scam:        req.IsScam,
	})
	if err == store.ErrCooldown {
		WriteError(w, r, NewCooldownError("already rated within the last 24 hours"), h.Metrics)
		return
	}
	if err != nil {
		WriteError(w, r, NewDatabaseError("failed to record rating", err), h.Metrics)
		return
	}

	triggered := h.maybeTriggerDomainAnalysis(r.Context(), res.Domain)

	stats, err := h.Aggregator.RecomputeFingerprint(r.Context(), res.Fingerprint, res.Canonical, res.Domain)
	if err != nil {
		WriteError(w, r, NewDatabaseError("failed to refresh stats", err), h.Metrics)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "rating recorded",
		"urlStats": fromURLStats(stats, scoring.DataSource(stats.ProcessingStatus), "n/a"),
		"processing": map[string]bool{
			"domain_analysis_triggered": triggered,
		},
	})
}

// maybeTriggerDomainAnalysis runs domain analysis best-effort on first
// sight of a domain, bounded by its own deadline independent of the
// request's, swallowing any failure so the submission still succeeds.
func (h *Handler) maybeTriggerDomainAnalysis(ctx context.Context, domain string) bool {
	exists, _, err := h.Store.CheckDomainExists(ctx, domain)
	if err != nil || exists {
		return false
	}

	analysisCtx, cancel := context.WithTimeout(context.Background(), analysisDeadline)
	defer cancel()

	if _, err := h.Analyser.Analyse(analysisCtx, domain); err != nil {
		h.Logger.Warn("best-effort domain analysis failed", "domain", domain, "err", err)
		return false
	}
	return true
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Real-IP"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
