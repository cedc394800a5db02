// Package domainanalysis populates the Domain Cache from external
// reputation signals: WHOIS domain age, TLS certificate validity, HTTP
// reachability, and two independent threat verdicts (Google Safe
// Browsing and an LLM-based content classification). Every source is
// probed concurrently and independently bounded by a 10s deadline; a
// source failure contributes a null field rather than failing the whole
// analysis.
package domainanalysis

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trustscore/trustscored/internal/metrics"
	"github.com/trustscore/trustscored/internal/quota"
	"github.com/trustscore/trustscored/internal/store"
)

const sourceDeadline = 10 * time.Second

// Analyser drives the external probes and writes the result into the
// domain cache.
type Analyser struct {
	store   *store.Store
	budget  *quota.Budget
	metrics *metrics.Registry
	logger  *slog.Logger
}

// New constructs an Analyser against the given store, gated by a daily
// external-API budget. metrics may be nil, in which case per-source
// failures are not counted.
func New(s *store.Store, budget *quota.Budget, m *metrics.Registry, logger *slog.Logger) *Analyser {
	return &Analyser{store: s, budget: budget, metrics: m, logger: logger}
}

func (a *Analyser) countFailure(source string) {
	if a.metrics != nil {
		a.metrics.AnalyserSourceFailures.WithLabelValues(source).Inc()
	}
}

type signals struct {
	ageDays              int
	ageKnown             bool
	sslValid             bool
	sslKnown             bool
	httpStatus           int
	httpStatusKnown      bool
	googleSafeBrowsing   string
	hybridAnalysisStatus string
}

// Analyse collects every signal source for domain and safely upserts the
// result into the domain cache. If every source fails and the domain has
// no prior entry, Analyse returns an error; otherwise the previous entry
// (or a partially-populated new one) is retained.
func (a *Analyser) Analyse(ctx context.Context, domain string) (store.DomainCacheEntry, error) {
	if !a.budget.Allow() {
		a.logger.Warn("domain analysis skipped: daily external-api budget exhausted", "domain", domain)
		existing, err := a.store.GetDomainCache(ctx, domain)
		if err == nil {
			return existing, nil
		}
		return store.DomainCacheEntry{}, err
	}

	sig := a.collect(ctx, domain)

	if !sig.ageKnown && !sig.sslKnown && !sig.httpStatusKnown &&
		sig.googleSafeBrowsing == "" && sig.hybridAnalysisStatus == "" {
		if existing, err := a.store.GetDomainCache(ctx, domain); err == nil {
			a.logger.Warn("every analysis source failed, retaining prior entry", "domain", domain)
			return existing, nil
		}
		return store.DomainCacheEntry{}, errAllSourcesFailed(domain)
	}

	entry := store.DomainCacheEntry{Domain: domain}
	if sig.ageKnown {
		entry.DomainAgeDays = &sig.ageDays
	}
	if sig.sslKnown {
		entry.SSLValid = &sig.sslValid
	}
	if sig.httpStatusKnown {
		entry.HTTPStatus = &sig.httpStatus
	}
	if sig.googleSafeBrowsing != "" {
		entry.GoogleSafeBrowsing = &sig.googleSafeBrowsing
	}
	if sig.hybridAnalysisStatus != "" {
		entry.HybridAnalysisStatus = &sig.hybridAnalysisStatus
	}

	return a.store.UpsertDomainCacheSafe(ctx, entry)
}

// collect fans every signal source out concurrently, each independently
// time-boxed, and returns whatever came back. A per-source failure never
// aborts the others.
func (a *Analyser) collect(ctx context.Context, domain string) signals {
	var sig signals
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		days, ok := whoisAgeDays(gctx, domain, sourceDeadline)
		sig.ageDays, sig.ageKnown = days, ok
		if !ok {
			a.countFailure("whois")
		}
		return nil
	})
	g.Go(func() error {
		valid, ok := probeTLS(domain, sourceDeadline)
		sig.sslValid, sig.sslKnown = valid, ok
		if !ok {
			a.countFailure("tls")
		}
		return nil
	})
	g.Go(func() error {
		status, ok := probeHTTPStatus(gctx, domain, sourceDeadline)
		sig.httpStatus, sig.httpStatusKnown = status, ok
		if !ok {
			a.countFailure("http")
		}
		return nil
	})
	g.Go(func() error {
		verdict, err := newSafeBrowsingClient(sourceDeadline).Lookup(gctx, domain)
		if err != nil {
			a.logger.Warn("safe browsing lookup failed", "domain", domain, "err", err)
			a.countFailure("safebrowsing")
			return nil
		}
		sig.googleSafeBrowsing = verdict
		return nil
	})
	g.Go(func() error {
		sig.hybridAnalysisStatus = llmVerdict(gctx, domain, sourceDeadline)
		return nil
	})

	_ = g.Wait() // every goroutine above swallows its own error into `sig`
	return sig
}

type analysisError struct {
	domain string
}

func (e analysisError) Error() string {
	return "domainanalysis: all sources failed for domain " + e.domain + " and no prior cache entry exists"
}

func errAllSourcesFailed(domain string) error {
	return analysisError{domain: domain}
}
