// Package aggregator periodically consumes unprocessed ratings, invokes
// the scorer, and writes the resulting URL Stats row. The same
// recomputation logic backs both the periodic tick and the submission
// path's synchronous single-row refresh.
package aggregator

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/trustscore/trustscored/internal/scoring"
	"github.com/trustscore/trustscored/internal/store"
)

// RatingSource is the slice of the rating store the aggregator depends on.
type RatingSource interface {
	ListUnprocessedFingerprints(ctx context.Context, limit int) ([]string, error)
	ReadForFingerprint(ctx context.Context, fingerprint string) ([]store.Rating, error)
	MarkProcessed(ctx context.Context, fingerprints []string) error
}

// DomainSource is the slice of the domain cache the scorer consults.
type DomainSource interface {
	CheckDomainExists(ctx context.Context, domain string) (exists, valid bool, err error)
	GetDomainCache(ctx context.Context, domain string) (store.DomainCacheEntry, error)
}

// RuleSource is the slice of the blacklist/content-type rule stores.
type RuleSource interface {
	CheckDomainBlacklist(ctx context.Context, domain string) (store.BlacklistVerdict, error)
	DetermineContentType(ctx context.Context, url, domain string) (string, error)
	LookupModifier(ctx context.Context, domain, contentType string) (float64, error)
}

// StatsSink is the slice of the URL stats store the aggregator writes to
// and, for the submit path's domain/url carry-forward, reads from.
type StatsSink interface {
	GetURLStats(ctx context.Context, fingerprint string) (store.URLStats, error)
	UpsertURLStats(ctx context.Context, stats store.URLStats) error
}

// softCapPerTick bounds how many unprocessed fingerprints one tick will
// process; the remainder is picked up by the next tick.
const softCapPerTick = 500

// Aggregator owns a single in-flight tick at a time.
type Aggregator struct {
	ratings RatingSource
	domains DomainSource
	rules   RuleSource
	stats   StatsSink
	logger  *slog.Logger
	running atomic.Bool
}

func New(ratings RatingSource, domains DomainSource, rules RuleSource, stats StatsSink, logger *slog.Logger) *Aggregator {
	return &Aggregator{ratings: ratings, domains: domains, rules: rules, stats: stats, logger: logger}
}

// Tick processes every fingerprint returned by ListUnprocessedFingerprints
// (bounded by softCapPerTick), then marks them processed. If a tick is
// already running, Tick returns immediately without doing anything,
// implementing the "at most one instance active" guarantee.
func (a *Aggregator) Tick(ctx context.Context) (processed int, err error) {
	if !a.running.CompareAndSwap(false, true) {
		a.logger.Info("aggregator tick skipped: previous tick still running")
		return 0, nil
	}
	defer a.running.Store(false)

	fingerprints, err := a.ratings.ListUnprocessedFingerprints(ctx, softCapPerTick)
	if err != nil {
		return 0, err
	}

	var succeeded []string
	for _, fp := range fingerprints {
		if _, err := a.RecomputeFingerprint(ctx, fp, "", ""); err != nil {
			a.logger.Error("aggregator: failed to recompute fingerprint", "fingerprint", fp, "err", err)
			continue
		}
		succeeded = append(succeeded, fp)
	}

	if err := a.ratings.MarkProcessed(ctx, succeeded); err != nil {
		return len(succeeded), err
	}
	return len(succeeded), nil
}

// RecomputeFingerprint recomputes counts, scores, and processing status
// for one fingerprint and upserts the result. urlHint/domainHint are used
// when the caller (the submission path) already knows the canonical URL
// and domain for a fingerprint that may not have a stats row yet;
// periodic ticks pass empty strings and fall back to the previously
// stored row.
func (a *Aggregator) RecomputeFingerprint(ctx context.Context, fingerprint, urlHint, domainHint string) (store.URLStats, error) {
	url, domain := urlHint, domainHint
	if url == "" || domain == "" {
		if existing, err := a.stats.GetURLStats(ctx, fingerprint); err == nil {
			if url == "" {
				url = existing.URL
			}
			if domain == "" {
				domain = existing.Domain
			}
		}
	}

	ratings, err := a.ratings.ReadForFingerprint(ctx, fingerprint)
	if err != nil {
		return store.URLStats{}, err
	}

	community := communityInput(ratings)

	exists, valid, err := a.domains.CheckDomainExists(ctx, domain)
	if err != nil {
		return store.URLStats{}, err
	}

	var domainSignals scoring.DomainSignals
	if valid {
		entry, err := a.domains.GetDomainCache(ctx, domain)
		if err != nil {
			return store.URLStats{}, err
		}
		domainSignals = toDomainSignals(entry)
	}

	blacklist, err := a.rules.CheckDomainBlacklist(ctx, domain)
	if err != nil {
		return store.URLStats{}, err
	}
	contentType, err := a.rules.DetermineContentType(ctx, url, domain)
	if err != nil {
		return store.URLStats{}, err
	}
	modifier, err := a.rules.LookupModifier(ctx, domain, contentType)
	if err != nil {
		return store.URLStats{}, err
	}

	result := scoring.Score(scoring.Input{
		Community:   community,
		Domain:      domainSignals,
		Blacklist:   scoring.BlacklistVerdict{IsBlacklisted: blacklist.IsBlacklisted, Penalty: blacklist.Penalty},
		ContentType: contentType,
		ContentModifier: modifier,
	})

	status := processingStatus(exists, valid)

	stats := store.URLStats{
		Fingerprint:             fingerprint,
		URL:                     url,
		Domain:                  domain,
		ContentType:             result.ContentType,
		RatingCount:             community.RatingCount,
		AvgRating:               community.AverageRating,
		SpamCount:               community.SpamCount,
		MisleadingCount:         community.MisleadingCount,
		ScamCount:               community.ScamCount,
		CommunityScore:          result.CommunityScore,
		DomainScore:             result.DomainScore,
		FinalScore:              result.FinalScore,
		ProcessingStatus:        status,
		DomainAnalysisProcessed: valid,
		LastUpdated:             time.Now(),
	}

	if err := a.stats.UpsertURLStats(ctx, stats); err != nil {
		return store.URLStats{}, err
	}
	return stats, nil
}

func communityInput(ratings []store.Rating) scoring.CommunityInput {
	var in scoring.CommunityInput
	in.RatingCount = len(ratings)
	if in.RatingCount == 0 {
		return in
	}

	var starSum int
	for _, r := range ratings {
		starSum += r.Stars
		if r.Spam {
			in.SpamCount++
		}
		if r.Misleading {
			in.MisleadingCount++
		}
		if r.Scam {
			in.ScamCount++
		}
	}
	in.AverageRating = float64(starSum) / float64(in.RatingCount)
	return in
}

func toDomainSignals(e store.DomainCacheEntry) scoring.DomainSignals {
	sig := scoring.DomainSignals{Valid: true}
	if e.DomainAgeDays != nil {
		sig.AgeKnown = true
		sig.AgeDays = *e.DomainAgeDays
	}
	if e.SSLValid != nil {
		sig.SSLKnown = true
		sig.SSLValid = *e.SSLValid
	}
	if e.HTTPStatus != nil {
		sig.HTTPStatusKnown = true
		sig.HTTPStatus = *e.HTTPStatus
	}
	if e.GoogleSafeBrowsing != nil {
		sig.GoogleSafeBrowsing = *e.GoogleSafeBrowsing
	}
	if e.HybridAnalysisStatus != nil {
		sig.HybridAnalysisStatus = *e.HybridAnalysisStatus
	}
	return sig
}

func processingStatus(exists, valid bool) string {
	switch {
	case valid:
		return "enhanced_with_domain_analysis"
	case exists:
		return "community_with_basic_domain"
	default:
		return "community_only"
	}
}
