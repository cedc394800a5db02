// Package rulelearner mines rating history into per-domain content-type
// rules: a content type detected from domain/URL heuristics plus a trust
// score modifier and minimum-ratings threshold adjusted by report ratios.
package rulelearner

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/trustscore/trustscored/internal/store"
)

const (
	minRatingsToConsider = 3
	maxDomainsPerRun      = 50
	maxSampleURLs         = 5
)

var knownDomainContentTypes = map[string]string{
	"youtube.com":    "video",
	"vimeo.com":      "video",
	"twitch.tv":      "video",
	"twitter.com":    "social",
	"x.com":          "social",
	"facebook.com":   "social",
	"instagram.com":  "social",
	"reddit.com":     "social",
	"github.com":     "code",
	"gitlab.com":     "code",
	"stackoverflow.com": "code",
	"cnn.com":        "news",
	"bbc.com":        "news",
	"nytimes.com":    "news",
	"reuters.com":    "news",
	"coursera.org":   "education",
	"udemy.com":      "education",
	"khanacademy.org": "education",
	"amazon.com":     "ecommerce",
	"ebay.com":       "ecommerce",
	"etsy.com":       "ecommerce",
	"docs.google.com": "docs",
	"wikipedia.org":  "docs",
	"linkedin.com":   "professional",
	"netflix.com":    "entertainment",
	"spotify.com":    "entertainment",
}

var urlPatternContentTypes = []struct {
	substr      string
	contentType string
}{
	{"/watch", "video"},
	{"/video/", "video"},
	{"/article/", "article"},
	{"/news/", "article"},
	{"/blog/", "article"},
	{"/product/", "ecommerce"},
	{"/shop/", "ecommerce"},
	{"/item/", "ecommerce"},
}

// RatingAggregate is the subset of a domain's rating history the learner
// needs: total count and the fraction flagged under each report type.
type RatingAggregate struct {
	Count            int
	SpamRatio        float64
	MisleadingRatio  float64
	ScamRatio        float64
}

// DomainStore is the slice of the store the rule learner depends on,
// declared narrowly so the decision logic can be tested without a live
// database.
type DomainStore interface {
	CandidateDomainsForRuleLearning(ctx context.Context, minRatings, limit int) ([]string, error)
	SampleURLsForDomain(ctx context.Context, domain string, limit int) ([]string, error)
	ReadForFingerprint(ctx context.Context, fingerprint string) ([]store.Rating, error)
	InsertContentTypeRule(ctx context.Context, r store.ContentTypeRule) error
}

// Learner runs the daily rule-mining job.
type Learner struct {
	store  DomainStore
	logger *slog.Logger
}

func New(s DomainStore, logger *slog.Logger) *Learner {
	return &Learner{store: s, logger: logger}
}

// Run scans domains with at least minRatingsToConsider ratings and no
// active rule, up to maxDomainsPerRun per invocation, and inserts a rule
// for each.
func (l *Learner) Run(ctx context.Context, aggregateByDomain func(domain string) (RatingAggregate, error)) (int, error) {
	domains, err := l.store.CandidateDomainsForRuleLearning(ctx, minRatingsToConsider, maxDomainsPerRun)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, domain := range domains {
		agg, err := aggregateByDomain(domain)
		if err != nil {
			l.logger.Error("rule learner: failed to aggregate domain", "domain", domain, "err", err)
			continue
		}
		if agg.Count < minRatingsToConsider {
			continue
		}

		urls, err := l.store.SampleURLsForDomain(ctx, domain, maxSampleURLs)
		if err != nil {
			l.logger.Error("rule learner: failed to sample urls", "domain", domain, "err", err)
			continue
		}

		contentType := DetectContentType(domain, urls)
		modifier, minRatings := AdjustForReports(agg)

		rule := store.ContentTypeRule{
			Domain:             domain,
			ContentType:        contentType,
			TrustScoreModifier: modifier,
			MinRatingsRequired: minRatings,
			Active:             true,
			Description:        ruleDescription(agg.Count),
		}
		if err := l.store.InsertContentTypeRule(ctx, rule); err != nil {
			l.logger.Error("rule learner: failed to insert rule", "domain", domain, "err", err)
			continue
		}
		inserted++
	}

	return inserted, nil
}

// DetectContentType implements the fixed decision list: known-domain
// lookup first, then URL-pattern inspection of the sample URLs, falling
// back to "general".
func DetectContentType(domain string, sampleURLs []string) string {
	if ct, ok := knownDomainContentTypes[domain]; ok {
		return ct
	}
	for _, url := range sampleURLs {
		for _, rule := range urlPatternContentTypes {
			if strings.Contains(url, rule.substr) {
				return rule.contentType
			}
		}
	}
	return "general"
}

// AdjustForReports derives the trust score modifier and minimum-ratings
// threshold from a domain's report ratios, clamped per spec.
func AdjustForReports(agg RatingAggregate) (modifier float64, minRatings int) {
	modifier = 0
	minRatings = 1

	if agg.SpamRatio > 0.3 {
		modifier -= 5
		minRatings += 2
	}
	if agg.MisleadingRatio > 0.2 {
		modifier -= 3
		minRatings += 1
	}
	if agg.ScamRatio > 0.1 {
		modifier -= 8
		minRatings += 3
	}

	if modifier < -10 {
		modifier = -10
	}
	if modifier > 10 {
		modifier = 10
	}
	if minRatings < 1 {
		minRatings = 1
	}
	if minRatings > 10 {
		minRatings = 10
	}
	return modifier, minRatings
}

func ruleDescription(ratingCount int) string {
	return "learned from " + strconv.Itoa(ratingCount) + " ratings"
}
