package aggregator

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/trustscore/trustscored/internal/store"
)

type fakeRatings struct {
	unprocessed map[string][]store.Rating
	all         map[string][]store.Rating
	marked      []string
}

func (f *fakeRatings) ListUnprocessedFingerprints(ctx context.Context, limit int) ([]string, error) {
	var out []string
	for fp := range f.unprocessed {
		out = append(out, fp)
	}
	return out, nil
}

func (f *fakeRatings) ReadForFingerprint(ctx context.Context, fp string) ([]store.Rating, error) {
	return f.all[fp], nil
}

func (f *fakeRatings) MarkProcessed(ctx context.Context, fps []string) error {
	f.marked = append(f.marked, fps...)
	return nil
}

type fakeDomains struct {
	exists, valid bool
	entry         store.DomainCacheEntry
}

func (f *fakeDomains) CheckDomainExists(ctx context.Context, domain string) (bool, bool, error) {
	return f.exists, f.valid, nil
}

func (f *fakeDomains) GetDomainCache(ctx context.Context, domain string) (store.DomainCacheEntry, error) {
	return f.entry, nil
}

type fakeRules struct{}

func (fakeRules) CheckDomainBlacklist(ctx context.Context, domain string) (store.BlacklistVerdict, error) {
	return store.BlacklistVerdict{}, nil
}

func (fakeRules) DetermineContentType(ctx context.Context, url, domain string) (string, error) {
	return "general", nil
}

func (fakeRules) LookupModifier(ctx context.Context, domain, contentType string) (float64, error) {
	return 0, nil
}

type fakeStats struct {
	rows map[string]store.URLStats
}

func (f *fakeStats) GetURLStats(ctx context.Context, fingerprint string) (store.URLStats, error) {
	if row, ok := f.rows[fingerprint]; ok {
		return row, nil
	}
	return store.URLStats{}, store.ErrNotFound
}

func (f *fakeStats) UpsertURLStats(ctx context.Context, stats store.URLStats) error {
	if f.rows == nil {
		f.rows = map[string]store.URLStats{}
	}
	f.rows[stats.Fingerprint] = stats
	return nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecomputeFingerprintCommunityOnly(t *testing.T) {
	ratings := &fakeRatings{all: map[string][]store.Rating{
		"fp1": {
			{Fingerprint: "fp1", Stars: 5},
		},
	}}
	agg := New(ratings, &fakeDomains{}, fakeRules{}, &fakeStats{}, silentLogger())

	stats, err := agg.RecomputeFingerprint(context.Background(), "fp1", "https://example.com/", "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.ProcessingStatus != "community_only" {
		t.Errorf("got status %q, want community_only", stats.ProcessingStatus)
	}
	if stats.RatingCount != 1 {
		t.Errorf("got rating_count %d, want 1", stats.RatingCount)
	}
}

func TestRecomputeFingerprintEnhanced(t *testing.T) {
	ratings := &fakeRatings{all: map[string][]store.Rating{
		"fp1": {{Fingerprint: "fp1", Stars: 5}},
	}}
	domains := &fakeDomains{exists: true, valid: true, entry: store.DomainCacheEntry{}}
	agg := New(ratings, domains, fakeRules{}, &fakeStats{}, silentLogger())

	stats, err := agg.RecomputeFingerprint(context.Background(), "fp1", "https://example.com/", "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.ProcessingStatus != "enhanced_with_domain_analysis" {
		t.Errorf("got status %q, want enhanced_with_domain_analysis", stats.ProcessingStatus)
	}
}

func TestTickMarksProcessedFingerprints(t *testing.T) {
	ratings := &fakeRatings{
		unprocessed: map[string][]store.Rating{"fp1": nil},
		all:         map[string][]store.Rating{"fp1": {{Fingerprint: "fp1", Stars: 3}}},
	}
	stats := &fakeStats{rows: map[string]store.URLStats{
		"fp1": {Fingerprint: "fp1", URL: "https://example.com/", Domain: "example.com"},
	}}
	agg := New(ratings, &fakeDomains{}, fakeRules{}, stats, silentLogger())

	n, err := agg.Tick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d processed, want 1", n)
	}
	if len(ratings.marked) != 1 || ratings.marked[0] != "fp1" {
		t.Errorf("got marked=%v, want [fp1]", ratings.marked)
	}
}
