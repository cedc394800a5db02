package rulelearner

import "testing"

func TestDetectContentTypeKnownDomain(t *testing.T) {
	if got := DetectContentType("youtube.com", nil); got != "video" {
		t.Errorf("got %q, want video", got)
	}
}

func TestDetectContentTypeURLPattern(t *testing.T) {
	got := DetectContentType("example-blog.com", []string{"https://example-blog.com/article/my-post"})
	if got != "article" {
		t.Errorf("got %q, want article", got)
	}
}

func TestDetectContentTypeFallsBackToGeneral(t *testing.T) {
	got := DetectContentType("unknown-site.example", []string{"https://unknown-site.example/page"})
	if got != "general" {
		t.Errorf("got %q, want general", got)
	}
}

func TestAdjustForReportsNoFlags(t *testing.T) {
	modifier, minRatings := AdjustForReports(RatingAggregate{Count: 10})
	if modifier != 0 || minRatings != 1 {
		t.Errorf("got modifier=%v minRatings=%v, want 0/1", modifier, minRatings)
	}
}

func TestAdjustForReportsSpamRatio(t *testing.T) {
	// 1 spam out of 4 = 0.25, which is > 0.2 (misleading threshold would
	// not apply here since this is spam, not misleading) and <= 0.3 so the
	// spam penalty itself does NOT trigger; this mirrors the spec's
	// worked example (scenario 6) where a 0.25 spam ratio produces no
	// spam penalty.
	modifier, minRatings := AdjustForReports(RatingAggregate{Count: 4, SpamRatio: 0.25})
	if modifier != 0 || minRatings != 1 {
		t.Errorf("got modifier=%v minRatings=%v, want 0/1", modifier, minRatings)
	}
}

func TestAdjustForReportsClampsModifier(t *testing.T) {
	modifier, minRatings := AdjustForReports(RatingAggregate{
		Count: 10, SpamRatio: 0.9, MisleadingRatio: 0.9, ScamRatio: 0.9,
	})
	if modifier != -10 {
		t.Errorf("got modifier=%v, want clamped to -10", modifier)
	}
	if minRatings != 10 {
		t.Errorf("got minRatings=%v, want clamped to 10", minRatings)
	}
}
