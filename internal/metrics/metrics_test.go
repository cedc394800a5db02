package metrics

import "testing"

func TestCacheStatsReflectsIncrements(t *testing.T) {
	r := New()
	r.DomainCacheHits.Add(3)
	r.DomainCacheMisses.Add(1)

	stats := r.CacheStats()
	if stats.DomainCacheHits != 3 {
		t.Errorf("got hits=%d, want 3", stats.DomainCacheHits)
	}
	if stats.DomainCacheMisses != 1 {
		t.Errorf("got misses=%d, want 1", stats.DomainCacheMisses)
	}
}

func TestErrorStatsByKind(t *testing.T) {
	r := New()
	r.APIErrors.WithLabelValues("ValidationError").Add(2)
	r.APIErrors.WithLabelValues("AuthError").Add(1)

	stats := r.ErrorStats()
	if stats.ByKind["ValidationError"] != 2 {
		t.Errorf("got ValidationError=%d, want 2", stats.ByKind["ValidationError"])
	}
	if stats.ByKind["AuthError"] != 1 {
		t.Errorf("got AuthError=%d, want 1", stats.ByKind["AuthError"])
	}
}
