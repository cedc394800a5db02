package store

import (
	"context"
	"time"
)

const domainCacheTTL = 7 * 24 * time.Hour

// CheckDomainExists reports whether a domain cache row exists at all, and
// separately whether it is currently within its TTL.
func (s *Store) CheckDomainExists(ctx context.Context, domain string) (exists, valid bool, err error) {
	var expiresAt time.Time
	row := s.Pool.QueryRow(ctx, `SELECT cache_expires_at FROM domain_cache WHERE domain = $1`, domain)
	if err := row.Scan(&expiresAt); err != nil {
		if translateNoRows(err) == ErrNotFound {
			return false, false, nil
		}
		return false, false, err
	}
	return true, time.Now().Before(expiresAt), nil
}

// GetDomainCache returns the stored entry regardless of TTL validity —
// callers decide whether to trust an expired entry (surfaced via Valid).
func (s *Store) GetDomainCache(ctx context.Context, domain string) (DomainCacheEntry, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT domain, domain_age_days, ssl_valid, http_status,
		       google_safe_browsing_status, hybrid_analysis_status,
		       whois_data, threat_score, last_checked, cache_expires_at
		FROM domain_cache WHERE domain = $1`, domain)

	var out DomainCacheEntry
	err := row.Scan(&out.Domain, &out.DomainAgeDays, &out.SSLValid, &out.HTTPStatus,
		&out.GoogleSafeBrowsing, &out.HybridAnalysisStatus, &out.WhoisData,
		&out.ThreatScore, &out.LastChecked, &out.CacheExpiresAt)
	if err != nil {
		return DomainCacheEntry{}, translateNoRows(err)
	}
	return out, nil
}

// UpsertDomainCacheSafe replaces every signal field for a domain in one
// atomic statement, setting last_checked=now and cache_expires_at=now+7d.
// It never errors on a duplicate key: the ON CONFLICT clause always wins.
func (s *Store) UpsertDomainCacheSafe(ctx context.Context, e DomainCacheEntry) (DomainCacheEntry, error) {
	now := time.Now()
	e.LastChecked = now
	e.CacheExpiresAt = now.Add(domainCacheTTL)

	row := s.Pool.QueryRow(ctx, `
		INSERT INTO domain_cache (
			domain, domain_age_days, ssl_valid, http_status,
			google_safe_browsing_status, hybrid_analysis_status,
			whois_data, threat_score, last_checked, cache_expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (domain) DO UPDATE SET
			domain_age_days = EXCLUDED.domain_age_days,
			ssl_valid = EXCLUDED.ssl_valid,
			http_status = EXCLUDED.http_status,
			google_safe_browsing_status = EXCLUDED.google_safe_browsing_status,
			hybrid_analysis_status = EXCLUDED.hybrid_analysis_status,
			whois_data = EXCLUDED.whois_data,
			threat_score = EXCLUDED.threat_score,
			last_checked = EXCLUDED.last_checked,
			cache_expires_at = EXCLUDED.cache_expires_at
		RETURNING domain, domain_age_days, ssl_valid, http_status,
		          google_safe_browsing_status, hybrid_analysis_status,
		          whois_data, threat_score, last_checked, cache_expires_at`,
		e.Domain, e.DomainAgeDays, e.SSLValid, e.HTTPStatus,
		e.GoogleSafeBrowsing, e.HybridAnalysisStatus, e.WhoisData,
		e.ThreatScore, e.LastChecked, e.CacheExpiresAt)

	var out DomainCacheEntry
	if err := row.Scan(&out.Domain, &out.DomainAgeDays, &out.SSLValid, &out.HTTPStatus,
		&out.GoogleSafeBrowsing, &out.HybridAnalysisStatus, &out.WhoisData,
		&out.ThreatScore, &out.LastChecked, &out.CacheExpiresAt); err != nil {
		return DomainCacheEntry{}, err
	}
	return out, nil
}

// DeleteExpiredDomainCacheOlderThan removes domain cache entries whose TTL
// lapsed more than the given grace period ago (the janitor's "expired for
// >1 day" rule).
func (s *Store) DeleteExpiredDomainCacheOlderThan(ctx context.Context, grace time.Duration) (int64, error) {
	cutoff := time.Now().Add(-grace)
	tag, err := s.Pool.Exec(ctx, `DELETE FROM domain_cache WHERE cache_expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListExpiredDomains returns up to limit domains whose cache entry has
// lapsed, oldest first, for the nightly domain-refresh job.
func (s *Store) ListExpiredDomains(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT domain FROM domain_cache
		WHERE cache_expires_at < now()
		ORDER BY last_checked ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, err
		}
		out = append(out, domain)
	}
	return out, rows.Err()
}
