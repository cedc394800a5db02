package store

import (
	"context"
	"time"
)

// GetURLStats returns the stored stats row for a fingerprint, or
// ErrNotFound if none exists yet.
func (s *Store) GetURLStats(ctx context.Context, fingerprint string) (URLStats, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT fingerprint, url, domain, content_type, rating_count, avg_rating,
		       spam_count, misleading_count, scam_count, community_score,
		       domain_score, final_score, processing_status,
		       domain_analysis_processed, last_updated
		FROM url_stats WHERE fingerprint = $1`, fingerprint)

	var out URLStats
	err := row.Scan(&out.Fingerprint, &out.URL, &out.Domain, &out.ContentType, &out.RatingCount,
		&out.AvgRating, &out.SpamCount, &out.MisleadingCount, &out.ScamCount,
		&out.CommunityScore, &out.DomainScore, &out.FinalScore, &out.ProcessingStatus,
		&out.DomainAnalysisProcessed, &out.LastUpdated)
	if err != nil {
		return URLStats{}, translateNoRows(err)
	}
	return out, nil
}

// UpsertURLStats atomically replaces every score/count field for the
// fingerprint. When domain is empty the previously stored domain is kept
// rather than overwritten, per the "preserving domain if the caller passes
// null" contract.
func (s *Store) UpsertURLStats(ctx context.Context, stats URLStats) error {
	stats.LastUpdated = time.Now()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO url_stats (
			fingerprint, url, domain, content_type, rating_count, avg_rating,
			spam_count, misleading_count, scam_count, community_score,
			domain_score, final_score, processing_status,
			domain_analysis_processed, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (fingerprint) DO UPDATE SET
			url = CASE WHEN EXCLUDED.url = '' THEN url_stats.url ELSE EXCLUDED.url END,
			domain = CASE WHEN EXCLUDED.domain = '' THEN url_stats.domain ELSE EXCLUDED.domain END,
			content_type = EXCLUDED.content_type,
			rating_count = EXCLUDED.rating_count,
			avg_rating = EXCLUDED.avg_rating,
			spam_count = EXCLUDED.spam_count,
			misleading_count = EXCLUDED.misleading_count,
			scam_count = EXCLUDED.scam_count,
			community_score = EXCLUDED.community_score,
			domain_score = EXCLUDED.domain_score,
			final_score = EXCLUDED.final_score,
			processing_status = EXCLUDED.processing_status,
			domain_analysis_processed = EXCLUDED.domain_analysis_processed,
			last_updated = EXCLUDED.last_updated`,
		stats.Fingerprint, stats.URL, stats.Domain, stats.ContentType, stats.RatingCount,
		stats.AvgRating, stats.SpamCount, stats.MisleadingCount, stats.ScamCount,
		stats.CommunityScore, stats.DomainScore, stats.FinalScore, stats.ProcessingStatus,
		stats.DomainAnalysisProcessed, stats.LastUpdated)
	return err
}

// DeleteStaleIdleSince removes URL Stats rows untouched since the given
// time, implementing the stale-URL-stats sweep (idle > 1 month).
func (s *Store) DeleteStaleIdleSince(ctx context.Context, idleSince time.Time) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM url_stats WHERE last_updated < $1`, idleSince)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DomainRatingAggregate sums rating counts and report counts across every
// url_stats row for a domain, feeding the rule learner's report-ratio
// calculation without an N+1 lookup per sampled URL.
func (s *Store) DomainRatingAggregate(ctx context.Context, domain string) (count, spam, misleading, scam int, err error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(rating_count), 0), COALESCE(SUM(spam_count), 0),
		       COALESCE(SUM(misleading_count), 0), COALESCE(SUM(scam_count), 0)
		FROM url_stats WHERE domain = $1`, domain)
	err = row.Scan(&count, &spam, &misleading, &scam)
	return count, spam, misleading, scam, err
}
