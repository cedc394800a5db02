package store

import (
	"context"
	"strings"
)

const maxBlacklistPenalty = 50.0
const blacklistSeverityWeight = 5.0

// CheckDomainBlacklist returns the blacklist verdict for a domain: whether
// any active pattern matches it (exact match or SQL LIKE-style match),
// the worst (highest severity) matching type, and the penalty
// min(sum(severity)*5, 50).
func (s *Store) CheckDomainBlacklist(ctx context.Context, domain string) (BlacklistVerdict, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT pattern, blacklist_type, severity FROM blacklist_entries WHERE active`)
	if err != nil {
		return BlacklistVerdict{}, err
	}
	defer rows.Close()

	var sum int
	var worstType string
	var maxSeverity int
	for rows.Next() {
		var pattern, blacklistType string
		var severity int
		if err := rows.Scan(&pattern, &blacklistType, &severity); err != nil {
			return BlacklistVerdict{}, err
		}
		if !matchesPattern(domain, pattern) {
			continue
		}
		sum += severity
		if severity >= maxSeverity {
			maxSeverity = severity
			worstType = blacklistType
		}
	}
	if err := rows.Err(); err != nil {
		return BlacklistVerdict{}, err
	}

	penalty := float64(sum) * blacklistSeverityWeight
	if penalty > maxBlacklistPenalty {
		penalty = maxBlacklistPenalty
	}

	return BlacklistVerdict{
		IsBlacklisted: sum > 0,
		WorstType:     worstType,
		MaxSeverity:   maxSeverity,
		Penalty:       penalty,
	}, nil
}

// matchesPattern implements the spec's "pattern == domain or domain LIKE
// pattern" rule using Go string operations rather than pushing a LIKE
// clause per row into the database, since the pattern set is small and
// fits comfortably in memory per call.
func matchesPattern(domain, pattern string) bool {
	if pattern == domain {
		return true
	}
	if !strings.Contains(pattern, "%") && !strings.Contains(pattern, "_") {
		return false
	}
	return likeMatch(domain, pattern)
}

// likeMatch is a minimal SQL LIKE matcher: '%' matches any run of
// characters, '_' matches exactly one.
func likeMatch(s, pattern string) bool {
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		for i := 0; i <= len(s); i++ {
			if likeMatchRunes(s[i:], p[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	}
}

// DetermineContentType returns the content type the first active rule for
// the domain assigns, in insertion order, where the rule's url_pattern is
// either null or matches url. Falls back to "general".
func (s *Store) DetermineContentType(ctx context.Context, url, domain string) (string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT content_type, url_pattern FROM content_type_rules
		WHERE domain = $1 AND active ORDER BY id ASC`, domain)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	for rows.Next() {
		var contentType string
		var pattern *string
		if err := rows.Scan(&contentType, &pattern); err != nil {
			return "", err
		}
		if pattern == nil || strings.Contains(url, *pattern) {
			return contentType, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return "general", nil
}

// LookupModifier returns the trust score modifier for a domain's content
// type, or 0 when no active rule matches.
func (s *Store) LookupModifier(ctx context.Context, domain, contentType string) (float64, error) {
	var modifier float64
	row := s.Pool.QueryRow(ctx, `
		SELECT trust_score_modifier FROM content_type_rules
		WHERE domain = $1 AND content_type = $2 AND active
		ORDER BY id ASC LIMIT 1`, domain, contentType)
	if err := row.Scan(&modifier); err != nil {
		if translateNoRows(err) == ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return modifier, nil
}

// InsertContentTypeRule inserts a new active rule, used by the rule
// learner and by static seeding.
func (s *Store) InsertContentTypeRule(ctx context.Context, r ContentTypeRule) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO content_type_rules
			(domain, content_type, url_pattern, trust_score_modifier, min_ratings_required, active, description)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6)`,
		r.Domain, r.ContentType, r.URLPattern, r.TrustScoreModifier, r.MinRatingsRequired, r.Description)
	return err
}

// HasActiveRule reports whether a domain already has at least one active
// content-type rule.
func (s *Store) HasActiveRule(ctx context.Context, domain string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM content_type_rules WHERE domain = $1 AND active)`, domain).Scan(&exists)
	return exists, err
}

// DeactivateContentTypeRule replaces deletion with deactivation, per the
// lifecycle rule that rule removal is always a deactivation.
func (s *Store) DeactivateContentTypeRule(ctx context.Context, id int64) error {
	_, err := s.Pool.Exec(ctx, `UPDATE content_type_rules SET active = FALSE WHERE id = $1`, id)
	return err
}

// CandidateDomainsForRuleLearning returns domains with at least
// minRatings ratings (summed over their url_stats rows) and no active
// content-type rule, up to limit domains, for the rule learner's daily scan.
func (s *Store) CandidateDomainsForRuleLearning(ctx context.Context, minRatings, limit int) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT us.domain FROM url_stats us
		WHERE NOT EXISTS (
			SELECT 1 FROM content_type_rules ctr
			WHERE ctr.domain = us.domain AND ctr.active
		  )
		GROUP BY us.domain
		HAVING SUM(us.rating_count) >= $1
		ORDER BY us.domain
		LIMIT $2`, minRatings, limit)
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

// SampleURLsForDomain returns up to limit stored URLs for a domain, used
// by the rule learner's URL-pattern inspection.
func (s *Store) SampleURLsForDomain(ctx context.Context, domain string, limit int) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT url FROM url_stats WHERE domain = $1 LIMIT $2`, domain, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		out = append(out, url)
	}
	return out, rows.Err()
}
