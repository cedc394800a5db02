package store

import (
	"context"
	"errors"
	"time"
)

// ErrCooldown is returned by AppendRating when the same (fingerprint, user)
// pair already has a rating created within the 24h cooldown window.
var ErrCooldown = errors.New("store: rating submitted within cooldown window")

const cooldownWindow = 24 * time.Hour

// AppendRating inserts a new rating, enforcing the 24h per-(fingerprint,user_id)
// cooldown. It is atomic: the existence check and the insert happen inside
// one transaction so two concurrent submissions cannot both succeed.
func (s *Store) AppendRating(ctx context.Context, r Rating) (Rating, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Rating{}, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ratings
			WHERE fingerprint = $1 AND user_id = $2 AND created_at > $3
		)`, r.Fingerprint, r.UserID, time.Now().Add(-cooldownWindow)).Scan(&exists)
	if err != nil {
		return Rating{}, err
	}
	if exists {
		return Rating{}, ErrCooldown
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO ratings (fingerprint, user_id, stars, spam, misleading, scam)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, fingerprint, user_id, stars, spam, misleading, scam, processed, created_at`,
		r.Fingerprint, r.UserID, r.Stars, r.Spam, r.Misleading, r.Scam)

	var out Rating
	if err := row.Scan(&out.ID, &out.Fingerprint, &out.UserID, &out.Stars,
		&out.Spam, &out.Misleading, &out.Scam, &out.Processed, &out.CreatedAt); err != nil {
		return Rating{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Rating{}, err
	}
	return out, nil
}

// ListUnprocessedFingerprints returns the distinct set of fingerprints
// with at least one unprocessed rating, capped at limit (the aggregator's
// soft per-tick cap).
func (s *Store) ListUnprocessedFingerprints(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT DISTINCT fingerprint FROM ratings WHERE NOT processed LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

// ReadForFingerprint returns every rating (processed or not) for a
// fingerprint, used both by the aggregator to recompute counts and by the
// rule learner to inspect rating history.
func (s *Store) ReadForFingerprint(ctx context.Context, fingerprint string) ([]Rating, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, fingerprint, user_id, stars, spam, misleading, scam, processed, created_at
		FROM ratings WHERE fingerprint = $1`, fingerprint)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rating
	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.ID, &r.Fingerprint, &r.UserID, &r.Stars,
			&r.Spam, &r.Misleading, &r.Scam, &r.Processed, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkProcessed flags every rating for the given fingerprints as
// processed. Idempotent: re-marking an already-processed rating is a
// no-op.
func (s *Store) MarkProcessed(ctx context.Context, fingerprints []string) error {
	if len(fingerprints) == 0 {
		return nil
	}
	_, err := s.Pool.Exec(ctx, `
		UPDATE ratings SET processed = TRUE
		WHERE fingerprint = ANY($1) AND NOT processed`, fingerprints)
	return err
}

// DeleteProcessedOlderThan removes processed ratings older than the given
// retention window. It never touches unprocessed rows regardless of age.
func (s *Store) DeleteProcessedOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	tag, err := s.Pool.Exec(ctx, `
		DELETE FROM ratings WHERE processed AND created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
