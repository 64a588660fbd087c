package store

import (
	"context"
	"time"

	"github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/types"
)

// UpsertRating writes a relevance assessment, replacing any previous run's
// row for the same vulnerability and company.
func (s *Store) UpsertRating(ctx context.Context, rating *types.VulnerabilityRating) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vulnerability_ratings
			(vulnerability_id, company_id, relevance_score, reasoning,
			 relevant, vendor_match, use_case_match, rated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, cast(strftime('%s', 'now') as integer))
		 ON CONFLICT(vulnerability_id, company_id) DO UPDATE SET
			relevance_score = excluded.relevance_score,
			reasoning = excluded.reasoning,
			relevant = excluded.relevant,
			vendor_match = excluded.vendor_match,
			use_case_match = excluded.use_case_match,
			rated_at = excluded.rated_at`,
		rating.VulnerabilityID, rating.CompanyID, rating.RelevanceScore,
		rating.Reasoning, rating.Relevant, rating.VendorMatch, rating.UseCaseMatch)
	if err != nil {
		return errors.NewTransientf("failed to upsert rating: %w", err)
	}
	return nil
}

// RatingFilter narrows rating listings.
type RatingFilter struct {
	CompanyID    *int64
	RelevantOnly bool
	Limit        int
}

// ListRatings returns assessments, most recent first.
func (s *Store) ListRatings(ctx context.Context, filter RatingFilter) ([]*types.VulnerabilityRating, error) {
	query := `SELECT id, vulnerability_id, company_id, relevance_score, reasoning,
		relevant, vendor_match, use_case_match, rated_at FROM vulnerability_ratings WHERE 1=1`
	args := []interface{}{}

	if filter.CompanyID != nil {
		query += ` AND company_id = ?`
		args = append(args, *filter.CompanyID)
	}
	if filter.RelevantOnly {
		query += ` AND relevant = 1`
	}
	query += ` ORDER BY rated_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewTransientf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*types.VulnerabilityRating
	for rows.Next() {
		var r types.VulnerabilityRating
		var reasoning string
		var ratedAt int64
		if err := rows.Scan(&r.ID, &r.VulnerabilityID, &r.CompanyID, &r.RelevanceScore,
			&reasoning, &r.Relevant, &r.VendorMatch, &r.UseCaseMatch, &ratedAt); err != nil {
			return nil, errors.NewTransientf("failed to scan rating: %w", err)
		}
		r.Reasoning = reasoning
		r.RatedAt = time.Unix(ratedAt, 0).UTC()
		ratings = append(ratings, &r)
	}
	return ratings, rows.Err()
}
