package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/tlp"
	"github.com/vulnradar/vulnradar/internal/types"
)

const vulnColumns = `id, cve_id, title, description, source, source_url,
	published_date, severity_score, severity_level, tlp_rating,
	affected_products, vendor_id, duplicate, duplicate_of_id,
	created_at, updated_at`

const vulnSelect = `SELECT ` + vulnColumns + ` FROM vulnerabilities`

func scanVulnerability(row interface{ Scan(...interface{}) error }) (*types.Vulnerability, error) {
	var v types.Vulnerability
	var cveID, description, sourceURL, products sql.NullString
	var published, vendorID, duplicateOf sql.NullInt64
	var score sql.NullFloat64
	var createdAt, updatedAt int64

	err := row.Scan(&v.ID, &cveID, &v.Title, &description, &v.Source, &sourceURL,
		&published, &score, &v.SeverityLevel, &v.TLPRating,
		&products, &vendorID, &v.Duplicate, &duplicateOf,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	v.CVEID = cveID.String
	v.Description = description.String
	v.SourceURL = sourceURL.String
	v.AffectedProducts = products.String
	v.PublishedDate = nullableTime(published)
	v.VendorID = nullableID(vendorID)
	v.DuplicateOfID = nullableID(duplicateOf)
	if score.Valid {
		v.SeverityScore = &score.Float64
	}
	v.CreatedAt = time.Unix(createdAt, 0).UTC()
	v.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &v, nil
}

// IngestSummary reports what happened to a batch of candidates.
type IngestSummary struct {
	Inserted         int                     `json:"inserted"`
	Duplicates       int                     `json:"duplicates"`
	Skipped          int                     `json:"skipped"`
	InsertedIDs      []int64                 `json:"inserted_ids,omitempty"`
	InsertedByRating map[types.TLPRating]int `json:"inserted_by_rating,omitempty"`
}

// IngestVulnerabilities stores a candidate batch inside one transaction.
// Rejected records are skipped. Duplicate detection checks the CVE id
// first, then title and description, both case-insensitively; on a hit the
// existing row is flagged as a duplicate of itself and the candidate is
// dropped. The TLP rating is computed here so a row can never be stored
// unclassified.
func (s *Store) IngestVulnerabilities(ctx context.Context, candidates []types.Vulnerability, vendorID *int64) (*IngestSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewTransientf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	summary := &IngestSummary{InsertedByRating: make(map[types.TLPRating]int)}
	for i := range candidates {
		candidate := candidates[i]

		if types.IsRejectedRecord(candidate.Title, candidate.Description) {
			summary.Skipped++
			continue
		}

		existingID, err := findDuplicateTx(ctx, tx, &candidate)
		if err != nil {
			return nil, err
		}
		if existingID != 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE vulnerabilities SET duplicate = 1, duplicate_of_id = ?,
				 updated_at = cast(strftime('%s', 'now') as integer) WHERE id = ?`,
				existingID, existingID); err != nil {
				return nil, errors.NewTransientf("failed to flag duplicate: %w", err)
			}
			summary.Duplicates++
			continue
		}

		rating := tlp.Classify(candidate.Source, candidate.CVEID, candidate.PublishedDate)

		vID := candidate.VendorID
		if vID == nil {
			vID = vendorID
		}
		severity := candidate.SeverityLevel
		if severity == "" {
			severity = types.SeverityUnknown
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO vulnerabilities (cve_id, title, description, source, source_url,
				published_date, severity_score, severity_level, tlp_rating,
				affected_products, vendor_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nullIfEmpty(candidate.CVEID), candidate.Title, candidate.Description,
			candidate.Source, candidate.SourceURL, nullableUnix(candidate.PublishedDate),
			candidate.SeverityScore, severity, rating,
			candidate.AffectedProducts, vID)
		if err != nil {
			return nil, errors.NewTransientf("failed to insert vulnerability: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, errors.NewTransientf("failed to read new vulnerability id: %w", err)
		}
		summary.Inserted++
		summary.InsertedIDs = append(summary.InsertedIDs, id)
		summary.InsertedByRating[rating]++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewTransientf("failed to commit ingest: %w", err)
	}
	return summary, nil
}

// findDuplicateTx returns the id of an existing row the candidate collides
// with, or 0. Check order: CVE id, then title, then description.
func findDuplicateTx(ctx context.Context, tx *sql.Tx, candidate *types.Vulnerability) (int64, error) {
	var id int64

	if candidate.CVEID != "" {
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM vulnerabilities WHERE cve_id = ? LIMIT 1`,
			candidate.CVEID).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, errors.NewTransientf("failed to check cve duplicate: %w", err)
		}
	}

	if candidate.Title != "" {
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM vulnerabilities WHERE LOWER(title) = LOWER(?) LIMIT 1`,
			candidate.Title).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, errors.NewTransientf("failed to check title duplicate: %w", err)
		}
	}

	if candidate.Description != "" {
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM vulnerabilities WHERE description != '' AND LOWER(description) = LOWER(?) LIMIT 1`,
			candidate.Description).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, errors.NewTransientf("failed to check description duplicate: %w", err)
		}
	}

	return 0, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// VulnerabilityFilter narrows vulnerability listings.
type VulnerabilityFilter struct {
	Ratings           []types.TLPRating
	VendorIDs         []int64
	ExcludeDuplicates bool
	ExcludeUnknown    bool
	// ExcludeTaskedFor drops vulnerabilities that already have a non-closed
	// task for the given company.
	ExcludeTaskedFor *int64
	Search           string
	Limit            int
}

// ListVulnerabilities returns rows matching the filter, newest first.
func (s *Store) ListVulnerabilities(ctx context.Context, filter VulnerabilityFilter) ([]*types.Vulnerability, error) {
	query := vulnSelect + ` WHERE 1=1`
	args := []interface{}{}

	if len(filter.Ratings) > 0 {
		placeholders := make([]string, len(filter.Ratings))
		for i, r := range filter.Ratings {
			placeholders[i] = "?"
			args = append(args, r)
		}
		query += ` AND tlp_rating IN (` + strings.Join(placeholders, ", ") + `)`
	}

	if len(filter.VendorIDs) > 0 {
		placeholders := make([]string, len(filter.VendorIDs))
		for i, id := range filter.VendorIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += ` AND vendor_id IN (` + strings.Join(placeholders, ", ") + `)`
	}

	if filter.ExcludeDuplicates {
		query += ` AND duplicate = 0`
	}

	if filter.ExcludeUnknown {
		query += ` AND severity_level != ?`
		args = append(args, types.SeverityUnknown)
	}

	// Legacy rows imported before ingest-time filtering may still carry
	// rejection markers, in the title or the description.
	query += ` AND (description IS NULL OR (description NOT LIKE ? AND description NOT LIKE ?))
		 AND title NOT LIKE ? AND title NOT LIKE ?`
	args = append(args,
		"%"+types.RejectionMarkerDoNotUse+"%", "%"+types.RejectionMarkerReason+"%",
		"%"+types.RejectionMarkerDoNotUse+"%", "%"+types.RejectionMarkerReason+"%")

	if filter.ExcludeTaskedFor != nil {
		query += ` AND id NOT IN (
			SELECT vulnerability_id FROM tasks WHERE company_id = ? AND status != 'closed')`
		args = append(args, *filter.ExcludeTaskedFor)
	}

	if filter.Search != "" {
		query += ` AND (title LIKE ? OR cve_id LIKE ? OR description LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query += ` ORDER BY published_date DESC, id DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewTransientf("failed to query vulnerabilities: %w", err)
	}
	defer rows.Close()

	var vulns []*types.Vulnerability
	for rows.Next() {
		v, err := scanVulnerability(rows)
		if err != nil {
			return nil, errors.NewTransientf("failed to scan vulnerability: %w", err)
		}
		vulns = append(vulns, v)
	}
	return vulns, rows.Err()
}

// ListCompletedVulnerabilities returns vulnerabilities whose task for the
// company reached closed.
func (s *Store) ListCompletedVulnerabilities(ctx context.Context, companyID int64) ([]*types.Vulnerability, error) {
	rows, err := s.db.QueryContext(ctx,
		vulnSelect+` WHERE id IN (
			SELECT vulnerability_id FROM tasks WHERE company_id = ? AND status = 'closed')
		ORDER BY updated_at DESC, id DESC`, companyID)
	if err != nil {
		return nil, errors.NewTransientf("failed to query completed vulnerabilities: %w", err)
	}
	defer rows.Close()

	var vulns []*types.Vulnerability
	for rows.Next() {
		v, err := scanVulnerability(rows)
		if err != nil {
			return nil, errors.NewTransientf("failed to scan vulnerability: %w", err)
		}
		vulns = append(vulns, v)
	}
	return vulns, rows.Err()
}

// GetVulnerability returns one vulnerability by id.
func (s *Store) GetVulnerability(ctx context.Context, id int64) (*types.Vulnerability, error) {
	v, err := scanVulnerability(s.db.QueryRowContext(ctx, vulnSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("vulnerability %d: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return nil, errors.NewTransientf("failed to query vulnerability: %w", err)
	}
	return v, nil
}
