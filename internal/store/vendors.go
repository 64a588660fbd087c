package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/types"
)

const vendorSelect = `SELECT id, name, type, description, feed_keyword, created_at FROM vendors`

func scanVendor(row interface{ Scan(...interface{}) error }) (*types.Vendor, error) {
	var v types.Vendor
	var description, keyword sql.NullString
	var createdAt int64
	if err := row.Scan(&v.ID, &v.Name, &v.Type, &description, &keyword, &createdAt); err != nil {
		return nil, err
	}
	v.Description = description.String
	v.FeedKeyword = keyword.String
	v.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &v, nil
}

// SeedVendors upserts the vendor catalog by name. Existing rows keep their
// id so company subscriptions survive catalog updates.
func (s *Store) SeedVendors(ctx context.Context, vendors []types.Vendor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewTransientf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, v := range vendors {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO vendors (name, type, description, feed_keyword) VALUES (?, ?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET type = excluded.type,
			 description = excluded.description, feed_keyword = excluded.feed_keyword`,
			v.Name, v.Type, v.Description, v.FeedKeyword)
		if err != nil {
			return errors.NewTransientf("failed to upsert vendor %q: %w", v.Name, err)
		}
	}
	return tx.Commit()
}

// GetVendor returns a vendor by primary key.
func (s *Store) GetVendor(ctx context.Context, id int64) (*types.Vendor, error) {
	vendor, err := scanVendor(s.db.QueryRowContext(ctx, vendorSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("vendor %d: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return nil, errors.NewTransientf("failed to query vendor: %w", err)
	}
	return vendor, nil
}

// ListVendors returns the full catalog ordered by name.
func (s *Store) ListVendors(ctx context.Context) ([]*types.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, vendorSelect+` ORDER BY name`)
	if err != nil {
		return nil, errors.NewTransientf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	var vendors []*types.Vendor
	for rows.Next() {
		vendor, err := scanVendor(rows)
		if err != nil {
			return nil, errors.NewTransientf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, vendor)
	}
	return vendors, rows.Err()
}

// ReplaceCompanyVendors replaces a company's vendor subscriptions
// atomically. The junction is rebuilt, not patched: the caller always sends
// the complete set.
func (s *Store) ReplaceCompanyVendors(ctx context.Context, companyID int64, vendorIDs []int64, useCases map[int64]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewTransientf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM company_vendors WHERE company_id = ?`, companyID); err != nil {
		return errors.NewTransientf("failed to clear subscriptions: %w", err)
	}

	for _, vendorID := range vendorIDs {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM vendors WHERE id = ?`, vendorID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("vendor %d: %w", vendorID, errors.ErrNotFound)
		}
		if err != nil {
			return errors.NewTransientf("failed to check vendor: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO company_vendors (company_id, vendor_id, use_case_description, active)
			 VALUES (?, ?, ?, 1)`,
			companyID, vendorID, useCases[vendorID]); err != nil {
			return errors.NewTransientf("failed to add subscription: %w", err)
		}
	}

	return tx.Commit()
}

// ListCompanyVendors returns a company's active subscriptions with vendor
// details joined in.
func (s *Store) ListCompanyVendors(ctx context.Context, companyID int64) ([]*types.CompanyVendor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cv.id, cv.company_id, cv.vendor_id, v.name, v.type,
			cv.use_case_description, cv.active, cv.created_at
		 FROM company_vendors cv JOIN vendors v ON cv.vendor_id = v.id
		 WHERE cv.company_id = ? AND cv.active = 1 ORDER BY v.name`, companyID)
	if err != nil {
		return nil, errors.NewTransientf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	return scanCompanyVendors(rows)
}

// ListAllCompanyVendors returns every subscription row, for admin review.
func (s *Store) ListAllCompanyVendors(ctx context.Context) ([]*types.CompanyVendor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cv.id, cv.company_id, cv.vendor_id, v.name, v.type,
			cv.use_case_description, cv.active, cv.created_at
		 FROM company_vendors cv JOIN vendors v ON cv.vendor_id = v.id
		 ORDER BY cv.company_id, v.name`)
	if err != nil {
		return nil, errors.NewTransientf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	return scanCompanyVendors(rows)
}

func scanCompanyVendors(rows *sql.Rows) ([]*types.CompanyVendor, error) {
	var subs []*types.CompanyVendor
	for rows.Next() {
		var cv types.CompanyVendor
		var useCase sql.NullString
		var createdAt int64
		if err := rows.Scan(&cv.ID, &cv.CompanyID, &cv.VendorID, &cv.VendorName,
			&cv.VendorType, &useCase, &cv.Active, &createdAt); err != nil {
			return nil, errors.NewTransientf("failed to scan subscription: %w", err)
		}
		cv.UseCase = useCase.String
		cv.CreatedAt = time.Unix(createdAt, 0).UTC()
		subs = append(subs, &cv)
	}
	return subs, rows.Err()
}
