package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/types"
)

func scanCompany(row interface{ Scan(...interface{}) error }) (*types.Company, error) {
	var c types.Company
	var description, industry sql.NullString
	var createdAt, updatedAt int64
	if err := row.Scan(&c.ID, &c.Name, &description, &industry, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.Description = description.String
	c.Industry = industry.String
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &c, nil
}

const companySelect = `SELECT id, name, description, industry, created_at, updated_at FROM companies`

// getOrCreateCompanyTx finds a company by name, ignoring case, creating it
// when absent. Matching is case-insensitive so "ACME" and "Acme" resolve to
// one row; the first spelling wins.
func getOrCreateCompanyTx(ctx context.Context, tx *sql.Tx, name string) (*types.Company, error) {
	company, err := scanCompany(tx.QueryRowContext(ctx,
		companySelect+` WHERE LOWER(name) = LOWER(?)`, name))
	if err == nil {
		return company, nil
	}
	if err != sql.ErrNoRows {
		return nil, errors.NewTransientf("failed to query company: %w", err)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO companies (name) VALUES (?)`, name)
	if err != nil {
		return nil, errors.NewTransientf("failed to create company: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.NewTransientf("failed to read new company id: %w", err)
	}

	company, err = scanCompany(tx.QueryRowContext(ctx, companySelect+` WHERE id = ?`, id))
	if err != nil {
		return nil, errors.NewTransientf("failed to load new company: %w", err)
	}
	return company, nil
}

// CreateCompany inserts a company with profile fields. Names are unique
// ignoring case; creating an existing company returns the stored row
// untouched.
func (s *Store) CreateCompany(ctx context.Context, company *types.Company) (*types.Company, error) {
	existing, err := scanCompany(s.db.QueryRowContext(ctx,
		companySelect+` WHERE LOWER(name) = LOWER(?)`, company.Name))
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return nil, errors.NewTransientf("failed to query company: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (name, description, industry) VALUES (?, ?, ?)`,
		company.Name, company.Description, company.Industry)
	if err != nil {
		return nil, errors.NewTransientf("failed to create company: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetCompany(ctx, id)
}

// UpdateCompany persists profile fields.
func (s *Store) UpdateCompany(ctx context.Context, company *types.Company) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET name = ?, description = ?, industry = ?,
		 updated_at = cast(strftime('%s', 'now') as integer) WHERE id = ?`,
		company.Name, company.Description, company.Industry, company.ID)
	if err != nil {
		return errors.NewTransientf("failed to update company: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("company %d: %w", company.ID, errors.ErrNotFound)
	}
	return nil
}

// GetCompany returns a company by primary key.
func (s *Store) GetCompany(ctx context.Context, id int64) (*types.Company, error) {
	company, err := scanCompany(s.db.QueryRowContext(ctx, companySelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("company %d: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return nil, errors.NewTransientf("failed to query company: %w", err)
	}
	return company, nil
}

// ListCompanies returns all companies ordered by name.
func (s *Store) ListCompanies(ctx context.Context) ([]*types.Company, error) {
	rows, err := s.db.QueryContext(ctx, companySelect+` ORDER BY name`)
	if err != nil {
		return nil, errors.NewTransientf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []*types.Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, errors.NewTransientf("failed to scan company: %w", err)
		}
		companies = append(companies, company)
	}
	return companies, rows.Err()
}
