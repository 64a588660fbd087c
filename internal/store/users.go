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

const userColumns = `u.id, u.subject_id, u.email, u.display_name, u.role,
	u.company_id, c.name, u.active, u.created_at`

const userSelect = `SELECT ` + userColumns + `
	FROM users u LEFT JOIN companies c ON u.company_id = c.id`

func scanUser(row interface{ Scan(...interface{}) error }) (*types.User, error) {
	var u types.User
	var displayName, companyName sql.NullString
	var companyID sql.NullInt64
	var createdAt int64

	err := row.Scan(&u.ID, &u.SubjectID, &u.Email, &displayName, &u.Role,
		&companyID, &companyName, &u.Active, &createdAt)
	if err != nil {
		return nil, err
	}
	u.DisplayName = displayName.String
	u.CompanyID = nullableID(companyID)
	u.CompanyName = companyName.String
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.TLPClearance = tlp.Clearance(u.Role)
	return &u, nil
}

// GetOrCreateUserBySubject resolves a verified identity to a user row,
// creating an employee account on first login.
func (s *Store) GetOrCreateUserBySubject(ctx context.Context, subjectID, email, displayName string) (*types.User, error) {
	user, err := s.GetUserBySubject(ctx, subjectID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (subject_id, email, display_name, role, active) VALUES (?, ?, ?, 'employee', 1)`,
		subjectID, email, displayName)
	if err != nil {
		return nil, errors.NewTransientf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.NewTransientf("failed to read new user id: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

// GetUserBySubject returns the user for an identity provider subject.
func (s *Store) GetUserBySubject(ctx context.Context, subjectID string) (*types.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE u.subject_id = ?`, subjectID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", subjectID, errors.ErrNotFound)
	}
	if err != nil {
		return nil, errors.NewTransientf("failed to query user: %w", err)
	}
	return user, nil
}

// GetUserByID returns a user by primary key.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*types.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE u.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return nil, errors.NewTransientf("failed to query user: %w", err)
	}
	return user, nil
}

// UpdateUser persists display name, role and active flag.
func (s *Store) UpdateUser(ctx context.Context, user *types.User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET display_name = ?, role = ?, active = ? WHERE id = ?`,
		user.DisplayName, user.Role, user.Active, user.ID)
	if err != nil {
		return errors.NewTransientf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", user.ID, errors.ErrNotFound)
	}
	return nil
}

// ListUsersByCompany returns the active users of a company.
func (s *Store) ListUsersByCompany(ctx context.Context, companyID int64) ([]*types.User, error) {
	rows, err := s.db.QueryContext(ctx,
		userSelect+` WHERE u.company_id = ? AND u.active = 1 ORDER BY u.email`, companyID)
	if err != nil {
		return nil, errors.NewTransientf("failed to query company users: %w", err)
	}
	defer rows.Close()

	var users []*types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, errors.NewTransientf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SetUserCompany assigns the user to the named company, creating the
// company case-insensitively if it does not exist, and records the
// membership in the history table.
func (s *Store) SetUserCompany(ctx context.Context, userID int64, companyName string) (*types.Company, error) {
	companyName = strings.TrimSpace(companyName)
	if companyName == "" {
		return nil, fmt.Errorf("company name is empty: %w", errors.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewTransientf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	company, err := getOrCreateCompanyTx(ctx, tx, companyName)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET company_id = ? WHERE id = ?`, company.ID, userID); err != nil {
		return nil, errors.NewTransientf("failed to set user company: %w", err)
	}

	// Demote any previous primary membership, then record the new one.
	if _, err := tx.ExecContext(ctx,
		`UPDATE user_companies SET is_primary = 0 WHERE user_id = ?`, userID); err != nil {
		return nil, errors.NewTransientf("failed to demote prior memberships: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_companies (user_id, company_id, is_primary) VALUES (?, ?, 1)`,
		userID, company.ID); err != nil {
		return nil, errors.NewTransientf("failed to record membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewTransientf("failed to commit: %w", err)
	}
	return company, nil
}

// ListUserCompanies returns a user's membership history, newest first.
func (s *Store) ListUserCompanies(ctx context.Context, userID int64) ([]*types.UserCompany, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, company_id, is_primary, created_at
		 FROM user_companies WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, errors.NewTransientf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*types.UserCompany
	for rows.Next() {
		var m types.UserCompany
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.UserID, &m.CompanyID, &m.Primary, &createdAt); err != nil {
			return nil, errors.NewTransientf("failed to scan membership: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0).UTC()
		memberships = append(memberships, &m)
	}
	return memberships, rows.Err()
}
