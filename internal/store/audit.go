package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/types"
)

// AppendAudit records an action. Audit writes are best-effort from the
// caller's point of view but failures are still reported.
func (s *Store) AppendAudit(ctx context.Context, entry *types.AuditLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (user_id, action_type, entity_type, entity_id, details, ip_address)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.ActionType, entry.EntityType, entry.EntityID,
		entry.Details, entry.IPAddress)
	if err != nil {
		return errors.NewTransientf("failed to append audit entry: %w", err)
	}
	return nil
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	UserID     *int64
	ActionType string
	Limit      int
}

// ListAudits returns audit entries, newest first.
func (s *Store) ListAudits(ctx context.Context, filter AuditFilter) ([]*types.AuditLog, error) {
	query := `SELECT id, user_id, action_type, entity_type, entity_id, details, ip_address, created_at
		FROM audit_logs WHERE 1=1`
	args := []interface{}{}

	if filter.UserID != nil {
		query += ` AND user_id = ?`
		args = append(args, *filter.UserID)
	}
	if filter.ActionType != "" {
		query += ` AND action_type = ?`
		args = append(args, filter.ActionType)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewTransientf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*types.AuditLog
	for rows.Next() {
		var e types.AuditLog
		var userID, entityID sql.NullInt64
		var entityType, details, ip sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.ID, &userID, &e.ActionType, &entityType, &entityID,
			&details, &ip, &createdAt); err != nil {
			return nil, errors.NewTransientf("failed to scan audit entry: %w", err)
		}
		e.UserID = nullableID(userID)
		e.EntityType = entityType.String
		e.EntityID = nullableID(entityID)
		e.Details = details.String
		e.IPAddress = ip.String
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
