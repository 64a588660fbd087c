package store

import (
	"context"

	"github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/observability"
)

// MetricsSnapshot counts current rows for the metrics collector.
func (s *Store) MetricsSnapshot(ctx context.Context) (*observability.StatsSnapshot, error) {
	snap := &observability.StatsSnapshot{
		VulnerabilitiesByTLP: make(map[string]int),
		TasksByStatus:        make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tlp_rating, COUNT(*) FROM vulnerabilities WHERE duplicate = 0 GROUP BY tlp_rating`)
	if err != nil {
		return nil, errors.NewTransientf("failed to count vulnerabilities: %w", err)
	}
	for rows.Next() {
		var rating string
		var count int
		if err := rows.Scan(&rating, &count); err != nil {
			rows.Close()
			return nil, errors.NewTransientf("failed to scan count: %w", err)
		}
		snap.VulnerabilitiesByTLP[rating] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.NewTransientf("failed to iterate counts: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, errors.NewTransientf("failed to count tasks: %w", err)
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, errors.NewTransientf("failed to scan count: %w", err)
		}
		snap.TasksByStatus[status] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.NewTransientf("failed to iterate counts: %w", err)
	}

	singles := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM vulnerabilities WHERE duplicate = 1`, &snap.Duplicates},
		{`SELECT COUNT(*) FROM users WHERE active = 1`, &snap.Users},
		{`SELECT COUNT(*) FROM companies`, &snap.Companies},
		{`SELECT COUNT(*) FROM vendors`, &snap.Vendors},
	}
	for _, q := range singles {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, errors.NewTransientf("failed to count rows: %w", err)
		}
	}

	return snap, nil
}
