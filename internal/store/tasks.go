package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/types"
	"github.com/vulnradar/vulnradar/internal/workflow"
)

const taskColumns = `id, vulnerability_id, company_id, assigned_by_user_id,
	assigned_to_user_id, priority, status, notes, resolved_at, created_at, updated_at`

const taskSelect = `SELECT ` + taskColumns + ` FROM tasks`

func scanTask(row interface{ Scan(...interface{}) error }) (*types.Task, error) {
	var t types.Task
	var notes sql.NullString
	var resolvedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&t.ID, &t.VulnerabilityID, &t.CompanyID, &t.AssignedByID,
		&t.AssignedToID, &t.Priority, &t.Status, &notes, &resolvedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.ResolvedAt = nullableTime(resolvedAt)
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	decoded, err := workflow.DecodeNotes(notes.String)
	if err != nil {
		return nil, err
	}
	t.Notes = decoded
	return &t, nil
}

// CreateTask inserts a task after verifying no non-closed task exists for
// the same vulnerability and company. The check and insert share a
// transaction so concurrent claims cannot both pass.
func (s *Store) CreateTask(ctx context.Context, task *types.Task) (*types.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewTransientf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM tasks WHERE vulnerability_id = ? AND company_id = ?
		 AND status != 'closed' LIMIT 1`,
		task.VulnerabilityID, task.CompanyID).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("open task %d already exists for this vulnerability: %w",
			existing, errors.ErrConflict)
	}
	if err != sql.ErrNoRows {
		return nil, errors.NewTransientf("failed to check active tasks: %w", err)
	}

	notes, err := workflow.EncodeNotes(task.Notes)
	if err != nil {
		return nil, errors.NewPermanent(err)
	}
	status := task.Status
	if status == "" {
		status = types.StatusPending
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (vulnerability_id, company_id, assigned_by_user_id,
			assigned_to_user_id, priority, status, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.VulnerabilityID, task.CompanyID, task.AssignedByID,
		task.AssignedToID, task.Priority, status, notes)
	if err != nil {
		return nil, errors.NewTransientf("failed to insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.NewTransientf("failed to read new task id: %w", err)
	}

	created, err := scanTask(tx.QueryRowContext(ctx, taskSelect+` WHERE id = ?`, id))
	if err != nil {
		return nil, errors.NewTransientf("failed to load new task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewTransientf("failed to commit task: %w", err)
	}
	return created, nil
}

// UpdateTask persists status, assignee, priority, notes and resolved_at.
func (s *Store) UpdateTask(ctx context.Context, task *types.Task) error {
	notes, err := workflow.EncodeNotes(task.Notes)
	if err != nil {
		return errors.NewPermanent(err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET assigned_to_user_id = ?, priority = ?, status = ?,
			notes = ?, resolved_at = ?,
			updated_at = cast(strftime('%s', 'now') as integer)
		 WHERE id = ?`,
		task.AssignedToID, task.Priority, task.Status, notes,
		nullableUnix(task.ResolvedAt), task.ID)
	if err != nil {
		return errors.NewTransientf("failed to update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %d: %w", task.ID, errors.ErrNotFound)
	}
	return nil
}

// GetTask returns one task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (*types.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, taskSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %d: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return nil, errors.NewTransientf("failed to query task: %w", err)
	}
	return task, nil
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	CompanyID  *int64
	AssignedTo *int64
	Status     types.TaskStatus
	Limit      int
}

// ListTasks returns tasks matching the filter, newest first.
func (s *Store) ListTasks(ctx context.Context, filter TaskFilter) ([]*types.Task, error) {
	query := taskSelect + ` WHERE 1=1`
	args := []interface{}{}

	if filter.CompanyID != nil {
		query += ` AND company_id = ?`
		args = append(args, *filter.CompanyID)
	}
	if filter.AssignedTo != nil {
		query += ` AND assigned_to_user_id = ?`
		args = append(args, *filter.AssignedTo)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}

	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewTransientf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, errors.NewTransientf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
