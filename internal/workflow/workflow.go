// Package workflow holds the task lifecycle rules: which status transitions
// are legal for which role, how a task's priority is derived from the
// vulnerability's severity, and the note log codec.
package workflow

import (
	"time"

	"github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/types"
)

// ActiveStatuses are the statuses that count toward the one-open-task
// limit per vulnerability and company. Only closing a task frees the slot.
var ActiveStatuses = []types.TaskStatus{
	types.StatusPending, types.StatusInProgress, types.StatusResolved,
}

// IsActive reports whether a task in this status blocks creation of another
// task for the same vulnerability and company.
func IsActive(s types.TaskStatus) bool {
	return s != types.StatusClosed
}

// IsTerminal reports whether a task can still change status.
func IsTerminal(s types.TaskStatus) bool {
	return s == types.StatusClosed
}

// CanTransition validates a status change requested by a user with the given
// role. Closing is reserved for admins and closed tasks never reopen.
func CanTransition(from, to types.TaskStatus, role types.Role) error {
	if !to.Valid() {
		return errors.NewPermanentf("invalid task status %q", to)
	}
	if IsTerminal(from) {
		return errors.NewPermanentf("task is closed: %w", errors.ErrConflict)
	}
	if to == types.StatusClosed && role != types.RoleAdmin {
		return errors.NewPermanentf("only admins may close tasks: %w", errors.ErrForbidden)
	}
	return nil
}

// ApplyStatus sets the task status and keeps resolved_at consistent with it.
// Moving into resolved or closed stamps the time once; moving back to an
// active status clears it.
func ApplyStatus(task *types.Task, to types.TaskStatus, now time.Time) {
	task.Status = to
	switch to {
	case types.StatusResolved, types.StatusClosed:
		if task.ResolvedAt == nil {
			t := now.UTC()
			task.ResolvedAt = &t
		}
	default:
		task.ResolvedAt = nil
	}
	task.UpdatedAt = now.UTC()
}

// DerivePriority maps the vulnerability's severity onto a task priority.
// Unknown severities land on Medium so that the task still gets triaged.
func DerivePriority(severity types.SeverityLevel) types.TaskPriority {
	switch severity {
	case types.SeverityCritical:
		return types.PriorityCritical
	case types.SeverityHigh:
		return types.PriorityHigh
	case types.SeverityLow:
		return types.PriorityLow
	default:
		return types.PriorityMedium
	}
}

// AppendNote adds an entry to the task's note log.
func AppendNote(task *types.Task, author, body string, now time.Time) {
	if body == "" {
		return
	}
	task.Notes = append(task.Notes, types.TaskNote{
		Author:    author,
		Timestamp: now.UTC(),
		Body:      body,
	})
}
