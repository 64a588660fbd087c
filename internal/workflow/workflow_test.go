package workflow

import (
	"testing"
	"time"

	apperrors "github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/types"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    types.TaskStatus
		to      types.TaskStatus
		role    types.Role
		wantErr bool
	}{
		{name: "pending to in_progress", from: types.StatusPending, to: types.StatusInProgress, role: types.RoleEmployee},
		{name: "in_progress to resolved", from: types.StatusInProgress, to: types.StatusResolved, role: types.RoleEmployee},
		{name: "resolved back to in_progress", from: types.StatusResolved, to: types.StatusInProgress, role: types.RoleManager},
		{name: "admin closes resolved", from: types.StatusResolved, to: types.StatusClosed, role: types.RoleAdmin},
		{name: "admin closes pending", from: types.StatusPending, to: types.StatusClosed, role: types.RoleAdmin},
		{name: "employee cannot close", from: types.StatusResolved, to: types.StatusClosed, role: types.RoleEmployee, wantErr: true},
		{name: "manager cannot close", from: types.StatusResolved, to: types.StatusClosed, role: types.RoleManager, wantErr: true},
		{name: "closed is terminal", from: types.StatusClosed, to: types.StatusInProgress, role: types.RoleAdmin, wantErr: true},
		{name: "closed stays closed", from: types.StatusClosed, to: types.StatusClosed, role: types.RoleAdmin, wantErr: true},
		{name: "unknown status rejected", from: types.StatusPending, to: types.TaskStatus("done"), role: types.RoleAdmin, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to, tt.role)
			if (err != nil) != tt.wantErr {
				t.Errorf("CanTransition(%v, %v, %v) error = %v, wantErr %v",
					tt.from, tt.to, tt.role, err, tt.wantErr)
			}
			if err != nil && !apperrors.IsPermanent(err) {
				t.Errorf("transition error should be permanent, got %v", err)
			}
		})
	}
}

func TestApplyStatusStampsResolvedAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	task := &types.Task{Status: types.StatusInProgress}

	ApplyStatus(task, types.StatusResolved, now)
	if task.ResolvedAt == nil || !task.ResolvedAt.Equal(now) {
		t.Fatalf("resolved task should stamp resolved_at, got %v", task.ResolvedAt)
	}

	// Reopening clears the stamp.
	ApplyStatus(task, types.StatusInProgress, now.Add(time.Hour))
	if task.ResolvedAt != nil {
		t.Errorf("reopened task should clear resolved_at, got %v", task.ResolvedAt)
	}

	// Closing a resolved task keeps the original stamp.
	ApplyStatus(task, types.StatusResolved, now.Add(2*time.Hour))
	first := *task.ResolvedAt
	ApplyStatus(task, types.StatusClosed, now.Add(3*time.Hour))
	if !task.ResolvedAt.Equal(first) {
		t.Errorf("closing should preserve the first resolved_at, got %v want %v", task.ResolvedAt, first)
	}
}

func TestDerivePriority(t *testing.T) {
	tests := []struct {
		severity types.SeverityLevel
		want     types.TaskPriority
	}{
		{types.SeverityCritical, types.PriorityCritical},
		{types.SeverityHigh, types.PriorityHigh},
		{types.SeverityMedium, types.PriorityMedium},
		{types.SeverityLow, types.PriorityLow},
		{types.SeverityUnknown, types.PriorityMedium},
		{types.SeverityLevel(""), types.PriorityMedium},
	}
	for _, tt := range tests {
		if got := DerivePriority(tt.severity); got != tt.want {
			t.Errorf("DerivePriority(%v) = %v, want %v", tt.severity, got, tt.want)
		}
	}
}

func TestIsActive(t *testing.T) {
	if !IsActive(types.StatusPending) || !IsActive(types.StatusInProgress) {
		t.Error("pending and in_progress should be active")
	}
	if !IsActive(types.StatusResolved) {
		t.Error("resolved tasks still block new ones until closed")
	}
	if IsActive(types.StatusClosed) {
		t.Error("closed should not be active")
	}
}

func TestAppendNote(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	task := &types.Task{}

	AppendNote(task, "alice@example.com", "checked vendor advisory", now)
	AppendNote(task, "bob@example.com", "", now)
	AppendNote(task, "bob@example.com", "patch scheduled", now.Add(time.Hour))

	if len(task.Notes) != 2 {
		t.Fatalf("expected 2 notes (empty body skipped), got %d", len(task.Notes))
	}
	if task.Notes[0].Author != "alice@example.com" || task.Notes[0].Body != "checked vendor advisory" {
		t.Errorf("unexpected first note %+v", task.Notes[0])
	}
	if !task.Notes[1].Timestamp.After(task.Notes[0].Timestamp) {
		t.Error("notes should preserve append order")
	}
}
