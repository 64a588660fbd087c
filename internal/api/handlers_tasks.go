package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/store"
	"github.com/vulnradar/vulnradar/internal/tlp"
	"github.com/vulnradar/vulnradar/internal/types"
	"github.com/vulnradar/vulnradar/internal/workflow"
)

// handleTasks lists tasks or creates one by admin assignment
// @Summary List or assign tasks
// @Description GET lists the caller's company tasks for admins and the caller's own tasks otherwise. POST is an admin assignment and enforces the clearance gate.
// @Tags Tasks
// @Accept json
// @Produce json
// @Param status query string false "Filter by status" Enums(pending, in_progress, resolved, closed)
// @Param request body assignTaskRequest false "Assignment (POST only)"
// @Success 200 {array} types.Task
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Active task already exists"
// @Security BearerAuth
// @Router /tasks [get]
func (s *APIServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTasks(w, r)
	case http.MethodPost:
		s.assignTask(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *APIServer) listTasks(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	filter := store.TaskFilter{
		Status: types.TaskStatus(parseQueryParam(r, "status")),
		Limit:  parseQueryParamInt(r, "limit", defaultListLimit),
	}
	if user.Role == types.RoleAdmin {
		if user.CompanyID == nil {
			s.respondJSON(w, http.StatusOK, []*types.Task{})
			return
		}
		filter.CompanyID = user.CompanyID
	} else {
		filter.AssignedTo = &user.ID
	}

	tasks, err := s.store.ListTasks(r.Context(), filter)
	if err != nil {
		s.respondMappedError(w, err, "failed to list tasks")
		return
	}
	s.respondJSON(w, http.StatusOK, tasks)
}

func (s *APIServer) assignTask(w http.ResponseWriter, r *http.Request) {
	admin := userFrom(r)
	if admin.Role != types.RoleAdmin {
		s.respondError(w, http.StatusForbidden, "only admins assign tasks")
		return
	}
	if admin.CompanyID == nil {
		s.respondError(w, http.StatusNotFound, "no company linked")
		return
	}

	var req assignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	vuln, err := s.store.GetVulnerability(r.Context(), req.VulnerabilityID)
	if err != nil {
		s.respondMappedError(w, err, "failed to load vulnerability")
		return
	}
	assignee, err := s.store.GetUserByID(r.Context(), req.AssignedToID)
	if err != nil {
		s.respondMappedError(w, err, "failed to load assignee")
		return
	}
	if assignee.CompanyID == nil || *assignee.CompanyID != *admin.CompanyID {
		s.respondError(w, http.StatusForbidden, "assignee belongs to another company")
		return
	}
	if !tlp.CanAssign(vuln.TLPRating, assignee.Role) {
		s.respondError(w, http.StatusForbidden,
			fmt.Sprintf("%s clearance does not cover a %s vulnerability", assignee.Role, vuln.TLPRating))
		return
	}

	task := &types.Task{
		VulnerabilityID: vuln.ID,
		CompanyID:       *admin.CompanyID,
		AssignedByID:    admin.ID,
		AssignedToID:    assignee.ID,
		Priority:        req.Priority.orDerived(vuln.SeverityLevel),
		Status:          types.StatusPending,
	}
	if req.Note != "" {
		workflow.AppendNote(task, admin.Email, req.Note, time.Now().UTC())
	}

	created, err := s.store.CreateTask(r.Context(), task)
	if err != nil {
		s.respondMappedError(w, err, "failed to create task")
		return
	}
	s.metrics.TasksCreated.Inc()
	s.audit(r, admin, "task.assign", "task", &created.ID,
		fmt.Sprintf("vulnerability=%d assignee=%d", vuln.ID, assignee.ID))
	s.respondJSON(w, http.StatusCreated, created)
}

// handleClaimTask lets a non-admin claim a vulnerability for themselves
// @Summary Claim a vulnerability
// @Description Self-assignment for non-admins. The caller's clearance must cover the vulnerability's TLP rating and no non-closed task may exist for it in the company.
// @Tags Tasks
// @Accept json
// @Produce json
// @Param request body claimTaskRequest true "Vulnerability to claim"
// @Success 201 {object} types.Task
// @Failure 403 {object} map[string]string "Clearance too low or caller is admin"
// @Failure 409 {object} map[string]string "Active task already exists"
// @Security BearerAuth
// @Router /tasks/claim [post]
func (s *APIServer) handleClaimTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	user := userFrom(r)
	if user.Role == types.RoleAdmin {
		s.respondError(w, http.StatusForbidden, "admins assign tasks, they do not claim them")
		return
	}
	if user.CompanyID == nil {
		s.respondError(w, http.StatusNotFound, "no company linked")
		return
	}

	var req claimTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	vuln, err := s.store.GetVulnerability(r.Context(), req.VulnerabilityID)
	if err != nil {
		s.respondMappedError(w, err, "failed to load vulnerability")
		return
	}
	if !tlp.CanAssign(vuln.TLPRating, user.Role) {
		s.respondError(w, http.StatusForbidden,
			fmt.Sprintf("%s clearance does not cover a %s vulnerability", user.Role, vuln.TLPRating))
		return
	}

	task := &types.Task{
		VulnerabilityID: vuln.ID,
		CompanyID:       *user.CompanyID,
		AssignedByID:    user.ID,
		AssignedToID:    user.ID,
		Priority:        workflow.DerivePriority(vuln.SeverityLevel),
		Status:          types.StatusPending,
	}

	created, err := s.store.CreateTask(r.Context(), task)
	if err != nil {
		if errors.Is(err, errors.ErrConflict) {
			s.metrics.ClaimConflicts.Inc()
		}
		s.respondMappedError(w, err, "failed to claim vulnerability")
		return
	}
	s.metrics.TasksCreated.Inc()
	s.audit(r, user, "task.claim", "task", &created.ID, fmt.Sprintf("vulnerability=%d", vuln.ID))
	s.respondJSON(w, http.StatusCreated, created)
}

// handleUpdateTask transitions a task and appends a note
// @Summary Update task
// @Description Status transition plus an optional appended note. Only the assignee or an admin may update; only admins may close. Resolving stamps resolved_at, reopening clears it.
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path int true "Task id"
// @Param request body updateTaskRequest true "New status and note"
// @Success 200 {object} types.Task
// @Failure 403 {object} map[string]string "Not assignee, or closing without admin role"
// @Failure 404 {object} map[string]string "Task not found"
// @Failure 409 {object} map[string]string "Invalid transition"
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (s *APIServer) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	id, err := pathID(r, "/api/tasks/")
	if err != nil {
		s.respondMappedError(w, err, "invalid path")
		return
	}
	user := userFrom(r)

	task, err := s.store.GetTask(r.Context(), id)
	if err != nil {
		s.respondMappedError(w, err, "failed to load task")
		return
	}
	if user.Role != types.RoleAdmin && task.AssignedToID != user.ID {
		s.respondError(w, http.StatusForbidden, "only the assignee or an admin may update a task")
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now().UTC()
	if req.Status != "" {
		to := types.TaskStatus(req.Status)
		if !to.Valid() {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", req.Status))
			return
		}
		if err := workflow.CanTransition(task.Status, to, user.Role); err != nil {
			s.respondMappedError(w, err, "transition rejected")
			return
		}
		workflow.ApplyStatus(task, to, now)
		s.metrics.TaskTransitions.WithLabelValues(string(to)).Inc()
	}
	if req.Note != "" {
		workflow.AppendNote(task, user.Email, req.Note, now)
	}

	if err := s.store.UpdateTask(r.Context(), task); err != nil {
		s.respondMappedError(w, err, "failed to update task")
		return
	}
	s.audit(r, user, "task.update", "task", &task.ID, fmt.Sprintf("status=%s", task.Status))
	s.respondJSON(w, http.StatusOK, task)
}
