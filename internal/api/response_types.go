package api

import (
	"strings"

	"github.com/vulnradar/vulnradar/internal/types"
	"github.com/vulnradar/vulnradar/internal/workflow"
)

// verifyTokenRequest carries the identity credential. Role and company id
// are applied only when the call creates the user.
type verifyTokenRequest struct {
	Token     string `json:"token"`
	Role      string `json:"role,omitempty"`
	CompanyID *int64 `json:"company_id,omitempty"`
}

type userUpdateRequest struct {
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

type createCompanyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Industry    string `json:"industry,omitempty"`
}

type vendorSelection struct {
	VendorID int64  `json:"vendor_id"`
	UseCase  string `json:"use_case_description,omitempty"`
}

// replaceVendorsRequest fully replaces a company's vendor selection.
type replaceVendorsRequest struct {
	Vendors []vendorSelection `json:"vendors"`
}

type ingestRequest struct {
	VendorID   *int64                `json:"vendor_id,omitempty"`
	Candidates []types.Vulnerability `json:"candidates"`
}

type rateRequest struct {
	VulnerabilityID int64 `json:"vulnerability_id"`
}

// taskPriorityParam is an optional priority override on assignment.
type taskPriorityParam string

// orDerived parses the override, falling back to the severity-derived
// priority when absent or unknown.
func (p taskPriorityParam) orDerived(severity types.SeverityLevel) types.TaskPriority {
	switch strings.ToLower(string(p)) {
	case "low":
		return types.PriorityLow
	case "medium":
		return types.PriorityMedium
	case "high":
		return types.PriorityHigh
	case "critical":
		return types.PriorityCritical
	}
	return workflow.DerivePriority(severity)
}

type assignTaskRequest struct {
	VulnerabilityID int64             `json:"vulnerability_id"`
	AssignedToID    int64             `json:"assigned_to_user_id"`
	Priority        taskPriorityParam `json:"priority,omitempty"`
	Note            string            `json:"note,omitempty"`
}

type claimTaskRequest struct {
	VulnerabilityID int64 `json:"vulnerability_id"`
}

type updateTaskRequest struct {
	Status string `json:"status,omitempty"`
	Note   string `json:"note,omitempty"`
}

// vendorReport is the per-vendor outcome of a feed download run.
type vendorReport struct {
	VendorID   int64  `json:"vendor_id"`
	VendorName string `json:"vendor_name"`
	Status     string `json:"status"`
	Fetched    int    `json:"fetched"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

// downloadReport aggregates a full feed download run.
type downloadReport struct {
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Inserted  int            `json:"inserted"`
	Vendors   []vendorReport `json:"vendors"`
}
