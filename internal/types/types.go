package types

import (
	"strings"
	"time"
)

// TLPRating is the Traffic Light Protocol sensitivity label attached to each
// vulnerability. It is independent of technical severity.
type TLPRating string

const (
	TLPGreen TLPRating = "GREEN"
	TLPAmber TLPRating = "AMBER"
	TLPRed   TLPRating = "RED"
)

// Level returns the ordering of a rating: GREEN < AMBER < RED.
// Unknown values order below GREEN.
func (r TLPRating) Level() int {
	switch r {
	case TLPGreen:
		return 0
	case TLPAmber:
		return 1
	case TLPRed:
		return 2
	default:
		return -1
	}
}

// Valid reports whether r is one of the three defined ratings.
func (r TLPRating) Valid() bool {
	return r.Level() >= 0
}

// ParseTLPRating normalizes a string to a TLPRating. The boolean is false
// for anything other than GREEN, AMBER or RED (case-insensitive).
func ParseTLPRating(s string) (TLPRating, bool) {
	r := TLPRating(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Role is a user's role within their company.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// ParseRole normalizes a string to a Role, defaulting to employee for
// anything unrecognized. The original system treats unknown roles as the
// lowest tier rather than rejecting them.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleManager:
		return RoleManager
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleEmployee
	}
}

// SeverityLevel is the CVSS-derived qualitative rating, distinct from TLP.
type SeverityLevel string

const (
	SeverityLow      SeverityLevel = "Low"
	SeverityMedium   SeverityLevel = "Medium"
	SeverityHigh     SeverityLevel = "High"
	SeverityCritical SeverityLevel = "Critical"
	SeverityUnknown  SeverityLevel = "Unknown"
)

// NormalizeSeverity maps feed severity strings (NVD uses upper case) onto the
// canonical enum, returning Unknown for anything unrecognized or empty.
func NormalizeSeverity(s string) SeverityLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return SeverityLow
	case "MEDIUM":
		return SeverityMedium
	case "HIGH":
		return SeverityHigh
	case "CRITICAL":
		return SeverityCritical
	default:
		return SeverityUnknown
	}
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusResolved   TaskStatus = "resolved"
	StatusClosed     TaskStatus = "closed"
)

// Valid reports whether s is a defined task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// TaskPriority mirrors the severity scale used for work prioritization.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "Low"
	PriorityMedium   TaskPriority = "Medium"
	PriorityHigh     TaskPriority = "High"
	PriorityCritical TaskPriority = "Critical"
)

// User is an authenticated person linked to at most one company.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Role         Role      `json:"role"`
	TLPClearance TLPRating `json:"tlp_clearance"`
	SubjectID    string    `json:"subject_id"`
	CompanyID    *int64    `json:"company_id,omitempty"`
	CompanyName  string    `json:"company_name,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Company groups users and owns a vendor selection.
type Company struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Industry    string    `json:"industry,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VendorType distinguishes hardware and software suppliers.
type VendorType string

const (
	VendorHardware VendorType = "Hardware"
	VendorSoftware VendorType = "Software"
	VendorBoth     VendorType = "Both"
)

// Vendor is a product supplier that vulnerabilities are matched against.
type Vendor struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Type        VendorType `json:"type"`
	Description string     `json:"description,omitempty"`
	FeedKeyword string     `json:"feed_keyword,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CompanyVendor is the junction row recording that a company uses a vendor.
// A company's vendor set is fully replaced on every save.
type CompanyVendor struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	VendorID    int64     `json:"vendor_id"`
	VendorName  string    `json:"vendor_name,omitempty"`
	VendorType  string    `json:"vendor_type,omitempty"`
	UseCase     string    `json:"use_case_description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserCompany links a user to a company. A user links to at most one company
// in normal flow; lookups use LIMIT 1.
type UserCompany struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CompanyID int64     `json:"company_id"`
	Primary   bool      `json:"primary"`
	CreatedAt time.Time `json:"created_at"`
}

// Vulnerability is an ingested CVE record. TLP rating and severity are
// computed once at creation and never recomputed.
type Vulnerability struct {
	ID               int64         `json:"id"`
	CVEID            string        `json:"cve_id,omitempty"`
	Title            string        `json:"title"`
	Description      string        `json:"description,omitempty"`
	Source           string        `json:"source"`
	SourceURL        string        `json:"source_url,omitempty"`
	PublishedDate    *time.Time    `json:"published_date,omitempty"`
	SeverityScore    *float64      `json:"severity_score,omitempty"`
	SeverityLevel    SeverityLevel `json:"severity_level"`
	TLPRating        TLPRating     `json:"tlp_rating"`
	AffectedProducts string        `json:"affected_products,omitempty"`
	VendorID         *int64        `json:"vendor_id,omitempty"`
	Duplicate        bool          `json:"duplicate"`
	DuplicateOfID    *int64        `json:"duplicate_of_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// TaskNote is one entry of a task's append-only conversation log.
type TaskNote struct {
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Body      string    `json:"body"`
}

// Task links a vulnerability, a company and an assignee through the
// pending/in_progress/resolved/closed workflow. Tasks are never hard-deleted.
type Task struct {
	ID              int64        `json:"id"`
	VulnerabilityID int64        `json:"vulnerability_id"`
	CompanyID       int64        `json:"company_id"`
	AssignedByID    int64        `json:"assigned_by_user_id"`
	AssignedToID    int64        `json:"assigned_to_user_id"`
	Priority        TaskPriority `json:"priority"`
	Status          TaskStatus   `json:"status"`
	Notes           []TaskNote   `json:"notes"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	ResolvedAt      *time.Time   `json:"resolved_at,omitempty"`
}

// VulnerabilityRating is the per-company relevance assessment of a
// vulnerability, upserted on each rating run.
type VulnerabilityRating struct {
	ID              int64     `json:"id"`
	VulnerabilityID int64     `json:"vulnerability_id"`
	CompanyID       int64     `json:"company_id"`
	RelevanceScore  int       `json:"relevance_score"`
	Reasoning       string    `json:"reasoning,omitempty"`
	Relevant        bool      `json:"relevant"`
	VendorMatch     bool      `json:"vendor_match"`
	UseCaseMatch    bool      `json:"use_case_match"`
	RatedAt         time.Time `json:"rated_at"`
}

// AuditLog is a read-only record of a state-changing action.
type AuditLog struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"user_id,omitempty"`
	ActionType string    `json:"action_type"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   *int64    `json:"entity_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
