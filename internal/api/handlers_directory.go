package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/vulnradar/vulnradar/internal/store"
	"github.com/vulnradar/vulnradar/internal/types"
)

// handleCompanies lists companies or creates one
// @Summary List or create companies
// @Description GET is public. POST gets-or-creates a company by case-insensitive name and requires a credential.
// @Tags Directory
// @Accept json
// @Produce json
// @Param request body createCompanyRequest false "Company fields (POST only)"
// @Success 200 {array} types.Company
// @Failure 400 {object} map[string]string "Malformed request"
// @Router /companies [get]
func (s *APIServer) handleCompanies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		companies, err := s.store.ListCompanies(r.Context())
		if err != nil {
			s.respondMappedError(w, err, "failed to list companies")
			return
		}
		s.respondJSON(w, http.StatusOK, companies)
	case http.MethodPost:
		s.authMiddleware(s.handleCreateCompany, false)(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *APIServer) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "company name is required")
		return
	}

	company, err := s.store.CreateCompany(r.Context(), &types.Company{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Industry:    req.Industry,
	})
	if err != nil {
		s.respondMappedError(w, err, "failed to create company")
		return
	}
	s.audit(r, userFrom(r), "company.create", "company", &company.ID, company.Name)
	s.respondJSON(w, http.StatusOK, company)
}

// handleCompanyUsers lists a company's assignable users
// @Summary List company users
// @Description Admin only. Lists the active non-admin users of a company, the candidate pool for task assignment.
// @Tags Directory
// @Produce json
// @Param id path int true "Company id"
// @Success 200 {array} types.User
// @Failure 403 {object} map[string]string "Admin role required"
// @Failure 404 {object} map[string]string "Company not found"
// @Security BearerAuth
// @Router /companies/{id}/users [get]
func (s *APIServer) handleCompanyUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	// Path format: /api/companies/{id}/users
	rest := strings.TrimPrefix(r.URL.Path, "/api/companies/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "users" {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	companyID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid company id")
		return
	}

	if _, err := s.store.GetCompany(r.Context(), companyID); err != nil {
		s.respondMappedError(w, err, "failed to load company")
		return
	}

	users, err := s.store.ListUsersByCompany(r.Context(), companyID)
	if err != nil {
		s.respondMappedError(w, err, "failed to list users")
		return
	}

	// Admins assign tasks, they never receive them.
	candidates := make([]*types.User, 0, len(users))
	for _, u := range users {
		if u.Role == types.RoleAdmin {
			continue
		}
		candidates = append(candidates, u)
	}
	s.respondJSON(w, http.StatusOK, candidates)
}

// handleVendors lists all known vendors
// @Summary List vendors
// @Description Public. Lists the seeded vendor catalog that companies select from.
// @Tags Directory
// @Produce json
// @Success 200 {array} types.Vendor
// @Router /vendors [get]
func (s *APIServer) handleVendors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	vendors, err := s.store.ListVendors(r.Context())
	if err != nil {
		s.respondMappedError(w, err, "failed to list vendors")
		return
	}
	s.respondJSON(w, http.StatusOK, vendors)
}

// handleListCompanyVendors lists vendor selections
// @Summary List company-vendor links
// @Description Admins see every company's selection, others see their own company's.
// @Tags Directory
// @Produce json
// @Success 200 {array} types.CompanyVendor
// @Security BearerAuth
// @Router /company-vendors [get]
func (s *APIServer) handleListCompanyVendors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	user := userFrom(r)

	if user.Role == types.RoleAdmin {
		links, err := s.store.ListAllCompanyVendors(r.Context())
		if err != nil {
			s.respondMappedError(w, err, "failed to list company vendors")
			return
		}
		s.respondJSON(w, http.StatusOK, links)
		return
	}

	if user.CompanyID == nil {
		s.respondJSON(w, http.StatusOK, []*types.CompanyVendor{})
		return
	}
	links, err := s.store.ListCompanyVendors(r.Context(), *user.CompanyID)
	if err != nil {
		s.respondMappedError(w, err, "failed to list company vendors")
		return
	}
	s.respondJSON(w, http.StatusOK, links)
}

// handleListAuditLogs lists recent audit entries
// @Summary List audit logs
// @Description Admin only.
// @Tags Directory
// @Produce json
// @Param action query string false "Filter by action type"
// @Param limit query int false "Maximum number of results" default(100)
// @Success 200 {array} types.AuditLog
// @Failure 403 {object} map[string]string "Admin role required"
// @Security BearerAuth
// @Router /audit-logs [get]
func (s *APIServer) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	entries, err := s.store.ListAudits(r.Context(), store.AuditFilter{
		ActionType: parseQueryParam(r, "action"),
		Limit:      parseQueryParamInt(r, "limit", 100),
	})
	if err != nil {
		s.respondMappedError(w, err, "failed to list audit logs")
		return
	}
	s.respondJSON(w, http.StatusOK, entries)
}
