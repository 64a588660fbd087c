package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/types"
)

// handleVerifyToken verifies a bearer credential and gets-or-creates the user
// @Summary Verify identity token
// @Description Verify the bearer credential against the identity provider and create the user record on first login. Role and company id are honored only on signup.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body verifyTokenRequest true "Credential plus optional signup fields"
// @Success 200 {object} types.User
// @Failure 400 {object} map[string]string "Malformed request"
// @Failure 401 {object} map[string]string "Invalid credential or unverified email"
// @Router /auth/verify-token [post]
func (s *APIServer) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req verifyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		s.respondError(w, http.StatusBadRequest, "token is required")
		return
	}

	ident, err := s.verifier.Verify(r.Context(), req.Token)
	if err != nil {
		s.metrics.TokenVerifications.WithLabelValues("rejected").Inc()
		s.respondMappedError(w, err, "credential verification failed")
		return
	}
	if !ident.EmailVerified {
		s.metrics.TokenVerifications.WithLabelValues("rejected").Inc()
		s.respondError(w, http.StatusUnauthorized, "email address not verified")
		return
	}
	s.metrics.TokenVerifications.WithLabelValues("ok").Inc()

	_, err = s.store.GetUserBySubject(r.Context(), ident.SubjectID)
	created := errors.Is(err, errors.ErrNotFound)
	if err != nil && !created {
		s.respondMappedError(w, err, "failed to look up user")
		return
	}

	user, err := s.store.GetOrCreateUserBySubject(r.Context(), ident.SubjectID, ident.Email, ident.DisplayName)
	if err != nil {
		s.respondMappedError(w, err, "failed to create user")
		return
	}

	// Signup-only fields: an existing user keeps its stored role and company.
	if created {
		if req.Role != "" {
			user.Role = types.ParseRole(req.Role)
			if err := s.store.UpdateUser(r.Context(), user); err != nil {
				s.respondMappedError(w, err, "failed to set role")
				return
			}
		}
		if req.CompanyID != nil {
			company, err := s.store.GetCompany(r.Context(), *req.CompanyID)
			if err != nil {
				s.respondMappedError(w, err, "failed to look up company")
				return
			}
			if _, err := s.store.SetUserCompany(r.Context(), user.ID, company.Name); err != nil {
				s.respondMappedError(w, err, "failed to link company")
				return
			}
		}
		user, err = s.store.GetUserByID(r.Context(), user.ID)
		if err != nil {
			s.respondMappedError(w, err, "failed to reload user")
			return
		}
		s.audit(r, user, "user.signup", "user", &user.ID, user.Email)
	}

	s.respondJSON(w, http.StatusOK, user)
}

// handleMe returns the authenticated caller
// @Summary Current user
// @Tags Auth
// @Produce json
// @Success 200 {object} types.User
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /auth/me [get]
func (s *APIServer) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.respondJSON(w, http.StatusOK, userFrom(r))
}

// handleUserUpdate updates the caller's role and company link
// @Summary Update own profile
// @Description Set the caller's role and link the caller to a company by name, creating the company when it does not exist.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body userUpdateRequest true "Profile fields"
// @Success 200 {object} types.User
// @Failure 400 {object} map[string]string "Malformed request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /user/update [post]
func (s *APIServer) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	user := userFrom(r)

	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DisplayName != "" {
		user.DisplayName = req.DisplayName
	}
	if req.Role != "" {
		user.Role = types.ParseRole(req.Role)
	}
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.respondMappedError(w, err, "failed to update user")
		return
	}

	if req.CompanyName != "" {
		if _, err := s.store.SetUserCompany(r.Context(), user.ID, req.CompanyName); err != nil {
			s.respondMappedError(w, err, "failed to link company")
			return
		}
	}

	updated, err := s.store.GetUserByID(r.Context(), user.ID)
	if err != nil {
		s.respondMappedError(w, err, "failed to reload user")
		return
	}
	s.audit(r, updated, "user.update", "user", &updated.ID, fmt.Sprintf("role=%s company=%s", updated.Role, updated.CompanyName))
	s.respondJSON(w, http.StatusOK, updated)
}

// handleUserCompany returns the caller's company
// @Summary Own company
// @Tags Users
// @Produce json
// @Success 200 {object} types.Company
// @Failure 404 {object} map[string]string "No company linked"
// @Security BearerAuth
// @Router /user/company [get]
func (s *APIServer) handleUserCompany(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	user := userFrom(r)
	if user.CompanyID == nil {
		s.respondError(w, http.StatusNotFound, "no company linked")
		return
	}
	company, err := s.store.GetCompany(r.Context(), *user.CompanyID)
	if err != nil {
		s.respondMappedError(w, err, "failed to load company")
		return
	}
	s.respondJSON(w, http.StatusOK, company)
}

// handleUserVendors lists or replaces the caller's company vendor selection
// @Summary Company vendor selection
// @Description GET lists the active vendor selection of the caller's company. POST fully replaces it (delete-all, re-insert) in one transaction.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body replaceVendorsRequest false "Replacement selection (POST only)"
// @Success 200 {array} types.CompanyVendor
// @Failure 400 {object} map[string]string "Malformed request or unknown vendor"
// @Failure 404 {object} map[string]string "No company linked"
// @Security BearerAuth
// @Router /user/vendors [get]
func (s *APIServer) handleUserVendors(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if user.CompanyID == nil {
		s.respondError(w, http.StatusNotFound, "no company linked")
		return
	}

	switch r.Method {
	case http.MethodGet:
		// fall through to the listing below
	case http.MethodPost:
		var req replaceVendorsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		ids := make([]int64, 0, len(req.Vendors))
		useCases := make(map[int64]string, len(req.Vendors))
		for _, v := range req.Vendors {
			ids = append(ids, v.VendorID)
			if v.UseCase != "" {
				useCases[v.VendorID] = v.UseCase
			}
		}
		if err := s.store.ReplaceCompanyVendors(r.Context(), *user.CompanyID, ids, useCases); err != nil {
			s.respondMappedError(w, err, "failed to replace vendor selection")
			return
		}
		s.audit(r, user, "vendors.replace", "company", user.CompanyID, fmt.Sprintf("%d vendors", len(ids)))
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	selection, err := s.store.ListCompanyVendors(r.Context(), *user.CompanyID)
	if err != nil {
		s.respondMappedError(w, err, "failed to list vendor selection")
		return
	}
	s.respondJSON(w, http.StatusOK, selection)
}

// handleListUserCompanies lists the caller's company links
// @Summary Own company links
// @Tags Users
// @Produce json
// @Success 200 {array} types.UserCompany
// @Security BearerAuth
// @Router /user-companies [get]
func (s *APIServer) handleListUserCompanies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	user := userFrom(r)
	links, err := s.store.ListUserCompanies(r.Context(), user.ID)
	if err != nil {
		s.respondMappedError(w, err, "failed to list company links")
		return
	}
	s.respondJSON(w, http.StatusOK, links)
}
