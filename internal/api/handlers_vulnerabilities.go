package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vulnradar/vulnradar/internal/store"
	"github.com/vulnradar/vulnradar/internal/tlp"
	"github.com/vulnradar/vulnradar/internal/types"
)

const defaultListLimit = 100

// handleListVulnerabilities lists recent vulnerability records
// @Summary List vulnerabilities
// @Description Raw listing of the most recent records, excluding duplicates and unrated severities.
// @Tags Vulnerabilities
// @Produce json
// @Param search query string false "Substring match on title, CVE id or description"
// @Param limit query int false "Maximum number of results" default(100)
// @Success 200 {array} types.Vulnerability
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /vulnerabilities [get]
func (s *APIServer) handleListVulnerabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	vulns, err := s.store.ListVulnerabilities(r.Context(), store.VulnerabilityFilter{
		ExcludeDuplicates: true,
		ExcludeUnknown:    true,
		Search:            parseQueryParam(r, "search"),
		Limit:             parseQueryParamInt(r, "limit", defaultListLimit),
	})
	if err != nil {
		s.respondMappedError(w, err, "failed to list vulnerabilities")
		return
	}
	s.respondJSON(w, http.StatusOK, vulns)
}

// handleCompanyVulnerabilities lists vulnerabilities visible to the caller
// @Summary List company vulnerabilities
// @Description Visibility-filtered listing for the caller's company vendors. Employees see GREEN, managers GREEN and AMBER, admins everything; the tlpRating filter is honored for admins only. Records with an open task for the company are excluded.
// @Tags Vulnerabilities
// @Produce json
// @Param tlpRating query string false "Exact TLP rating (admins only)" Enums(GREEN, AMBER, RED)
// @Param limit query int false "Maximum number of results" default(100)
// @Success 200 {array} types.Vulnerability
// @Failure 404 {object} map[string]string "No company linked"
// @Security BearerAuth
// @Router /vulnerabilities/company [get]
func (s *APIServer) handleCompanyVulnerabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	user := userFrom(r)
	if user.CompanyID == nil {
		s.respondError(w, http.StatusNotFound, "no company linked")
		return
	}

	var explicit *types.TLPRating
	if raw := parseQueryParam(r, "tlpRating"); raw != "" {
		if rating, ok := types.ParseTLPRating(raw); ok {
			explicit = &rating
		}
	}

	selection, err := s.store.ListCompanyVendors(r.Context(), *user.CompanyID)
	if err != nil {
		s.respondMappedError(w, err, "failed to list vendor selection")
		return
	}
	if len(selection) == 0 {
		s.respondJSON(w, http.StatusOK, []*types.Vulnerability{})
		return
	}
	vendorIDs := make([]int64, 0, len(selection))
	for _, cv := range selection {
		vendorIDs = append(vendorIDs, cv.VendorID)
	}

	vulns, err := s.store.ListVulnerabilities(r.Context(), store.VulnerabilityFilter{
		Ratings:           tlp.VisibleRatings(user.Role, explicit),
		VendorIDs:         vendorIDs,
		ExcludeDuplicates: true,
		ExcludeUnknown:    true,
		ExcludeTaskedFor:  user.CompanyID,
		Limit:             parseQueryParamInt(r, "limit", defaultListLimit),
	})
	if err != nil {
		s.respondMappedError(w, err, "failed to list vulnerabilities")
		return
	}
	s.respondJSON(w, http.StatusOK, vulns)
}

// handleCompletedVulnerabilities lists vulnerabilities with closed tasks
// @Summary List completed vulnerabilities
// @Description Admin only. Vulnerabilities whose task for the admin's company has been closed.
// @Tags Vulnerabilities
// @Produce json
// @Success 200 {array} types.Vulnerability
// @Failure 403 {object} map[string]string "Admin role required"
// @Failure 404 {object} map[string]string "No company linked"
// @Security BearerAuth
// @Router /vulnerabilities/completed [get]
func (s *APIServer) handleCompletedVulnerabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	user := userFrom(r)
	if user.CompanyID == nil {
		s.respondError(w, http.StatusNotFound, "no company linked")
		return
	}
	vulns, err := s.store.ListCompletedVulnerabilities(r.Context(), *user.CompanyID)
	if err != nil {
		s.respondMappedError(w, err, "failed to list completed vulnerabilities")
		return
	}
	s.respondJSON(w, http.StatusOK, vulns)
}

// handleGetVulnerability returns a single record by id
// @Summary Get vulnerability
// @Description Single record lookup. Task exclusion does not apply here, but TLP visibility does.
// @Tags Vulnerabilities
// @Produce json
// @Param id path int true "Vulnerability id"
// @Success 200 {object} types.Vulnerability
// @Failure 403 {object} map[string]string "Rating above caller clearance"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /vulnerabilities/{id} [get]
func (s *APIServer) handleGetVulnerability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	id, err := pathID(r, "/api/vulnerabilities/")
	if err != nil {
		s.respondMappedError(w, err, "invalid path")
		return
	}

	vuln, err := s.store.GetVulnerability(r.Context(), id)
	if err != nil {
		s.respondMappedError(w, err, "failed to load vulnerability")
		return
	}

	user := userFrom(r)
	if !tlp.IsVisible(user.Role, vuln.TLPRating, nil) {
		s.respondError(w, http.StatusForbidden, "rating above your clearance")
		return
	}
	s.respondJSON(w, http.StatusOK, vuln)
}

// handleIngest stores a batch of feed candidates
// @Summary Ingest vulnerabilities
// @Description Stores a candidate batch with deduplication, rejection filtering and TLP classification in one transaction.
// @Tags Vulnerabilities
// @Accept json
// @Produce json
// @Param request body ingestRequest true "Candidate batch"
// @Success 200 {object} store.IngestSummary
// @Failure 400 {object} map[string]string "Malformed request"
// @Security BearerAuth
// @Router /vulnerabilities/ingest [post]
func (s *APIServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Candidates) == 0 {
		s.respondError(w, http.StatusBadRequest, "candidates are required")
		return
	}

	summary, err := s.store.IngestVulnerabilities(r.Context(), req.Candidates, req.VendorID)
	if err != nil {
		s.metrics.IngestErrors.Inc()
		s.respondMappedError(w, err, "ingest failed")
		return
	}
	s.recordIngest(summary)

	user := userFrom(r)
	s.audit(r, user, "vulnerabilities.ingest", "vulnerability", nil,
		fmt.Sprintf("inserted=%d duplicates=%d skipped=%d", summary.Inserted, summary.Duplicates, summary.Skipped))
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *APIServer) recordIngest(summary *store.IngestSummary) {
	for rating, n := range summary.InsertedByRating {
		s.metrics.IngestedTotal.WithLabelValues(string(rating)).Add(float64(n))
	}
	s.metrics.DuplicatesTotal.Add(float64(summary.Duplicates))
	s.metrics.RejectionsTotal.Add(float64(summary.Skipped))
}

// handleRate computes and stores the relevance of a vulnerability
// @Summary Rate vulnerability relevance
// @Description Scores a vulnerability against the caller's company profile and vendor selection, then upserts the assessment.
// @Tags Vulnerabilities
// @Accept json
// @Produce json
// @Param request body rateRequest true "Vulnerability to rate"
// @Success 200 {object} types.VulnerabilityRating
// @Failure 404 {object} map[string]string "Vulnerability or company not found"
// @Security BearerAuth
// @Router /vulnerabilities/rate [post]
func (s *APIServer) handleRate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	user := userFrom(r)
	if user.CompanyID == nil {
		s.respondError(w, http.StatusNotFound, "no company linked")
		return
	}

	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	vuln, err := s.store.GetVulnerability(r.Context(), req.VulnerabilityID)
	if err != nil {
		s.respondMappedError(w, err, "failed to load vulnerability")
		return
	}
	company, err := s.store.GetCompany(r.Context(), *user.CompanyID)
	if err != nil {
		s.respondMappedError(w, err, "failed to load company")
		return
	}
	selection, err := s.store.ListCompanyVendors(r.Context(), company.ID)
	if err != nil {
		s.respondMappedError(w, err, "failed to list vendor selection")
		return
	}
	vendors := make([]types.Vendor, 0, len(selection))
	for _, cv := range selection {
		vendors = append(vendors, types.Vendor{ID: cv.VendorID, Name: cv.VendorName})
	}

	assessment, err := s.rater.Assess(r.Context(), vuln, company, vendors)
	if err != nil {
		s.respondMappedError(w, err, "failed to assess vulnerability")
		return
	}

	rating := &types.VulnerabilityRating{
		VulnerabilityID: vuln.ID,
		CompanyID:       company.ID,
		RelevanceScore:  assessment.Score,
		Reasoning:       assessment.Reason,
		Relevant:        assessment.Relevant,
		VendorMatch:     assessment.VendorMatch,
		UseCaseMatch:    assessment.UseCaseMatch,
		RatedAt:         time.Now().UTC(),
	}
	if err := s.store.UpsertRating(r.Context(), rating); err != nil {
		s.respondMappedError(w, err, "failed to store rating")
		return
	}
	s.audit(r, user, "vulnerabilities.rate", "vulnerability", &vuln.ID,
		fmt.Sprintf("score=%d relevant=%t", assessment.Score, assessment.Relevant))
	s.respondJSON(w, http.StatusOK, rating)
}

// handleDownloadAll runs a sequential feed download for every vendor
// @Summary Download feed for all vendors
// @Description Admin only. Fetches the feed vendor by vendor with a fixed inter-request delay and ingests each batch. A vendor failure is recorded and the run continues.
// @Tags Vulnerabilities
// @Produce json
// @Success 200 {object} downloadReport
// @Failure 403 {object} map[string]string "Admin role required"
// @Security BearerAuth
// @Router /vulnerabilities/download-all [post]
func (s *APIServer) handleDownloadAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.downloader == nil {
		s.respondError(w, http.StatusServiceUnavailable, "feed download is not configured")
		return
	}
	user := userFrom(r)

	vendors, err := s.store.ListVendors(r.Context())
	if err != nil {
		s.respondMappedError(w, err, "failed to list vendors")
		return
	}
	seeds := make([]types.Vendor, 0, len(vendors))
	for _, v := range vendors {
		seeds = append(seeds, *v)
	}

	results, err := s.downloader.DownloadAll(r.Context(), seeds)
	if err != nil {
		s.respondMappedError(w, err, "feed download aborted")
		return
	}

	report := downloadReport{Vendors: make([]vendorReport, 0, len(results))}
	for _, result := range results {
		entry := vendorReport{
			VendorID:   result.Vendor.ID,
			VendorName: result.Vendor.Name,
			Fetched:    len(result.Candidates),
		}
		if result.Err != nil {
			entry.Status = "failed"
			entry.Error = result.Err.Error()
			report.Failed++
			report.Vendors = append(report.Vendors, entry)
			continue
		}

		vendorID := result.Vendor.ID
		summary, err := s.store.IngestVulnerabilities(r.Context(), result.Candidates, &vendorID)
		if err != nil {
			s.metrics.IngestErrors.Inc()
			entry.Status = "failed"
			entry.Error = err.Error()
			report.Failed++
			report.Vendors = append(report.Vendors, entry)
			continue
		}
		s.recordIngest(summary)

		entry.Status = "ok"
		entry.Inserted = summary.Inserted
		entry.Duplicates = summary.Duplicates
		entry.Skipped = summary.Skipped
		report.Succeeded++
		report.Inserted += summary.Inserted
		report.Vendors = append(report.Vendors, entry)
	}

	s.audit(r, user, "feed.download_all", "vendor", nil,
		fmt.Sprintf("succeeded=%d failed=%d inserted=%d", report.Succeeded, report.Failed, report.Inserted))
	s.respondJSON(w, http.StatusOK, report)
}

// handleListRatings lists stored relevance assessments
// @Summary List vulnerability ratings
// @Description Admins see every company's assessments, others see their own company's.
// @Tags Vulnerabilities
// @Produce json
// @Param relevant query bool false "Only relevant assessments"
// @Param limit query int false "Maximum number of results" default(100)
// @Success 200 {array} types.VulnerabilityRating
// @Security BearerAuth
// @Router /vulnerability-ratings [get]
func (s *APIServer) handleListRatings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	user := userFrom(r)

	filter := store.RatingFilter{
		RelevantOnly: parseQueryParam(r, "relevant") == "true",
		Limit:        parseQueryParamInt(r, "limit", defaultListLimit),
	}
	if user.Role != types.RoleAdmin {
		if user.CompanyID == nil {
			s.respondJSON(w, http.StatusOK, []*types.VulnerabilityRating{})
			return
		}
		filter.CompanyID = user.CompanyID
	}

	ratings, err := s.store.ListRatings(r.Context(), filter)
	if err != nil {
		s.respondMappedError(w, err, "failed to list ratings")
		return
	}
	s.respondJSON(w, http.StatusOK, ratings)
}
