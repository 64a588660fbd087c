package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vulnradar/vulnradar/internal/api"
	"github.com/vulnradar/vulnradar/internal/config"
	"github.com/vulnradar/vulnradar/internal/feed"
	"github.com/vulnradar/vulnradar/internal/identity"
	"github.com/vulnradar/vulnradar/internal/observability"
	"github.com/vulnradar/vulnradar/internal/rating"
	"github.com/vulnradar/vulnradar/internal/store"
	"github.com/vulnradar/vulnradar/internal/types"
)

// TestMain gates the suite behind INTEGRATION_TEST
func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// fakeNVD mimics the CVE API, answering every keyword with one advisory
// naming that keyword.
func fakeNVD(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keyword := r.URL.Query().Get("keywordSearch")
		published := time.Now().UTC().Add(-40 * 24 * time.Hour).Format("2006-01-02T15:04:05.000")
		fmt.Fprintf(w, `{
			"resultsPerPage": 1,
			"totalResults": 1,
			"vulnerabilities": [{
				"cve": {
					"id": "CVE-2024-%04d",
					"vulnStatus": "Analyzed",
					"published": %q,
					"descriptions": [{"lang": "en", "value": "Remote code execution in %s products."}],
					"metrics": {"cvssMetricV31": [{"cvssData": {"baseScore": 9.8, "baseSeverity": "CRITICAL"}}]},
					"configurations": [{"nodes": [{"cpeMatch": [{"criteria": "cpe:2.3:a:%s:server:*"}]}]}]
				}
			}]
		}`, len(keyword)*37, published, keyword, keyword)
	}))
}

func startServer(t *testing.T, feedURL string) (*api.APIServer, *store.Store) {
	t.Helper()

	st, err := store.NewStore(filepath.Join(t.TempDir(), "integration.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		API: config.APIConfig{Port: 0, AllowedOrigins: []string{"*"}},
		Feed: config.FeedConfig{
			BaseURL:      feedURL,
			PageSize:     20,
			RequestDelay: 10 * time.Millisecond,
			Timeout:      5 * time.Second,
			UserAgent:    "vulnradar-integration",
		},
	}
	logger := observability.NewLogger("error")
	rater, err := rating.NewEngine(logger, "")
	if err != nil {
		t.Fatalf("failed to create rating engine: %v", err)
	}
	client := feed.NewClient(cfg.Feed)
	downloader := feed.NewDownloader(client, cfg.Feed.RequestDelay, logger)
	verifier := identity.NewTestTokenVerifier(nil)

	return api.NewAPIServer(cfg, st, verifier, downloader, rater, logger), st
}

func call(t *testing.T, srv *api.APIServer, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s %s response: %v", method, path, err)
		}
	}
	return w.Code
}

// TestFullWorkflow walks the whole system: signup, vendor selection, feed
// download through a fake NVD server, visibility, relevance rating and the
// task lifecycle.
func TestFullWorkflow(t *testing.T) {
	nvd := fakeNVD(t)
	defer nvd.Close()

	srv, st := startServer(t, nvd.URL)

	adminToken := identity.MakeTestToken("subj-admin", "admin@acme.test")
	employeeToken := identity.MakeTestToken("subj-emp", "emp@acme.test")

	for _, tok := range []string{adminToken, employeeToken} {
		if code := call(t, srv, http.MethodPost, "/api/auth/verify-token", "", map[string]string{"token": tok}, nil); code != http.StatusOK {
			t.Fatalf("verify-token returned %d", code)
		}
	}
	if code := call(t, srv, http.MethodPost, "/api/user/update", adminToken,
		map[string]string{"role": "admin", "company_name": "Acme"}, nil); code != http.StatusOK {
		t.Fatalf("admin update failed: %d", code)
	}
	if code := call(t, srv, http.MethodPost, "/api/user/update", employeeToken,
		map[string]string{"company_name": "Acme"}, nil); code != http.StatusOK {
		t.Fatalf("employee update failed: %d", code)
	}

	if err := st.SeedVendors(t.Context(), []types.Vendor{
		{Name: "Apache", Type: types.VendorSoftware},
		{Name: "Cisco", Type: types.VendorBoth},
	}); err != nil {
		t.Fatalf("failed to seed vendors: %v", err)
	}
	var vendors []types.Vendor
	call(t, srv, http.MethodGet, "/api/vendors", "", nil, &vendors)
	if len(vendors) != 2 {
		t.Fatalf("expected 2 vendors, got %d", len(vendors))
	}

	selection := map[string]interface{}{"vendors": []map[string]interface{}{
		{"vendor_id": vendors[0].ID, "use_case_description": "web servers"},
		{"vendor_id": vendors[1].ID, "use_case_description": "network gear"},
	}}
	if code := call(t, srv, http.MethodPost, "/api/user/vendors", adminToken, selection, nil); code != http.StatusOK {
		t.Fatalf("vendor selection failed: %d", code)
	}

	// Download fetches one advisory per vendor from the fake feed.
	var report struct {
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
		Inserted  int `json:"inserted"`
	}
	if code := call(t, srv, http.MethodPost, "/api/vulnerabilities/download-all", adminToken, nil, &report); code != http.StatusOK {
		t.Fatalf("download-all returned %d", code)
	}
	if report.Succeeded != 2 || report.Failed != 0 || report.Inserted != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	// The admin sees everything the vendors produced.
	var vulns []types.Vulnerability
	if code := call(t, srv, http.MethodGet, "/api/vulnerabilities/company", adminToken, nil, &vulns); code != http.StatusOK {
		t.Fatalf("company listing returned %d", code)
	}
	if len(vulns) != 2 {
		t.Fatalf("admin expected 2 vulnerabilities, got %d", len(vulns))
	}

	// Rate one of them; the advisory names the vendor, so it is relevant.
	var assessment types.VulnerabilityRating
	if code := call(t, srv, http.MethodPost, "/api/vulnerabilities/rate", adminToken,
		map[string]interface{}{"vulnerability_id": vulns[0].ID}, &assessment); code != http.StatusOK {
		t.Fatalf("rate returned %d", code)
	}
	if !assessment.VendorMatch || !assessment.Relevant {
		t.Errorf("expected a relevant vendor match, got %+v", assessment)
	}

	// Find a GREEN record the employee can work on.
	var employeeVulns []types.Vulnerability
	call(t, srv, http.MethodGet, "/api/vulnerabilities/company", employeeToken, nil, &employeeVulns)
	if len(employeeVulns) == 0 {
		t.Skip("no GREEN record in this run's hash buckets")
	}
	target := employeeVulns[0]

	var task types.Task
	if code := call(t, srv, http.MethodPost, "/api/tasks/claim", employeeToken,
		map[string]interface{}{"vulnerability_id": target.ID}, &task); code != http.StatusCreated {
		t.Fatalf("claim returned %d", code)
	}
	if task.Priority != types.PriorityCritical {
		t.Errorf("priority = %s, want Critical for the 9.8 advisory", task.Priority)
	}

	taskPath := fmt.Sprintf("/api/tasks/%d", task.ID)
	if code := call(t, srv, http.MethodPut, taskPath, employeeToken,
		map[string]string{"status": "resolved", "note": "patched"}, &task); code != http.StatusOK {
		t.Fatalf("resolve returned %d", code)
	}
	if task.ResolvedAt == nil {
		t.Error("resolved_at not stamped")
	}
	if code := call(t, srv, http.MethodPut, taskPath, employeeToken,
		map[string]string{"status": "closed"}, nil); code != http.StatusForbidden {
		t.Errorf("employee close returned %d, want 403", code)
	}
	if code := call(t, srv, http.MethodPut, taskPath, adminToken,
		map[string]string{"status": "closed"}, &task); code != http.StatusOK {
		t.Fatalf("admin close returned %d", code)
	}

	var completed []types.Vulnerability
	call(t, srv, http.MethodGet, "/api/vulnerabilities/completed", adminToken, nil, &completed)
	if len(completed) != 1 || completed[0].ID != target.ID {
		t.Errorf("expected the closed vulnerability on the completed list, got %+v", completed)
	}

	// A second download run finds only duplicates and flags the stored rows.
	call(t, srv, http.MethodPost, "/api/vulnerabilities/download-all", adminToken, nil, &report)
	if report.Inserted != 0 {
		t.Errorf("second download inserted %d records, want 0", report.Inserted)
	}
}
