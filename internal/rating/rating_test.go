package rating

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/vulnradar/vulnradar/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEngineValidation(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{name: "default on empty", expression: ""},
		{name: "score threshold", expression: "score >= 70"},
		{name: "vendor gate", expression: "vendorMatch && score >= 30"},
		{name: "severity check", expression: `severity == "Critical" || score >= 50`},
		{name: "not boolean", expression: "score + 1", wantErr: true},
		{name: "syntax error", expression: "score >=", wantErr: true},
		{name: "unknown variable", expression: "bogus > 1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(testLogger(), tt.expression)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEngine(%q) error = %v, wantErr %v", tt.expression, err, tt.wantErr)
			}
		})
	}
}

func TestAssessVendorNameMatch(t *testing.T) {
	engine, err := NewEngine(testLogger(), "")
	if err != nil {
		t.Fatal(err)
	}

	vuln := &types.Vulnerability{
		CVEID:         "CVE-2024-1",
		Title:         "CVE-2024-1: Remote code execution in Acme Widget Server",
		Description:   "A flaw in Acme Widget Server allows remote attackers to execute code.",
		SeverityLevel: types.SeverityHigh,
	}
	company := &types.Company{ID: 1, Name: "Initech", Description: "We run widget servers"}
	vendors := []types.Vendor{{Name: "Acme"}}

	a, err := engine.Assess(context.Background(), vuln, company, vendors)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	// vendor name 40 + keyword hits (widget, servers->no, allows->no: "widget" hits) + high severity 15
	if !a.VendorMatch {
		t.Error("expected vendor match")
	}
	if a.Score < 55 {
		t.Errorf("score = %d, want >= 55", a.Score)
	}
	if !a.Relevant {
		t.Errorf("assessment should be relevant at score %d", a.Score)
	}
}

func TestAssessProductOnlyMatch(t *testing.T) {
	engine, _ := NewEngine(testLogger(), "")

	vuln := &types.Vulnerability{
		CVEID:            "CVE-2024-2",
		Title:            "CVE-2024-2: Heap overflow",
		Description:      "Heap overflow in image parsing.",
		AffectedProducts: "cpe:2.3:a:globex:imagelib:2.0",
		SeverityLevel:    types.SeverityMedium,
	}
	company := &types.Company{ID: 2, Name: "Hooli"}
	vendors := []types.Vendor{{Name: "Globex"}}

	a, err := engine.Assess(context.Background(), vuln, company, vendors)
	if err != nil {
		t.Fatal(err)
	}
	if !a.VendorMatch {
		t.Error("product match should count as vendor match")
	}
	// 30 product + 10 medium = 40, under the default threshold
	if a.Score != 40 {
		t.Errorf("score = %d, want 40", a.Score)
	}
	if a.Relevant {
		t.Error("score 40 should not be relevant under the default threshold")
	}
}

func TestAssessNoSignals(t *testing.T) {
	engine, _ := NewEngine(testLogger(), "")

	vuln := &types.Vulnerability{
		CVEID:         "CVE-2024-3",
		Title:         "CVE-2024-3: Unrelated kernel bug",
		Description:   "A bug in an unrelated component.",
		SeverityLevel: types.SeverityUnknown,
	}
	company := &types.Company{ID: 3, Name: "Vandelay"}

	a, err := engine.Assess(context.Background(), vuln, company, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.Score != 0 || a.Relevant || a.VendorMatch {
		t.Errorf("expected empty assessment, got %+v", a)
	}
}

func TestAssessScoreCap(t *testing.T) {
	engine, _ := NewEngine(testLogger(), "")

	vuln := &types.Vulnerability{
		CVEID:         "CVE-2024-4",
		Title:         "CVE-2024-4: Acme platform compromise",
		Description:   "Acme platform cloud storage network breach data leak impact",
		SeverityLevel: types.SeverityCritical,
	}
	company := &types.Company{
		ID:          4,
		Name:        "MegaCorp",
		Description: "platform cloud storage network breach data leak impact services",
	}
	vendors := []types.Vendor{{Name: "Acme"}}

	a, err := engine.Assess(context.Background(), vuln, company, vendors)
	if err != nil {
		t.Fatal(err)
	}
	if a.Score > 100 {
		t.Errorf("score = %d, must be capped at 100", a.Score)
	}
	if !a.Relevant {
		t.Error("max-signal assessment should be relevant")
	}
}

func TestAssessCustomExpression(t *testing.T) {
	engine, err := NewEngine(testLogger(), `vendorMatch && severity == "Critical"`)
	if err != nil {
		t.Fatal(err)
	}

	vuln := &types.Vulnerability{
		Title:         "Acme exploit",
		Description:   "Acme bug",
		SeverityLevel: types.SeverityHigh,
	}
	company := &types.Company{ID: 5}
	vendors := []types.Vendor{{Name: "Acme"}}

	a, err := engine.Assess(context.Background(), vuln, company, vendors)
	if err != nil {
		t.Fatal(err)
	}
	if a.Relevant {
		t.Error("high severity should fail the critical-only gate")
	}

	vuln.SeverityLevel = types.SeverityCritical
	a, err = engine.Assess(context.Background(), vuln, company, vendors)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Relevant {
		t.Error("critical vendor-matched vulnerability should pass the gate")
	}
}

func TestKeywordHits(t *testing.T) {
	tests := []struct {
		name        string
		profile     string
		description string
		want        int
	}{
		{name: "empty profile", profile: "", description: "anything", want: 0},
		{name: "short words skipped", profile: "we do it all", description: "we do it all", want: 0},
		{name: "distinct hits", profile: "cloud storage cloud", description: "cloud storage provider", want: 2},
		{name: "punctuation stripped", profile: "storage, networking.", description: "storage and networking gear", want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keywordHits(tt.profile, tt.description); got != tt.want {
				t.Errorf("keywordHits = %d, want %d", got, tt.want)
			}
		})
	}
}
