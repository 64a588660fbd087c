// Package rating scores how relevant a vulnerability is to a company and
// decides relevance through a configurable CEL threshold expression.
package rating

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/vulnradar/vulnradar/internal/observability"
	"github.com/vulnradar/vulnradar/internal/types"
)

// Score weights. The heuristic is intentionally coarse: it exists to order
// the review queue, not to replace an analyst.
const (
	vendorNameWeight     = 40
	vendorProductWeight  = 30
	keywordWeight        = 5
	keywordCap           = 30
	maxScore             = 100
	minKeywordLength     = 4
	defaultThresholdExpr = "score >= 50"
)

// Assessment is the outcome of rating one vulnerability for one company.
type Assessment struct {
	Score        int
	Relevant     bool
	VendorMatch  bool
	UseCaseMatch bool
	Reason       string
}

// Engine computes relevance scores and applies the threshold expression.
type Engine struct {
	logger     *slog.Logger
	expression string
	program    cel.Program
	metrics    *observability.Metrics
}

// NewEngine compiles the threshold expression. Available variables:
//   - score: the computed relevance score (0-100)
//   - severity: the vulnerability severity level as a string
//   - vendorMatch: whether a subscribed vendor matched by name
func NewEngine(logger *slog.Logger, expression string) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if expression == "" {
		expression = defaultThresholdExpr
	}

	env, err := cel.NewEnv(
		cel.Variable("score", cel.IntType),
		cel.Variable("severity", cel.StringType),
		cel.Variable("vendorMatch", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile threshold expression: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("threshold expression must return a boolean, got %v", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Engine{
		logger:     logger,
		expression: expression,
		program:    program,
		metrics:    observability.GetMetrics(),
	}, nil
}

// Assess scores a vulnerability against a company and its subscribed
// vendors, then evaluates the threshold expression.
func (e *Engine) Assess(ctx context.Context, vuln *types.Vulnerability, company *types.Company, vendors []types.Vendor) (*Assessment, error) {
	score, vendorMatch, useCaseMatch, reason := e.score(vuln, company, vendors)

	out, _, err := e.program.Eval(map[string]interface{}{
		"score":       score,
		"severity":    string(vuln.SeverityLevel),
		"vendorMatch": vendorMatch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate threshold: %w", err)
	}
	relevant, ok := out.Value().(bool)
	if !ok {
		return nil, fmt.Errorf("threshold expression did not return a boolean: %v", out.Value())
	}

	e.metrics.RatingsComputed.Inc()
	if relevant {
		e.metrics.RatingsRelevant.Inc()
	}

	e.logger.Debug("vulnerability assessed",
		"cve_id", vuln.CVEID,
		"company_id", company.ID,
		"score", score,
		"relevant", relevant)

	return &Assessment{
		Score:        score,
		Relevant:     relevant,
		VendorMatch:  vendorMatch,
		UseCaseMatch: useCaseMatch,
		Reason:       reason,
	}, nil
}

// score computes the heuristic: vendor name hits in the vulnerability text,
// company description keywords, and a severity bonus, capped at 100.
func (e *Engine) score(vuln *types.Vulnerability, company *types.Company, vendors []types.Vendor) (int, bool, bool, string) {
	var reasons []string
	score := 0
	vendorMatch := false
	useCaseMatch := false

	title := strings.ToLower(vuln.Title)
	description := strings.ToLower(vuln.Description)
	products := strings.ToLower(vuln.AffectedProducts)

	for _, vendor := range vendors {
		name := strings.ToLower(vendor.Name)
		if name == "" {
			continue
		}
		if strings.Contains(title, name) || strings.Contains(description, name) {
			score += vendorNameWeight
			vendorMatch = true
			reasons = append(reasons, fmt.Sprintf("vendor %q named in advisory", vendor.Name))
			break
		}
		if strings.Contains(products, name) {
			score += vendorProductWeight
			vendorMatch = true
			reasons = append(reasons, fmt.Sprintf("vendor %q in affected products", vendor.Name))
			break
		}
	}

	if hits := keywordHits(company.Description, description); hits > 0 {
		bonus := hits * keywordWeight
		if bonus > keywordCap {
			bonus = keywordCap
		}
		score += bonus
		useCaseMatch = true
		reasons = append(reasons, fmt.Sprintf("%d profile keyword hits", hits))
	}

	switch vuln.SeverityLevel {
	case types.SeverityCritical:
		score += 20
		reasons = append(reasons, "critical severity")
	case types.SeverityHigh:
		score += 15
		reasons = append(reasons, "high severity")
	case types.SeverityMedium:
		score += 10
	case types.SeverityLow:
		score += 5
	}

	if score > maxScore {
		score = maxScore
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no signals matched")
	}
	return score, vendorMatch, useCaseMatch, strings.Join(reasons, "; ")
}

// keywordHits counts distinct company-profile words found in the
// vulnerability description. Short words are skipped as noise.
func keywordHits(profile, description string) int {
	if profile == "" || description == "" {
		return 0
	}
	seen := make(map[string]bool)
	hits := 0
	for _, word := range strings.Fields(strings.ToLower(profile)) {
		word = strings.Trim(word, ".,;:()\"'")
		if len(word) < minKeywordLength || seen[word] {
			continue
		}
		seen[word] = true
		if strings.Contains(description, word) {
			hits++
		}
	}
	return hits
}
