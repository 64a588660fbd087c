package feed

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vulnradar/vulnradar/internal/types"
)

const (
	maxTitleDescription = 500
	detailURLPrefix     = "https://nvd.nist.gov/vuln/detail/"
)

// isRejected reports whether a CVE record is a rejection tombstone. NVD
// keeps the tombstones in the feed, so they show up in keyword searches.
func isRejected(cve nvdCVE) bool {
	if strings.EqualFold(cve.VulnStatus, types.RejectedVulnStatus) {
		return true
	}
	return types.IsRejectedDescription(englishDescription(cve))
}

// convert maps an NVD record onto a vulnerability candidate. The TLP rating
// is left empty: classification happens at ingest time.
func convert(cve nvdCVE) types.Vulnerability {
	desc := englishDescription(cve)

	v := types.Vulnerability{
		CVEID:            cve.ID,
		Title:            buildTitle(cve.ID, desc),
		Description:      desc,
		Source:           "NVD",
		SourceURL:        detailURLPrefix + cve.ID,
		SeverityLevel:    types.SeverityUnknown,
		AffectedProducts: affectedProducts(cve),
	}

	if ts, err := time.Parse(time.RFC3339, cve.Published); err == nil {
		utc := ts.UTC()
		v.PublishedDate = &utc
	} else if ts, err := time.Parse("2006-01-02T15:04:05.000", cve.Published); err == nil {
		// NVD omits the zone designator on its timestamps.
		utc := ts.UTC()
		v.PublishedDate = &utc
	}

	score, severity := extractSeverity(cve.Metrics)
	if score != nil {
		v.SeverityScore = score
	}
	v.SeverityLevel = severity

	return v
}

// englishDescription returns the en description, or the first one present.
func englishDescription(cve nvdCVE) string {
	for _, d := range cve.Descriptions {
		if d.Lang == "en" {
			return d.Value
		}
	}
	if len(cve.Descriptions) > 0 {
		return cve.Descriptions[0].Value
	}
	return ""
}

// buildTitle renders "{id}: {description}" with the description capped.
// The cap backs off to a rune boundary so multibyte advisories never end
// up with a mangled final character.
func buildTitle(id, desc string) string {
	if len(desc) > maxTitleDescription {
		cut := maxTitleDescription
		for cut > 0 && !utf8.RuneStart(desc[cut]) {
			cut--
		}
		desc = desc[:cut]
	}
	if desc == "" {
		return id
	}
	return id + ": " + desc
}

// extractSeverity walks the metric versions in preference order
// v3.1, v3.0, v2. The v2 qualitative severity lives on the metric object
// rather than inside cvssData.
func extractSeverity(m nvdMetrics) (*float64, types.SeverityLevel) {
	if len(m.CVSSMetricV31) > 0 {
		d := m.CVSSMetricV31[0].CVSSData
		return &d.BaseScore, types.NormalizeSeverity(d.BaseSeverity)
	}
	if len(m.CVSSMetricV30) > 0 {
		d := m.CVSSMetricV30[0].CVSSData
		return &d.BaseScore, types.NormalizeSeverity(d.BaseSeverity)
	}
	if len(m.CVSSMetricV2) > 0 {
		metric := m.CVSSMetricV2[0]
		return &metric.CVSSData.BaseScore, types.NormalizeSeverity(metric.BaseSeverity)
	}
	return nil, types.SeverityUnknown
}

// affectedProducts flattens every CPE criteria string into one list.
func affectedProducts(cve nvdCVE) string {
	var criteria []string
	for _, cfg := range cve.Configurations {
		for _, node := range cfg.Nodes {
			for _, match := range node.CPEMatch {
				if match.Criteria != "" {
					criteria = append(criteria, match.Criteria)
				}
			}
		}
	}
	return strings.Join(criteria, ", ")
}
