// Package feed pulls CVE records from the NVD API 2.0 and converts them
// into vulnerability candidates for ingestion.
package feed

// nvdResponse is the envelope of the NVD CVE API 2.0.
type nvdResponse struct {
	ResultsPerPage  int       `json:"resultsPerPage"`
	StartIndex      int       `json:"startIndex"`
	TotalResults    int       `json:"totalResults"`
	Vulnerabilities []nvdItem `json:"vulnerabilities"`
}

type nvdItem struct {
	CVE nvdCVE `json:"cve"`
}

type nvdCVE struct {
	ID             string            `json:"id"`
	Published      string            `json:"published"`
	LastModified   string            `json:"lastModified"`
	VulnStatus     string            `json:"vulnStatus"`
	Descriptions   []nvdDescription  `json:"descriptions"`
	Metrics        nvdMetrics        `json:"metrics"`
	Configurations []nvdConfig       `json:"configurations"`
	References     []nvdReference    `json:"references"`
}

type nvdDescription struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type nvdMetrics struct {
	CVSSMetricV31 []nvdCVSSMetricV3 `json:"cvssMetricV31"`
	CVSSMetricV30 []nvdCVSSMetricV3 `json:"cvssMetricV30"`
	CVSSMetricV2  []nvdCVSSMetricV2 `json:"cvssMetricV2"`
}

type nvdCVSSMetricV3 struct {
	CVSSData struct {
		BaseScore    float64 `json:"baseScore"`
		BaseSeverity string  `json:"baseSeverity"`
	} `json:"cvssData"`
}

// In v2 metrics the qualitative severity sits on the metric object, not
// inside cvssData.
type nvdCVSSMetricV2 struct {
	BaseSeverity string `json:"baseSeverity"`
	CVSSData     struct {
		BaseScore float64 `json:"baseScore"`
	} `json:"cvssData"`
}

type nvdConfig struct {
	Nodes []struct {
		CPEMatch []struct {
			Criteria string `json:"criteria"`
		} `json:"cpeMatch"`
	} `json:"nodes"`
}

type nvdReference struct {
	URL string `json:"url"`
}
