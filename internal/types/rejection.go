package types

import "strings"

// Markers that identify rejected or withdrawn CVE records. They appear in
// feed payloads and in legacy rows imported before ingest-time filtering.
const (
	RejectionMarkerDoNotUse = "DO NOT USE THIS CANDIDATE NUMBER"
	RejectionMarkerReason   = "Rejected reason:"
	RejectedVulnStatus      = "Rejected"
)

// IsRejectedDescription reports whether a description carries a rejection
// marker.
func IsRejectedDescription(description string) bool {
	return strings.Contains(description, RejectionMarkerDoNotUse) ||
		strings.Contains(description, RejectionMarkerReason)
}

// IsRejectedRecord reports whether either the title or the description
// carries a rejection marker. Feed records keep the marker in the
// description, but hand-ingested candidates sometimes only carry it in
// the title.
func IsRejectedRecord(title, description string) bool {
	return IsRejectedDescription(title) || IsRejectedDescription(description)
}
