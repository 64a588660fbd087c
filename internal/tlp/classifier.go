package tlp

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/vulnradar/vulnradar/internal/types"
)

// Classify assigns the Traffic Light Protocol rating for an ingested
// vulnerability from its source, external identifier and publish date.
//
// The rating is deterministic: the same (source, externalID, publishedDate)
// always yields the same rating, so re-ingesting a record can never flip its
// label. Severity is deliberately not an input. The rating is computed once
// at ingest time and stored immutably on the record.
func Classify(source, externalID string, published *time.Time) types.TLPRating {
	source = strings.TrimSpace(source)
	externalID = strings.TrimSpace(externalID)

	// No attribution means we cannot judge shareability; treat as private.
	if source == "" || externalID == "" {
		return types.TLPRed
	}

	bucket := hashBucket(externalID, source)

	var age int
	hasDate := published != nil
	if hasDate {
		age = int(time.Since(*published).Hours() / 24)
	}

	if strings.EqualFold(source, "NVD") {
		if hasDate && age <= 90 {
			switch {
			case age <= 7:
				if bucket < 60 {
					return types.TLPAmber
				}
				return types.TLPRed
			case age <= 30:
				if bucket < 70 {
					return types.TLPAmber
				}
				return types.TLPGreen
			default: // 30 < age <= 90
				if bucket < 80 {
					return types.TLPGreen
				}
				return types.TLPAmber
			}
		}
		// No publish date, or older than 90 days.
		switch {
		case bucket < 85:
			return types.TLPGreen
		case bucket < 95:
			return types.TLPAmber
		default:
			return types.TLPRed
		}
	}

	if hasCVEPrefix(externalID) {
		if hasDate && age <= 30 {
			switch {
			case bucket < 50:
				return types.TLPAmber
			case bucket < 80:
				return types.TLPRed
			default:
				return types.TLPGreen
			}
		}
		switch {
		case bucket < 70:
			return types.TLPGreen
		case bucket < 90:
			return types.TLPAmber
		default:
			return types.TLPRed
		}
	}

	// Attributed, but from a source we don't recognize and without a CVE
	// identifier. Lean restrictive.
	switch {
	case bucket < 80:
		return types.TLPRed
	case bucket < 95:
		return types.TLPAmber
	default:
		return types.TLPGreen
	}
}

// hashBucket reduces the identity string "{externalID}_{source}" to a stable
// bucket in [0, 100). FNV-1a spreads uniformly enough for threshold buckets
// and is stable across runs and architectures.
func hashBucket(externalID, source string) int {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s_%s", externalID, source)
	return int(h.Sum32() % 100)
}

func hasCVEPrefix(id string) bool {
	return len(id) >= 4 && strings.EqualFold(id[:4], "CVE-")
}
