package tlp

import (
	"testing"
	"time"

	"github.com/vulnradar/vulnradar/internal/types"
)

func daysAgo(n int) *time.Time {
	t := time.Now().AddDate(0, 0, -n)
	return &t
}

func TestClassifyMissingAttribution(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		externalID string
	}{
		{name: "empty source", source: "", externalID: "CVE-2024-0001"},
		{name: "empty id", source: "NVD", externalID: ""},
		{name: "both empty", source: "", externalID: ""},
		{name: "whitespace source", source: "   ", externalID: "CVE-2024-0001"},
		{name: "whitespace id", source: "NVD", externalID: "\t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.source, tt.externalID, daysAgo(3)); got != types.TLPRed {
				t.Errorf("Classify(%q, %q) = %v, want RED", tt.source, tt.externalID, got)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	published := daysAgo(15)
	first := Classify("NVD", "CVE-2024-1234", published)
	for i := 0; i < 10; i++ {
		if got := Classify("NVD", "CVE-2024-1234", published); got != first {
			t.Fatalf("classification not stable: got %v then %v", first, got)
		}
	}
}

func TestClassifyNVDAgeBuckets(t *testing.T) {
	const id = "CVE-2024-0001"
	bucket := hashBucket(id, "NVD")

	tests := []struct {
		name      string
		published *time.Time
		want      types.TLPRating
	}{
		{
			name:      "published 3 days ago",
			published: daysAgo(3),
			want: func() types.TLPRating {
				if bucket < 60 {
					return types.TLPAmber
				}
				return types.TLPRed
			}(),
		},
		{
			name:      "published 20 days ago",
			published: daysAgo(20),
			want: func() types.TLPRating {
				if bucket < 70 {
					return types.TLPAmber
				}
				return types.TLPGreen
			}(),
		},
		{
			name:      "published 60 days ago",
			published: daysAgo(60),
			want: func() types.TLPRating {
				if bucket < 80 {
					return types.TLPGreen
				}
				return types.TLPAmber
			}(),
		},
		{
			name:      "published 200 days ago",
			published: daysAgo(200),
			want: func() types.TLPRating {
				switch {
				case bucket < 85:
					return types.TLPGreen
				case bucket < 95:
					return types.TLPAmber
				default:
					return types.TLPRed
				}
			}(),
		},
		{
			name:      "no publish date",
			published: nil,
			want: func() types.TLPRating {
				switch {
				case bucket < 85:
					return types.TLPGreen
				case bucket < 95:
					return types.TLPAmber
				default:
					return types.TLPRed
				}
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify("NVD", id, tt.published); got != tt.want {
				t.Errorf("Classify(NVD, %s, %s) = %v, want %v (bucket=%d)",
					id, tt.name, got, tt.want, bucket)
			}
		})
	}
}

func TestClassifyNVDSourceCaseInsensitive(t *testing.T) {
	published := daysAgo(20)
	want := Classify("NVD", "CVE-2023-5555", published)
	for _, src := range []string{"nvd", "Nvd", "nVd"} {
		// Same-case identity string feeds the hash, so only the branch
		// selection is case-insensitive, not the bucket.
		got := Classify(src, "CVE-2023-5555", published)
		if got.Valid() != want.Valid() || !got.Valid() {
			t.Errorf("Classify(%q, ...) = %v, want a valid rating", src, got)
		}
	}
}

func TestClassifyCVEPrefixedNonNVD(t *testing.T) {
	const id = "CVE-2024-9999"
	const source = "vendor-advisory"
	bucket := hashBucket(id, source)

	t.Run("recent publish date", func(t *testing.T) {
		var want types.TLPRating
		switch {
		case bucket < 50:
			want = types.TLPAmber
		case bucket < 80:
			want = types.TLPRed
		default:
			want = types.TLPGreen
		}
		if got := Classify(source, id, daysAgo(10)); got != want {
			t.Errorf("Classify = %v, want %v (bucket=%d)", got, want, bucket)
		}
	})

	t.Run("old publish date", func(t *testing.T) {
		var want types.TLPRating
		switch {
		case bucket < 70:
			want = types.TLPGreen
		case bucket < 90:
			want = types.TLPAmber
		default:
			want = types.TLPRed
		}
		if got := Classify(source, id, daysAgo(120)); got != want {
			t.Errorf("Classify = %v, want %v (bucket=%d)", got, want, bucket)
		}
	})
}

func TestClassifyUnrecognizedSource(t *testing.T) {
	const id = "GHSA-xxxx-yyyy"
	const source = "github"
	bucket := hashBucket(id, source)

	var want types.TLPRating
	switch {
	case bucket < 80:
		want = types.TLPRed
	case bucket < 95:
		want = types.TLPAmber
	default:
		want = types.TLPGreen
	}
	if got := Classify(source, id, nil); got != want {
		t.Errorf("Classify = %v, want %v (bucket=%d)", got, want, bucket)
	}
}

func TestHashBucketRange(t *testing.T) {
	ids := []string{"CVE-2024-0001", "CVE-1999-0001", "GHSA-abcd", "x", ""}
	sources := []string{"NVD", "github", "vendor", ""}
	for _, id := range ids {
		for _, src := range sources {
			b := hashBucket(id, src)
			if b < 0 || b > 99 {
				t.Errorf("hashBucket(%q, %q) = %d, out of [0,99]", id, src, b)
			}
		}
	}
}
