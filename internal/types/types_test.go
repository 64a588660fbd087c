package types

import "testing"

func TestParseTLPRating(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TLPRating
		wantOK  bool
	}{
		{name: "green upper", input: "GREEN", want: TLPGreen, wantOK: true},
		{name: "amber lower", input: "amber", want: TLPAmber, wantOK: true},
		{name: "red mixed", input: "Red", want: TLPRed, wantOK: true},
		{name: "whitespace", input: "  green ", want: TLPGreen, wantOK: true},
		{name: "empty", input: "", wantOK: false},
		{name: "unknown value", input: "WHITE", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTLPRating(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseTLPRating(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseTLPRating(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTLPRatingLevelOrdering(t *testing.T) {
	if !(TLPGreen.Level() < TLPAmber.Level() && TLPAmber.Level() < TLPRed.Level()) {
		t.Errorf("expected GREEN < AMBER < RED, got %d %d %d",
			TLPGreen.Level(), TLPAmber.Level(), TLPRed.Level())
	}
	if TLPRating("WHITE").Level() >= TLPGreen.Level() {
		t.Errorf("unknown rating must order below GREEN")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  Role
	}{
		{"admin", RoleAdmin},
		{"Admin", RoleAdmin},
		{"manager", RoleManager},
		{"employee", RoleEmployee},
		{"", RoleEmployee},
		{"superuser", RoleEmployee},
	}

	for _, tt := range tests {
		if got := ParseRole(tt.input); got != tt.want {
			t.Errorf("ParseRole(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		input string
		want  SeverityLevel
	}{
		{"CRITICAL", SeverityCritical},
		{"high", SeverityHigh},
		{"Medium", SeverityMedium},
		{"LOW", SeverityLow},
		{"", SeverityUnknown},
		{"NONE", SeverityUnknown},
		{"moderate", SeverityUnknown},
	}

	for _, tt := range tests {
		if got := NormalizeSeverity(tt.input); got != tt.want {
			t.Errorf("NormalizeSeverity(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestTaskStatusValid(t *testing.T) {
	for _, s := range []TaskStatus{StatusPending, StatusInProgress, StatusResolved, StatusClosed} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []TaskStatus{"", "done", "PENDING"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestIsRejectedRecord(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		want        bool
	}{
		{"clean", "CVE-2024-1000: heap overflow", "a heap overflow in the parser", false},
		{"marker in description", "CVE-2024-1001", "** REJECT ** DO NOT USE THIS CANDIDATE NUMBER.", true},
		{"marker only in title", "CVE-2024-1002: Rejected reason: duplicate assignment", "", true},
		{"empty record", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRejectedRecord(tt.title, tt.description); got != tt.want {
				t.Errorf("IsRejectedRecord(%q, %q) = %v, want %v", tt.title, tt.description, got, tt.want)
			}
		})
	}
}
