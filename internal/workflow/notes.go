package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vulnradar/vulnradar/internal/types"
)

// Notes are stored as a JSON array. Older installations stored them as a
// single text blob with "--- author (timestamp) ---" delimiters; DecodeNotes
// still reads that shape so existing rows survive the migration.

const legacyTimeFormat = "2006-01-02 15:04:05"

// EncodeNotes serializes a note log for storage. An empty log encodes as an
// empty string rather than "[]" to keep the column NULL-friendly.
func EncodeNotes(notes []types.TaskNote) (string, error) {
	if len(notes) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(notes)
	if err != nil {
		return "", fmt.Errorf("encoding task notes: %w", err)
	}
	return string(raw), nil
}

// DecodeNotes parses a stored note log, accepting both the JSON array format
// and the legacy delimited-text format.
func DecodeNotes(stored string) ([]types.TaskNote, error) {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return nil, nil
	}
	if strings.HasPrefix(stored, "[") {
		var notes []types.TaskNote
		if err := json.Unmarshal([]byte(stored), &notes); err != nil {
			return nil, fmt.Errorf("decoding task notes: %w", err)
		}
		return notes, nil
	}
	return decodeLegacyNotes(stored), nil
}

// decodeLegacyNotes parses the delimiter format:
//
//	--- alice (2024-01-02 15:04:05) ---
//	looked into it, vendor patch pending
//
// Header lines carry the author and timestamp; everything until the next
// header is the body. Malformed headers are kept as body text so nothing
// written by a user is dropped.
func decodeLegacyNotes(stored string) []types.TaskNote {
	var notes []types.TaskNote
	var current *types.TaskNote
	var body []string

	flush := func() {
		if current != nil {
			current.Body = strings.TrimSpace(strings.Join(body, "\n"))
			notes = append(notes, *current)
		}
		current = nil
		body = nil
	}

	for _, line := range strings.Split(stored, "\n") {
		author, ts, ok := parseLegacyHeader(line)
		if ok {
			flush()
			current = &types.TaskNote{Author: author, Timestamp: ts}
			continue
		}
		if current == nil {
			// Text before any header: attribute it to an unknown author.
			current = &types.TaskNote{Author: "unknown"}
		}
		body = append(body, line)
	}
	flush()
	return notes
}

func parseLegacyHeader(line string) (string, time.Time, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "--- ") || !strings.HasSuffix(line, " ---") {
		return "", time.Time{}, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(line, "--- "), " ---")
	open := strings.LastIndex(inner, " (")
	if open < 0 || !strings.HasSuffix(inner, ")") {
		return "", time.Time{}, false
	}
	author := inner[:open]
	stamp := strings.TrimSuffix(inner[open+2:], ")")
	ts, err := time.Parse(legacyTimeFormat, stamp)
	if err != nil {
		return "", time.Time{}, false
	}
	return author, ts.UTC(), true
}
