package observability

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// NewLogger builds the process-wide slog.Logger. Output is JSON on stdout
// with timestamps normalised to UTC so lines from the API server and the
// feed downloader sort consistently.
func NewLogger(level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(a.Key, a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	})

	return slog.New(handler)
}

// parseLevel maps the LOG_LEVEL config value onto a slog level. Unknown
// values fall back to info rather than failing startup.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
