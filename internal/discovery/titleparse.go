package discovery

import (
	"strings"
	"time"

	"github.com/charleschow/arb-engine/internal/teammatch"
)

// teamNamesFromTitle splits a venue's market title ("Lakers at Celtics
// Winner?") into its two normalized team names.
func teamNamesFromTitle(title string) (string, string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ""
	}
	for _, sep := range []string{" at ", " vs. ", " vs "} {
		idx := strings.Index(title, sep)
		if idx < 0 {
			continue
		}
		t1 := strings.TrimSpace(title[:idx])
		rest := strings.TrimSpace(title[idx+len(sep):])
		rest = strings.TrimSuffix(rest, " Winner?")
		rest = strings.TrimSuffix(rest, " Winner")
		rest = strings.TrimSuffix(rest, "?")
		rest = strings.TrimSpace(rest)
		if t1 != "" && rest != "" {
			return teammatch.Normalize(t1), teammatch.Normalize(rest)
		}
	}
	return "", ""
}

func fuzzyContains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

func parseMarketExpiry(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func absTimeDiff(a, b time.Time) time.Duration {
	if a.IsZero() || b.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
