package parser

import (
	"strings"
	"time"
)

// resolveDDHHMM expands a WMO-style day/hour/minute-of-month stamp against a
// reference instant. WMO headers and UGC/VTEC timestamps carry no month or
// year, so the month is inferred from context: preferFuture pulls the
// candidate a month forward if it would otherwise land in the past (for
// expiration/end stamps, which are never issued in the past); the opposite
// rolls a candidate that lands implausibly far in the future back a month
// (for issuance/begin stamps, which should be close to ref).
func resolveDDHHMM(day, hour, minute int, ref time.Time, preferFuture bool) time.Time {
	ref = ref.UTC()
	candidate := time.Date(ref.Year(), ref.Month(), day, hour, minute, 0, 0, time.UTC)
	if preferFuture {
		if candidate.Before(ref) {
			candidate = candidate.AddDate(0, 1, 0)
		}
		return candidate
	}
	if candidate.After(ref.Add(2 * time.Hour)) {
		candidate = candidate.AddDate(0, -1, 0)
	}
	return candidate
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return strings.Split(raw, "\n")
}

// nonEmptyLines returns lines with surrounding whitespace trimmed, skipping
// fully blank ones, preserving relative order.
func nonEmptyLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := trimmed(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}
