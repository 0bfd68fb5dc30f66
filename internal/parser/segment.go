package parser

import "strings"

// segmentBodies returns each independently-parsed chunk of a product body,
// splitting on a blank line followed by a "$$" terminator line (spec.md
// §4.1 step 2). The header is not copied onto any segment: the first
// segment still contains the header lines as they appear in the body, later
// segments do not, and the caller passes the decoded header separately.
func segmentBodies(raw string) []string {
	lines := splitLines(raw)

	var segments []string
	var cur []string
	sawBlank := false

	flush := func() {
		if len(cur) == 0 {
			return
		}
		text := strings.TrimRight(strings.Join(cur, "\n"), "\n")
		if strings.TrimSpace(text) != "" {
			segments = append(segments, text)
		}
		cur = nil
	}

	for _, line := range lines {
		t := trimmed(line)
		if t == "$$" && sawBlank {
			flush()
			sawBlank = false
			continue
		}
		sawBlank = t == ""
		cur = append(cur, line)
	}
	flush()

	if len(segments) == 0 {
		return []string{strings.TrimRight(raw, "\n")}
	}
	return segments
}
