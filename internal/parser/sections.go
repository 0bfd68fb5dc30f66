package parser

import (
	"regexp"
	"strings"
)

// sections is the free-text portion of a segment split into the headline
// (the all-caps "...SEVERE THUNDERSTORM WARNING..." line), description
// (WHAT/WHERE/WHEN narrative), and instruction (the closing "PRECAUTIONARY/
// PREPAREDNESS ACTIONS" paragraph), per spec.md §4.1 step 6.
type sections struct {
	Headline    string
	Description string
	Instruction string
}

var headlineRe = regexp.MustCompile(`^\.\.\.([A-Z0-9 /,.\-']+?)\.\.\.\s*$`)
var instructionHeadingRe = regexp.MustCompile(`(?i)^(PRECAUTIONARY/PREPAREDNESS ACTIONS)\s*$`)

// splitSections walks a segment's body lines (with the UGC/VTEC/polygon
// blocks already stripped by the caller isn't required — this scans the
// whole segment and only pulls out what it recognizes) and groups the
// narrative text.
func splitSections(lines []string) sections {
	var s sections
	var headlineLines []string
	var descLines []string
	var instrLines []string

	inInstruction := false
	for _, raw := range lines {
		line := strings.TrimRight(raw, " \t")
		trimmedLine := trimmed(line)

		if m := headlineRe.FindStringSubmatch(trimmedLine); m != nil {
			headlineLines = append(headlineLines, strings.TrimSpace(m[1]))
			continue
		}
		if instructionHeadingRe.MatchString(trimmedLine) {
			inInstruction = true
			continue
		}
		if isStructuralLine(trimmedLine) {
			continue
		}
		if inInstruction {
			instrLines = append(instrLines, line)
		} else {
			descLines = append(descLines, line)
		}
	}

	s.Headline = strings.Join(headlineLines, " ")
	s.Description = joinParagraph(descLines)
	s.Instruction = joinParagraph(instrLines)
	return s
}

// isStructuralLine filters out lines that belong to other decoded blocks
// (UGC, VTEC, LAT...LON, the trailing "$" segment terminator, forecaster
// initials) rather than the free-text narrative.
func isStructuralLine(line string) bool {
	if line == "" || line == "$" {
		return true
	}
	if strings.HasPrefix(line, "/") && strings.HasSuffix(line, "/") {
		return true
	}
	if ugcFullCodeRe.MatchString(firstToken(line)) {
		return true
	}
	if strings.HasPrefix(line, "LAT...LON") {
		return true
	}
	if numberTokenRe.MatchString(line) || isAllNumericTokens(line) {
		return true
	}
	return false
}

// joinParagraph collapses wrapped NWS text lines into single-spaced
// sentences while preserving paragraph breaks on blank lines.
func joinParagraph(lines []string) string {
	var out []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, l := range lines {
		t := trimmed(l)
		if t == "" {
			flush()
			continue
		}
		cur = append(cur, t)
	}
	flush()
	return strings.TrimSpace(strings.Join(out, "\n\n"))
}
