package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ugcResult is the decoded form of a segment's leading geographic-code
// block: "SSXnnn[-nnn]*-DDHHMM-" (spec.md §4.1 step 3).
type ugcResult struct {
	Areas          []string // fully expanded UGC codes, order preserved
	ExpirationTime time.Time
}

var ugcFullCodeRe = regexp.MustCompile(`^([A-Z]{2})([CZ])(\d{3})$`)
var ugcNumberRe = regexp.MustCompile(`^\d{3}$`)
var ugcRangeRe = regexp.MustCompile(`^(\d{3})>(\d{3})$`)
var ugcStampRe = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})$`)

// findUGCBlock locates the UGC block within a segment's lines: a line
// starting with a full "SSXnnn" code, plus any immediately following lines
// that are themselves pure UGC continuation tokens (more codes, ranges, or
// the terminal DDHHMM stamp). Every physical UGC line ends in a trailing
// "-" regardless of whether it is the last one, so a trailing hyphen alone
// cannot signal continuation — the VTEC line that often follows on the next
// line also starts with a letter but is not itself UGC content, so it is
// rejected by isUGCContinuationLine rather than greedily absorbed.
func findUGCBlock(lines []string) (string, bool) {
	var parts []string
	building := false
	for _, raw := range lines {
		line := trimmed(raw)
		if line == "" {
			if building {
				break
			}
			continue
		}
		if !building {
			if !looksLikeUGCStart(line) {
				// header/product-type lines precede the UGC block; skip
				// until we find something that looks like one.
				continue
			}
			building = true
		} else if !isUGCContinuationLine(line) {
			break
		}
		parts = append(parts, line)
		if containsStampToken(line) {
			break
		}
	}
	if !building {
		return "", false
	}
	return strings.Join(parts, ""), true
}

func looksLikeUGCStart(line string) bool {
	if len(line) < 6 {
		return false
	}
	return ugcFullCodeRe.MatchString(firstToken(line))
}

// isUGCContinuationLine reports whether every "-"-delimited token on the
// line is itself valid UGC content (full code, bare number, range, or the
// terminal stamp) — distinguishing a wrapped continuation of the code list
// from an unrelated following line (VTEC, city/county name row, narrative).
func isUGCContinuationLine(line string) bool {
	for _, tok := range strings.Split(strings.TrimRight(line, "-"), "-") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if ugcFullCodeRe.MatchString(tok) || ugcNumberRe.MatchString(tok) ||
			ugcRangeRe.MatchString(tok) || ugcStampRe.MatchString(tok) {
			continue
		}
		return false
	}
	return true
}

func containsStampToken(line string) bool {
	for _, tok := range strings.Split(strings.TrimRight(line, "-"), "-") {
		if ugcStampRe.MatchString(strings.TrimSpace(tok)) {
			return true
		}
	}
	return false
}

// firstToken returns the leading "-"-delimited token of a UGC line.
func firstToken(line string) string {
	if i := strings.IndexByte(line, '-'); i >= 0 {
		return line[:i]
	}
	return line
}

// parseUGC decodes a UGC block string into fully expanded area codes plus
// the preliminary expiration time it terminates with.
func parseUGC(block string, ref time.Time) (ugcResult, error) {
	block = strings.TrimRight(strings.TrimSpace(block), "-")
	if block == "" {
		return ugcResult{}, ErrMissingUGC
	}

	tokens := strings.Split(block, "-")

	var areas []string
	var curState, curKind string
	var stamp string

	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		if m := ugcFullCodeRe.FindStringSubmatch(tok); m != nil {
			curState, curKind = m[1], m[2]
			areas = append(areas, curState+curKind+m[3])
			continue
		}
		if m := ugcRangeRe.FindStringSubmatch(tok); m != nil && curState != "" {
			lo, _ := strconv.Atoi(m[1])
			hi, _ := strconv.Atoi(m[2])
			for n := lo; n <= hi; n++ {
				areas = append(areas, fmt.Sprintf("%s%s%03d", curState, curKind, n))
			}
			continue
		}
		if ugcNumberRe.MatchString(tok) && curState != "" {
			areas = append(areas, fmt.Sprintf("%s%s%s", curState, curKind, tok))
			continue
		}
		if ugcStampRe.MatchString(tok) {
			stamp = tok
			continue
		}
		// Unrecognized token (e.g. a malformed fragment); if it's the last
		// token, tolerate it as a missing/short stamp rather than failing
		// the whole segment.
		if i == len(tokens)-1 {
			continue
		}
	}

	if len(areas) == 0 {
		return ugcResult{}, ErrMissingUGC
	}

	res := ugcResult{Areas: areas}
	if stamp != "" {
		m := ugcStampRe.FindStringSubmatch(stamp)
		var day, hour, minute int
		fmt.Sscanf(m[1], "%d", &day)
		fmt.Sscanf(m[2], "%d", &hour)
		fmt.Sscanf(m[3], "%d", &minute)
		res.ExpirationTime = resolveDDHHMM(day, hour, minute, ref, true)
	}
	return res, nil
}
