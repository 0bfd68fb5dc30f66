package parser

import (
	"fmt"
	"regexp"
	"time"
)

// header is the decoded WMO abbreviated heading: six-letter data
// designator/originator/ii, the four-letter issuing office, and the DDHHMM
// issue stamp, e.g. "WUUS53 KCLE 201815" (spec.md §4.1 step 1; the example in
// §8 scenario S1 is followed literally here since it fully disambiguates the
// field widths where the prose description is imprecise about them).
type header struct {
	Designator string // e.g. WUUS53
	Office     string // e.g. KCLE
	Day        int
	Hour       int
	Minute     int
	ProductAWIPSID string // second line, e.g. SVRCLE
}

var headerLineRe = regexp.MustCompile(`^([A-Z]{6})\s+([A-Z]{4})\s+(\d{2})(\d{2})(\d{2})\s*$`)

// parseHeader reads the first two lines of a raw product body.
func parseHeader(lines []string) (header, error) {
	if len(lines) == 0 {
		return header{}, ErrEmptyBody
	}
	m := headerLineRe.FindStringSubmatch(lines[0])
	if m == nil {
		return header{}, fmt.Errorf("%w: %q", ErrMalformedHeader, lines[0])
	}

	var h header
	h.Designator = m[1]
	h.Office = m[2]
	fmt.Sscanf(m[3], "%d", &h.Day)
	fmt.Sscanf(m[4], "%d", &h.Hour)
	fmt.Sscanf(m[5], "%d", &h.Minute)

	for i := 1; i < len(lines) && i < 4; i++ {
		if l := trimmed(lines[i]); l != "" {
			h.ProductAWIPSID = l
			break
		}
	}

	return h, nil
}

// issueTimeNear resolves the header's day/hour/minute against a reference
// instant (the time the product was received).
func issueTimeNear(h header, ref time.Time) time.Time {
	return resolveDDHHMM(h.Day, h.Hour, h.Minute, ref, false)
}
