package parser

import (
	"fmt"
	"regexp"
	"time"

	"github.com/noaa-wx/alertpipe/internal/model"
)

// vtecLineRe matches /O.NEW.KCLE.SV.W.0042.251220T1815Z-251220T1900Z/, per
// spec.md §4.1 step 4. The product-class letter is captured (O/T/E) even
// though the spec's regex hardcodes "O" — operational is overwhelmingly the
// common case but the class is preserved rather than discarded.
var vtecLineRe = regexp.MustCompile(
	`/([OTE])\.(NEW|CON|EXT|EXA|EXB|UPG|CAN|EXP|COR|ROU)\.([A-Z]{4})\.([A-Z]{2})\.([WASFY])\.(\d{4})\.(\d{6}T\d{4})Z-(\d{6}T\d{4})Z/`,
)

// findVTEC scans segment lines for the first VTEC line. Absence is legal
// (spec.md §4.1 step 4: some product types carry no VTEC), so the bool
// return distinguishes "not present" from a parse error on a line that does
// look like VTEC but doesn't fully match.
func findVTEC(lines []string) (model.VTEC, bool, error) {
	for _, raw := range lines {
		line := trimmed(raw)
		if len(line) < 3 || line[0] != '/' {
			continue
		}
		if !looksLikeVTECAttempt(line) {
			continue
		}
		m := vtecLineRe.FindStringSubmatch(line)
		if m == nil {
			return model.VTEC{}, false, fmt.Errorf("%w: %q", ErrInvalidVTEC, line)
		}
		begin, err := parseVTECStamp(m[7])
		if err != nil {
			return model.VTEC{}, false, fmt.Errorf("%w: %v", ErrInvalidVTEC, err)
		}
		end, err := parseVTECStamp(m[8])
		if err != nil {
			return model.VTEC{}, false, fmt.Errorf("%w: %v", ErrInvalidVTEC, err)
		}
		v := model.VTEC{
			ProductClass: m[1],
			Action:       model.VTECAction(m[2]),
			Office:       m[3],
			Phenomenon:   m[4],
			Significance: m[5],
			TrackingNum:  m[6],
			Begin:        begin,
			End:          end,
		}
		return v, true, nil
	}
	return model.VTEC{}, false, nil
}

// looksLikeVTECAttempt is a coarse filter that avoids misclassifying an
// unrelated "/..../" line (e.g. a forecaster initials slash-block) as a
// failed VTEC parse.
func looksLikeVTECAttempt(line string) bool {
	return len(line) > 2 && (line[1] == 'O' || line[1] == 'T' || line[1] == 'E') &&
		len(line) > 3 && line[2] == '.'
}

// parseVTECStamp decodes a full VTEC timestamp, which (unlike header/UGC
// stamps) carries its own two-digit year: "YYMMDDThhmm".
func parseVTECStamp(s string) (time.Time, error) {
	return time.Parse("060102T1504", s)
}
