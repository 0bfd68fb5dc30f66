package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/noaa-wx/alertpipe/internal/model"
)

// latLonHeaderRe finds the first line of a "LAT...LON 4123 8234 4100 8200 ..."
// block; findPolygon collects its continuation lines (spec.md §4.1 step 5).
var latLonHeaderRe = regexp.MustCompile(`LAT\.\.\.LON\s+(.*)`)
var numberTokenRe = regexp.MustCompile(`^\d{3,5}$`)

// findPolygon decodes a LAT...LON block into normalized vertices. Pairs are
// hundredths of a degree; longitudes are emitted positive in the source but
// represent the western hemisphere and must be negated. The result is
// closed (first == last) with at least 4 vertices, or nil if no valid
// polygon is present.
func findPolygon(lines []string) []model.LatLon {
	var tokens []string
	collecting := false
	for _, raw := range lines {
		line := trimmed(raw)
		if !collecting {
			m := latLonHeaderRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			collecting = true
			tokens = append(tokens, strings.Fields(m[1])...)
			continue
		}
		// Continuation lines are pure coordinate tokens with no new heading.
		if line == "" || !isAllNumericTokens(line) {
			break
		}
		tokens = append(tokens, strings.Fields(line)...)
	}

	if len(tokens) < 8 || len(tokens)%2 != 0 {
		return nil
	}

	points := make([]model.LatLon, 0, len(tokens)/2)
	for i := 0; i+1 < len(tokens); i += 2 {
		lat, ok1 := parseHundredthsDegree(tokens[i])
		lon, ok2 := parseHundredthsDegree(tokens[i+1])
		if !ok1 || !ok2 {
			return nil
		}
		points = append(points, model.LatLon{Lat: lat, Lon: -lon})
	}

	if len(points) < 4 {
		return nil
	}
	first, last := points[0], points[len(points)-1]
	if first.Lat != last.Lat || first.Lon != last.Lon {
		points = append(points, first)
	}
	return points
}

func isAllNumericTokens(line string) bool {
	for _, tok := range strings.Fields(line) {
		if !numberTokenRe.MatchString(tok) {
			return false
		}
	}
	return true
}

func parseHundredthsDegree(tok string) (float64, bool) {
	if !numberTokenRe.MatchString(tok) {
		return 0, false
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return float64(n) / 100.0, true
}
