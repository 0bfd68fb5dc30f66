package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/noaa-wx/alertpipe/internal/model"
)

// tag is one of the small set of line categories the threat grammar
// recognizes before any numeric regex is applied (spec.md §9: tag first,
// then extract — this is what keeps "up to 1 inch of quick snow" from being
// read as a hail line just because it contains "1 inch").
type tag int

const (
	tagNone tag = iota
	tagHail
	tagWind
	tagSnow
	tagIce
	tagTornado
	tagMotion
)

func tagLine(line string) []tag {
	upper := strings.ToUpper(line)
	var tags []tag
	if strings.Contains(upper, "HAIL") || strings.Contains(upper, "SIZE") {
		tags = append(tags, tagHail)
	}
	if strings.Contains(upper, "WIND") || strings.Contains(upper, "GUST") {
		tags = append(tags, tagWind)
	}
	if strings.Contains(upper, "SNOW") {
		tags = append(tags, tagSnow)
	}
	if strings.Contains(upper, "ICE") || strings.Contains(upper, "ICING") {
		tags = append(tags, tagIce)
	}
	if strings.Contains(upper, "TORNADO") {
		tags = append(tags, tagTornado)
	}
	if strings.Contains(upper, "MOVING") {
		tags = append(tags, tagMotion)
	}
	return tags
}

func hasTag(tags []tag, want tag) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

var (
	tornadoDetectionRe = regexp.MustCompile(`(?i)\b(RADAR INDICATED|OBSERVED|CONFIRMED)\b`)
	tornadoThreatRe    = regexp.MustCompile(`(?i)^TORNADO DAMAGE THREAT\.\.\.(CONSIDERABLE|CATASTROPHIC)`)

	windSustainedRe = regexp.MustCompile(`(?i)WINDS?\s+(\d+)\s+TO\s+(\d+)\s*MPH`)
	windGustRe      = regexp.MustCompile(`(?i)GUSTS?\s+(?:UP\s+)?TO\s+(\d+)\s*MPH`)

	hailDecimalRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:IN|INCH(?:ES)?)\b`)

	snowRangeRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s+TO\s+(\d+(?:\.\d+)?)\s*INCH(?:ES)?\s+OF\s+(?:[A-Z]+\s+)?SNOW`)
	snowUpToRe  = regexp.MustCompile(`(?i)UP\s+TO\s+(\d+(?:\.\d+)?)\s*INCH(?:ES)?\s+OF\s+(?:[A-Z]+\s+)?SNOW`)
	snowFlatRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*INCH(?:ES)?\s+OF\s+(?:[A-Z]+\s+)?SNOW`)

	iceRangeRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s+TO\s+(\d+(?:\.\d+)?)\s*INCH(?:ES)?\s+OF\s+ICE`)
	iceUpToRe  = regexp.MustCompile(`(?i)UP\s+TO\s+(\d+(?:\.\d+)?)\s*INCH(?:ES)?\s+OF\s+ICE`)
	iceFlatRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*INCH(?:ES)?\s+OF\s+ICE`)

	motionRe = regexp.MustCompile(`(?i)MOVING\s+([NSEW]{1,2})\s+AT\s+(\d+)\s*MPH`)
)

// namedHailSizes maps the named hail-size vocabulary NWS forecasters use
// (in addition to literal decimal inches) to inches.
var namedHailSizes = map[string]float64{
	"QUARTER":   1.0,
	"PING PONG": 1.5,
	"PING-PONG": 1.5,
	"GOLF":      1.75,
	"TENNIS":    2.5,
	"BASEBALL":  2.75,
	"SOFTBALL":  4.0,
}

// extractThreat applies the tag-then-extract grammar over a block of free
// text (normally the combined headline + description). Tagging each line
// before running numeric regexes keeps unrelated quantities on a line from
// being misattributed to the wrong hazard (spec.md §8 S9).
func extractThreat(text string) model.Threat {
	var th model.Threat
	lines := splitLines(text)

	for _, raw := range lines {
		line := trimmed(raw)
		if line == "" {
			continue
		}
		tags := tagLine(line)

		if hasTag(tags, tagTornado) {
			upper := strings.ToUpper(line)
			if tornadoDetectionRe.MatchString(upper) {
				m := tornadoDetectionRe.FindStringSubmatch(upper)
				det := normalizeDetection(m[1])
				th.TornadoDetection = det
			}
			if m := tornadoThreatRe.FindStringSubmatch(strings.ToUpper(line)); m != nil {
				dt := model.TornadoDamageThreat(m[1])
				th.TornadoDamageThreat = &dt
			}
		}

		if hasTag(tags, tagWind) {
			if m := windSustainedRe.FindStringSubmatch(line); m != nil {
				lo, _ := strconv.Atoi(m[1])
				hi, _ := strconv.Atoi(m[2])
				th.SustainedWindMinMPH = &lo
				th.SustainedWindMaxMPH = &hi
			}
			if m := windGustRe.FindStringSubmatch(line); m != nil {
				gust, _ := strconv.Atoi(m[1])
				th.MaxWindGustMPH = &gust
			}
		}

		if hasTag(tags, tagHail) && !hasTag(tags, tagSnow) && !hasTag(tags, tagIce) {
			if size, ok := extractHailSize(line); ok {
				th.MaxHailSizeInches = &size
			}
		}

		if hasTag(tags, tagSnow) {
			if lo, hi, ok := extractSnowRange(line); ok {
				th.SnowAmountMinInches = &lo
				th.SnowAmountMaxInches = &hi
			}
		}

		if hasTag(tags, tagIce) {
			if amt, ok := extractIceAmount(line); ok {
				th.IceAmountMinInches = &amt
				th.IceAmountMaxInches = &amt
			}
		}

		if hasTag(tags, tagMotion) {
			if m := motionRe.FindStringSubmatch(line); m != nil {
				mph, _ := strconv.Atoi(m[2])
				th.StormMotionDirection = m[1]
				th.StormMotionSpeedMPH = &mph
			}
		}
	}

	return th
}

func normalizeDetection(token string) string {
	switch strings.ToUpper(token) {
	case "RADAR INDICATED":
		return "RADAR_INDICATED"
	case "OBSERVED":
		return "OBSERVED"
	case "CONFIRMED":
		return "CONFIRMED"
	default:
		return strings.ToUpper(token)
	}
}

// extractHailSize resolves either a named hail size or a literal decimal
// inches figure on a line already confirmed to carry the HAIL/SIZE token.
func extractHailSize(line string) (float64, bool) {
	upper := strings.ToUpper(line)
	for name, size := range namedHailSizes {
		if strings.Contains(upper, name) {
			return size, true
		}
	}
	if m := hailDecimalRe.FindStringSubmatch(line); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return v, true
		}
	}
	return 0, false
}

func extractSnowRange(line string) (float64, float64, bool) {
	if m := snowRangeRe.FindStringSubmatch(line); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		return lo, hi, true
	}
	if m := snowUpToRe.FindStringSubmatch(line); m != nil {
		hi, _ := strconv.ParseFloat(m[1], 64)
		return 0, hi, true
	}
	if m := snowFlatRe.FindStringSubmatch(line); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return v, v, true
	}
	return 0, 0, false
}

func extractIceAmount(line string) (float64, bool) {
	if m := iceRangeRe.FindStringSubmatch(line); m != nil {
		_, _ = strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		return hi, true
	}
	if m := iceUpToRe.FindStringSubmatch(line); m != nil {
		hi, _ := strconv.ParseFloat(m[1], 64)
		return hi, true
	}
	if m := iceFlatRe.FindStringSubmatch(line); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return v, true
	}
	return 0, false
}
