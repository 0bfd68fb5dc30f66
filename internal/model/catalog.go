package model

// eventKey disambiguates event names by the full (phenomenon, significance)
// pair, per spec.md §9's "adopt the newer parser" open-question resolution:
// TO/W and TO/A must not collapse to the same label.
type eventKey struct {
	Phenomenon   string
	Significance string
}

type eventEntry struct {
	Name     string
	Priority int
}

// eventCatalog maps (phenomenon, significance) to a human event name and a
// relative priority used for display ordering. Lower Priority sorts first
// (more severe). Grounded on the teacher's internal/wmo flat-table idiom
// (a static map keyed by a short code, as phenomenonByNNN still is).
var eventCatalog = map[eventKey]eventEntry{
	{"TO", "W"}: {"Tornado Warning", 1},
	{"TO", "A"}: {"Tornado Watch", 10},
	{"SV", "W"}: {"Severe Thunderstorm Warning", 2},
	{"SV", "A"}: {"Severe Thunderstorm Watch", 11},
	{"FF", "W"}: {"Flash Flood Warning", 3},
	{"FF", "A"}: {"Flash Flood Watch", 12},
	{"FF", "S"}: {"Flash Flood Statement", 20},
	{"FA", "W"}: {"Flood Warning", 6},
	{"FA", "A"}: {"Flood Watch", 14},
	{"FA", "Y"}: {"Flood Advisory", 16},
	{"WS", "W"}: {"Winter Storm Warning", 7},
	{"WS", "A"}: {"Winter Storm Watch", 15},
	{"WW", "Y"}: {"Winter Weather Advisory", 17},
	{"LE", "W"}: {"Lake Effect Snow Warning", 8},
	{"LE", "A"}: {"Lake Effect Snow Watch", 18},
	{"LE", "Y"}: {"Lake Effect Snow Advisory", 19},
	{"WC", "W"}: {"Wind Chill Warning", 9},
	{"WC", "A"}: {"Wind Chill Watch", 19},
	{"WC", "Y"}: {"Wind Chill Advisory", 21},
	{"SPS", ""}: {"Special Weather Statement", 22},
	{"SVS", ""}: {"Severe Weather Statement", 23},
}

// EventName returns the human label for (phenomenon, significance), falling
// back to "<phen>/<sig>" when the pair is not catalogued.
func EventName(phenomenon, significance string) string {
	if e, ok := eventCatalog[eventKey{phenomenon, significance}]; ok {
		return e.Name
	}
	if significance == "" {
		return phenomenon
	}
	return phenomenon + "/" + significance
}

// Priority returns the display priority for (phenomenon, significance). Lower
// is more severe. Unknown pairs sort last.
func Priority(phenomenon, significance string) int {
	if e, ok := eventCatalog[eventKey{phenomenon, significance}]; ok {
		return e.Priority
	}
	return 1000
}
