package hub

import (
	"strings"

	"github.com/noaa-wx/alertpipe/internal/model"
)

// Filter is the optional server-side subscription filter a client installs
// via a `subscribe` control frame (spec.md §4.5). The zero value matches
// everything.
type Filter struct {
	States    []string // two-letter, upper-cased
	Phenomena []string // two-letter, upper-cased
}

func (f Filter) matches(a model.Alert) bool {
	if len(f.States) == 0 && len(f.Phenomena) == 0 {
		return true
	}
	if len(f.Phenomena) > 0 && !containsFold(f.Phenomena, a.Phenomenon) {
		return false
	}
	if len(f.States) > 0 {
		matched := false
		for _, st := range alertStates(a) {
			if containsFold(f.States, st) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// alertStates derives the set of two-letter state codes an alert touches
// from the leading digraph of each UGC code in affected_areas.
func alertStates(a model.Alert) []string {
	seen := make(map[string]bool)
	var out []string
	for _, code := range a.AffectedAreas {
		if len(code) < 2 {
			continue
		}
		st := strings.ToUpper(code[:2])
		if !seen[st] {
			seen[st] = true
			out = append(out, st)
		}
	}
	return out
}

func containsFold(set []string, v string) bool {
	v = strings.ToUpper(v)
	for _, s := range set {
		if strings.ToUpper(s) == v {
			return true
		}
	}
	return false
}

func normalizeUpper(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
