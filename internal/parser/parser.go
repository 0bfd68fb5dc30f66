// Package parser turns a raw NWS text product into one or more structured
// model.Alert records. It is pure, synchronous, and deterministic: given the
// same raw bytes and receivedAt instant, it always returns the same result
// (spec.md §4.1).
package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/noaa-wx/alertpipe/internal/model"
	"github.com/noaa-wx/alertpipe/internal/refdata"
	"github.com/noaa-wx/alertpipe/internal/wmo"
)

// isLikelyCAP reports whether a raw delivery looks like CAP XML rather than
// free-form prose, using the header designator's first letter as T1 (the
// WMO data-type code; "X" denotes Common Alerting Protocol messages).
func isLikelyCAP(h header, raw string) bool {
	if len(h.Designator) == 0 {
		return wmo.IsLikelyCAP("", raw)
	}
	return wmo.IsLikelyCAP(h.Designator[:1], raw)
}

// Parse decodes a raw product body into one Alert per segment. refTable may
// be nil, in which case display_locations falls back to the raw codes.
func Parse(raw string, receivedAt time.Time, source model.Source, refTable *refdata.Table) ([]model.Alert, error) {
	lines := splitLines(raw)
	if len(nonEmptyLines(lines)) == 0 {
		return nil, ErrEmptyBody
	}

	h, err := parseHeader(lines)
	if err != nil {
		return nil, err
	}

	if isLikelyCAP(h, raw) {
		if a, ok, err := parseCAPFallback(raw, h, receivedAt, source, refTable); err != nil {
			return nil, err
		} else if ok {
			return []model.Alert{a}, nil
		}
		// Fell through: looked like CAP but didn't decode; try the plain
		// text pipeline below instead of failing outright.
	}

	issued := issueTimeNear(h, receivedAt)

	segments := segmentBodies(raw)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no segments", ErrEmptyBody)
	}

	var alerts []model.Alert
	var firstErr error
	for _, seg := range segments {
		a, err := parseSegment(seg, h, issued, receivedAt, source, refTable)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		alerts = append(alerts, a)
	}

	if len(alerts) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, ErrMissingUGC
	}
	return alerts, nil
}

func parseSegment(seg string, h header, issued, receivedAt time.Time, source model.Source, refTable *refdata.Table) (model.Alert, error) {
	segLines := splitLines(seg)

	ugcBlock, found := findUGCBlock(segLines)
	if !found {
		return model.Alert{}, ErrMissingUGC
	}
	ugc, err := parseUGC(ugcBlock, receivedAt)
	if err != nil {
		return model.Alert{}, err
	}

	vtec, hasVTEC, err := findVTEC(segLines)
	if err != nil {
		return model.Alert{}, err
	}

	phenomenon, significance := derivePhenomenon(vtec, hasVTEC, h)

	polygon := findPolygon(segLines)
	secs := splitSections(segLines)
	threat := extractThreat(strings.Join([]string{secs.Headline, secs.Description}, "\n"))

	effective := issued
	expiration := ugc.ExpirationTime
	if hasVTEC {
		effective = vtec.Begin
		expiration = vtec.End
	}

	productID := buildProductID(h, vtec, hasVTEC, issued)

	a := model.Alert{
		ProductID:       productID,
		Source:          source,
		VTEC:            vtec,
		HasVTEC:         hasVTEC,
		Phenomenon:      phenomenon,
		Significance:    significance,
		EventName:       model.EventName(phenomenon, significance),
		Priority:        model.Priority(phenomenon, significance),
		Headline:        secs.Headline,
		Description:     secs.Description,
		Instruction:     secs.Instruction,
		IssuedTime:      issued,
		EffectiveTime:   effective,
		ExpirationTime:  expiration,
		AffectedAreas:   ugc.Areas,
		IssuingOffices:  issuingOffices(h, vtec, hasVTEC),
		Polygon:         polygon,
		Threat:          threat,
		Status:          model.StatusActive,
		ParsedAt:        receivedAt,
		LastUpdated:     receivedAt,
		UpdateCount:     0,
	}
	a.DisplayLocations = refTable.Render(a.AffectedAreas)

	return a, nil
}

// derivePhenomenon resolves (phenomenon, significance) from VTEC when
// present, otherwise from the second header line's AWIPS product-type code
// (spec.md §4.1 step 4).
func derivePhenomenon(vtec model.VTEC, hasVTEC bool, h header) (string, string) {
	if hasVTEC {
		return vtec.Phenomenon, vtec.Significance
	}
	awips := &wmo.AWIPSProductID{}
	id := strings.ToUpper(strings.TrimSpace(h.ProductAWIPSID))
	if len(id) >= 3 {
		awips.NNN, awips.XXX = id[:3], id[3:]
	}
	if phen, sig, ok := awips.ClassifyPhenomenon(); ok {
		return phen, sig
	}
	return "", ""
}

// buildProductID composes the store's primary key: office + product type +
// issue timestamp + tracking number (spec.md §3). VTEC-bearing products use
// the VTEC's own office/phenomenon/significance/tracking-number tuple plus
// the VTEC begin stamp, since that tuple is what the Store's upsert index is
// keyed on; VTEC-less products fall back to the header's designator/office
// and issuance stamp.
func buildProductID(h header, vtec model.VTEC, hasVTEC bool, issued time.Time) string {
	if hasVTEC {
		return fmt.Sprintf("%s.%s.%s.%s.%s", vtec.Office, vtec.Phenomenon, vtec.Significance, vtec.TrackingNum, vtec.Begin.Format("20060102T1504"))
	}
	return fmt.Sprintf("%s.%s.%s", h.Office, h.Designator, issued.Format("20060102T1504"))
}

// issuingOffices populates the set of offices responsible for a segment:
// the transmitting header office plus the VTEC office when it differs.
func issuingOffices(h header, vtec model.VTEC, hasVTEC bool) []string {
	offices := []string{h.Office}
	if hasVTEC && vtec.Office != "" && vtec.Office != h.Office {
		offices = append(offices, vtec.Office)
	}
	return offices
}
