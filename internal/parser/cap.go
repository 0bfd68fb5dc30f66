package parser

import (
	"time"

	"github.com/noaa-wx/alertpipe/internal/model"
	"github.com/noaa-wx/alertpipe/internal/refdata"
	"github.com/noaa-wx/alertpipe/internal/wmo"
)

// parseCAPFallback handles products delivered as CAP XML instead of
// free-form prose (T1 == "X" in the WMO heading, or a body that simply
// contains "<alert"). It reuses the VTEC-line regex against the CAP
// parameter block so the same Store dedup/update rules apply regardless of
// which wire format a product arrived in.
func parseCAPFallback(raw string, h header, receivedAt time.Time, source model.Source, refTable *refdata.Table) (model.Alert, bool, error) {
	capAlert, err := wmo.ParseCAP(raw)
	if err != nil || capAlert == nil {
		return model.Alert{}, false, nil
	}
	fields, ok := capAlert.ToFields()
	if !ok {
		return model.Alert{}, false, nil
	}

	var vtec model.VTEC
	hasVTEC := false
	if fields.VTECLine != "" {
		if v, found, verr := findVTEC([]string{fields.VTECLine}); verr == nil && found {
			vtec, hasVTEC = v, true
		}
	}

	phenomenon, significance := derivePhenomenon(vtec, hasVTEC, h)
	eventName := fields.EventName
	if eventName == "" {
		eventName = model.EventName(phenomenon, significance)
	}

	areas := fields.UGCCodes
	if len(areas) == 0 {
		return model.Alert{}, false, ErrMissingUGC
	}

	issued := issueTimeNear(h, receivedAt)
	effective := fields.Effective
	if effective.IsZero() {
		effective = issued
	}
	expiration := fields.Expires
	if hasVTEC {
		expiration = vtec.End
	}

	a := model.Alert{
		ProductID:      buildProductID(h, vtec, hasVTEC, issued),
		Source:         source,
		VTEC:           vtec,
		HasVTEC:        hasVTEC,
		Phenomenon:     phenomenon,
		Significance:   significance,
		EventName:      eventName,
		Priority:       model.Priority(phenomenon, significance),
		Headline:       fields.Headline,
		Description:    fields.Description,
		Instruction:    fields.Instruction,
		IssuedTime:     issued,
		EffectiveTime:  effective,
		ExpirationTime: expiration,
		AffectedAreas:  areas,
		IssuingOffices: issuingOffices(h, vtec, hasVTEC),
		Threat:         extractThreat(fields.Headline + "\n" + fields.Description),
		Status:         model.StatusActive,
		ParsedAt:       receivedAt,
		LastUpdated:    receivedAt,
	}
	a.DisplayLocations = refTable.Render(a.AffectedAreas)
	return a, true, nil
}
