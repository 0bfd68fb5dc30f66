package parser

import (
	"strings"
	"time"

	"github.com/noaa-wx/alertpipe/internal/model"
	"github.com/noaa-wx/alertpipe/internal/refdata"
)

// ActiveAlertFields is the subset of a single api.weather.gov
// /alerts/active GeoJSON feature the Pull Source hands to the parser. The
// upstream feed already carries fully expanded UGC codes and, for most
// products, a raw VTEC parameter — so this path reuses the same VTEC
// decode, product-type classification, and threat-extraction helpers as
// the text pipeline instead of re-deriving them from scratch (spec.md
// §4.3, "Pull Source → list of raw alerts → Parser (for each)").
type ActiveAlertFields struct {
	ID          string
	Office      string // issuing office code, e.g. CLE (the Pull Source derives it from the AWIPS identifier's suffix)
	AWIPSID     string // parameters.AWIPSidentifier, e.g. SVRCLE
	Event       string
	Headline    string
	Description string
	Instruction string
	Sent        time.Time
	Effective   time.Time
	Expires     time.Time
	UGCCodes    []string
	VTECLine    string
	Polygon     []model.LatLon
}

// FromActiveAlert converts one decoded GeoJSON feature into a model.Alert,
// mirroring parseSegment/parseCAPFallback's field assembly.
func FromActiveAlert(f ActiveAlertFields, receivedAt time.Time, refTable *refdata.Table) (model.Alert, error) {
	if len(f.UGCCodes) == 0 {
		return model.Alert{}, ErrMissingUGC
	}

	var vtec model.VTEC
	hasVTEC := false
	if strings.TrimSpace(f.VTECLine) != "" {
		if v, found, err := findVTEC([]string{f.VTECLine}); err == nil && found {
			vtec, hasVTEC = v, true
		}
	}

	h := header{Office: f.Office, ProductAWIPSID: f.AWIPSID}
	phenomenon, significance := derivePhenomenon(vtec, hasVTEC, h)
	eventName := f.Event
	if eventName == "" {
		eventName = model.EventName(phenomenon, significance)
	}

	issued := f.Sent
	if issued.IsZero() {
		issued = receivedAt
	}
	effective := f.Effective
	if effective.IsZero() {
		effective = issued
	}
	expiration := f.Expires
	if hasVTEC && !vtec.End.IsZero() {
		expiration = vtec.End
	}

	productID := buildProductID(h, vtec, hasVTEC, issued)
	if !hasVTEC && f.ID != "" {
		productID = f.ID
	}

	a := model.Alert{
		ProductID:      productID,
		Source:         model.SourcePull,
		VTEC:           vtec,
		HasVTEC:        hasVTEC,
		Phenomenon:     phenomenon,
		Significance:   significance,
		EventName:      eventName,
		Priority:       model.Priority(phenomenon, significance),
		Headline:       f.Headline,
		Description:    f.Description,
		Instruction:    f.Instruction,
		IssuedTime:     issued,
		EffectiveTime:  effective,
		ExpirationTime: expiration,
		AffectedAreas:  f.UGCCodes,
		IssuingOffices: issuingOffices(h, vtec, hasVTEC),
		Polygon:        f.Polygon,
		Threat:         extractThreat(f.Headline + "\n" + f.Description),
		Status:         model.StatusActive,
		ParsedAt:       receivedAt,
		LastUpdated:    receivedAt,
	}
	a.DisplayLocations = refTable.Render(a.AffectedAreas)
	return a, nil
}
