package pull

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/noaa-wx/alertpipe/internal/model"
	"github.com/noaa-wx/alertpipe/internal/parser"
)

// activeAlertsDocument mirrors the GeoJSON FeatureCollection returned by
// GET {base_url}/alerts/active (spec.md §6 "Inbound protocol — HTTP pull").
type activeAlertsDocument struct {
	Features []activeAlertFeature `json:"features"`
}

type activeAlertFeature struct {
	ID         string              `json:"id"`
	Geometry   *geoJSONGeometry    `json:"geometry"`
	Properties activeAlertProperties `json:"properties"`
}

type activeAlertProperties struct {
	ID          string              `json:"id"`
	Event       string              `json:"event"`
	Headline    string              `json:"headline"`
	Description string              `json:"description"`
	Instruction string              `json:"instruction"`
	Sent        string              `json:"sent"`
	Effective   string              `json:"effective"`
	Expires     string              `json:"expires"`
	SenderName  string              `json:"senderName"`
	Parameters  map[string][]string `json:"parameters"`
	Geocode     struct {
		UGC  []string `json:"UGC"`
		SAME []string `json:"SAME"`
	} `json:"geocode"`
}

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// toFields converts one GeoJSON feature into parser.ActiveAlertFields,
// expanding the one upstream field that the parser's shared helpers need in
// header form (the AWIPS/office identifiers) and decoding geometry into
// polygon vertices when the alert's shape is a Polygon.
func (f activeAlertFeature) toFields() (parser.ActiveAlertFields, error) {
	p := f.Properties
	if len(p.Geocode.UGC) == 0 {
		return parser.ActiveAlertFields{}, fmt.Errorf("pull: feature %s carries no UGC geocode", f.ID)
	}

	fields := parser.ActiveAlertFields{
		ID:          f.ID,
		Office:      officeFromSender(p.SenderName, firstParam(p.Parameters, "AWIPSidentifier")),
		AWIPSID:     firstParam(p.Parameters, "AWIPSidentifier"),
		Event:       p.Event,
		Headline:    p.Headline,
		Description: p.Description,
		Instruction: p.Instruction,
		Sent:        parseUpstreamTime(p.Sent),
		Effective:   parseUpstreamTime(p.Effective),
		Expires:     parseUpstreamTime(p.Expires),
		UGCCodes:    p.Geocode.UGC,
		VTECLine:    firstParam(p.Parameters, "VTEC"),
	}

	if f.Geometry != nil && f.Geometry.Type == "Polygon" {
		fields.Polygon = decodePolygonRing(f.Geometry.Coordinates)
	}
	return fields, nil
}

// officeFromSender derives the issuing office from the AWIPS identifier when
// present: everything after its first three letters, e.g. "SVRCLE" → "CLE".
// The four-letter form ("KCLE") is not recoverable without the K/P/T prefix
// table, so the AWIPS suffix is used as the office code. Without an AWIPS
// identifier it returns the upper-cased sender name.
func officeFromSender(senderName, awipsID string) string {
	id := strings.ToUpper(strings.TrimSpace(awipsID))
	if len(id) > 3 {
		return id[3:]
	}
	return strings.ToUpper(strings.TrimSpace(senderName))
}

func firstParam(params map[string][]string, name string) string {
	if v, ok := params[name]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

func parseUpstreamTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// decodePolygonRing decodes a GeoJSON Polygon's outer ring — an array of
// [lon, lat] pairs — into model.LatLon vertices. Unlike the text pipeline's
// LAT...LON blocks, GeoJSON coordinates are already signed decimal degrees
// in [lon, lat] order, so no hundredths-of-a-degree scaling or sign flip is
// needed here.
func decodePolygonRing(raw json.RawMessage) []model.LatLon {
	var rings [][][]float64
	if err := json.Unmarshal(raw, &rings); err != nil || len(rings) == 0 {
		return nil
	}
	ring := rings[0]
	points := make([]model.LatLon, 0, len(ring))
	for _, pair := range ring {
		if len(pair) < 2 {
			continue
		}
		points = append(points, model.LatLon{Lat: pair[1], Lon: pair[0]})
	}
	if len(points) < 4 {
		return nil
	}
	return points
}
