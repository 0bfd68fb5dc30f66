// Package model holds the data types shared by every stage of the alert
// pipeline: the parser produces Alerts, the store owns them, the hub
// serializes them into frames.
package model

import "time"

// Source tags where an Alert entered the pipeline.
type Source string

const (
	SourcePush Source = "push"
	SourcePull Source = "pull"
)

// Status is the lifecycle stage of an Alert inside the Store.
type Status string

const (
	StatusActive    Status = "active"
	StatusUpdated   Status = "updated"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// VTECAction is the action code carried by a VTEC line.
type VTECAction string

const (
	ActionNEW VTECAction = "NEW"
	ActionCON VTECAction = "CON"
	ActionEXT VTECAction = "EXT"
	ActionEXA VTECAction = "EXA"
	ActionEXB VTECAction = "EXB"
	ActionUPG VTECAction = "UPG"
	ActionCAN VTECAction = "CAN"
	ActionEXP VTECAction = "EXP"
	ActionCOR VTECAction = "COR"
	ActionROU VTECAction = "ROU"
)

// VTEC is the decoded form of a product's /O.action.office.phen.sig.etn.begin-end/ line.
type VTEC struct {
	ProductClass string // "O" operational, "T" test, "E" experimental
	Action       VTECAction
	Office       string // 4-letter office, e.g. KCLE
	Phenomenon   string // 2-letter code, e.g. TO
	Significance string // 1-letter code, e.g. W
	TrackingNum  string // 4-digit event tracking number, e.g. 0042
	Begin        time.Time
	End          time.Time
}

// Key identifies the (office, phenomenon, significance, tracking number)
// tuple the Store uses to locate prior revisions of the same event.
func (v VTEC) Key() string {
	return v.Office + "." + v.Phenomenon + "." + v.Significance + "." + v.TrackingNum
}

func (v VTEC) IsZero() bool {
	return v.Office == "" && v.Phenomenon == "" && v.Significance == "" && v.TrackingNum == ""
}

// LatLon is a single polygon vertex, in signed decimal degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// TornadoDamageThreat is the enhanced wording carried by a tornado warning's
// damage-threat tag.
type TornadoDamageThreat string

const (
	DamageThreatNone         TornadoDamageThreat = ""
	DamageThreatConsiderable TornadoDamageThreat = "CONSIDERABLE"
	DamageThreatCatastrophic TornadoDamageThreat = "CATASTROPHIC"
)

// Threat holds the structured hazard fields extracted from a product's
// free-form WHAT/description prose.
type Threat struct {
	TornadoDetection    string // "RADAR_INDICATED", "OBSERVED", "CONFIRMED"
	TornadoDamageThreat *TornadoDamageThreat

	SustainedWindMinMPH *int
	SustainedWindMaxMPH *int
	MaxWindGustMPH       *int

	MaxHailSizeInches *float64

	SnowAmountMinInches *float64
	SnowAmountMaxInches *float64

	IceAmountMinInches *float64
	IceAmountMaxInches *float64

	FlashFloodDamageTag string // e.g. "CONSIDERABLE", "CATASTROPHIC", "" if absent

	StormMotionDirection string // cardinal, e.g. "NE"
	StormMotionSpeedMPH  *int
}

// Alert is the central entity of the pipeline: one decoded, normalized
// weather product.
type Alert struct {
	ProductID string
	Source    Source

	VTEC        VTEC
	HasVTEC     bool
	Phenomenon  string
	Significance string
	EventName   string
	Priority    int

	Headline    string
	Description string
	Instruction string

	IssuedTime      time.Time
	EffectiveTime   time.Time
	ExpirationTime  time.Time

	AffectedAreas     []string // UGC codes, order preserved
	DisplayLocations  string   // human names, "; "-joined, deduplicated

	Polygon []LatLon

	IssuingOffices []string

	Threat Threat

	Status Status

	ParsedAt    time.Time
	LastUpdated time.Time
	UpdateCount int
}

// Clone returns a deep-enough copy of the Alert suitable for handing to
// readers outside the Store's writer lock: slices and pointer fields are
// copied so the caller can never observe a future in-place mutation.
func (a Alert) Clone() Alert {
	out := a
	if a.AffectedAreas != nil {
		out.AffectedAreas = append([]string(nil), a.AffectedAreas...)
	}
	if a.Polygon != nil {
		out.Polygon = append([]LatLon(nil), a.Polygon...)
	}
	if a.IssuingOffices != nil {
		out.IssuingOffices = append([]string(nil), a.IssuingOffices...)
	}
	out.Threat = a.Threat.clone()
	return out
}

func (t Threat) clone() Threat {
	out := t
	if t.TornadoDamageThreat != nil {
		v := *t.TornadoDamageThreat
		out.TornadoDamageThreat = &v
	}
	out.SustainedWindMinMPH = cloneIntPtr(t.SustainedWindMinMPH)
	out.SustainedWindMaxMPH = cloneIntPtr(t.SustainedWindMaxMPH)
	out.MaxWindGustMPH = cloneIntPtr(t.MaxWindGustMPH)
	out.MaxHailSizeInches = cloneFloatPtr(t.MaxHailSizeInches)
	out.SnowAmountMinInches = cloneFloatPtr(t.SnowAmountMinInches)
	out.SnowAmountMaxInches = cloneFloatPtr(t.SnowAmountMaxInches)
	out.IceAmountMinInches = cloneFloatPtr(t.IceAmountMinInches)
	out.IceAmountMaxInches = cloneFloatPtr(t.IceAmountMaxInches)
	out.StormMotionSpeedMPH = cloneIntPtr(t.StormMotionSpeedMPH)
	return out
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloatPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
