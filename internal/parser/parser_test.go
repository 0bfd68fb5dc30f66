package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/noaa-wx/alertpipe/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const severeThunderstormWarning = `WUUS53 KCLE 201815
SVRCLE

OHC085-201900-
/O.NEW.KCLE.SV.W.0042.251220T1815Z-251220T1900Z/
CUYAHOGA OH-
1815 PM EST SAT DEC 20 2025

...SEVERE THUNDERSTORM WARNING...

THE NATIONAL WEATHER SERVICE IN CLEVELAND HAS ISSUED A

* SEVERE THUNDERSTORM WARNING FOR...
  SOUTHWESTERN CUYAHOGA COUNTY

* WHAT...WIND GUSTS UP TO 70 MPH AND QUARTER SIZE HAIL...1.00 IN.

LAT...LON 4142 8180 4140 8175 4135 8178 4137 8183

$$
`

func TestParseS1SevereThunderstormWarning(t *testing.T) {
	receivedAt := time.Date(2025, time.December, 20, 18, 16, 0, 0, time.UTC)
	alerts, err := Parse(severeThunderstormWarning, receivedAt, model.SourcePush, nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, "KCLE.SV.W.0042.20251220T1815", a.ProductID)
	assert.Equal(t, "Severe Thunderstorm Warning", a.EventName)
	assert.Equal(t, []string{"OHC085"}, a.AffectedAreas)
	require.NotNil(t, a.Threat.MaxWindGustMPH)
	assert.Equal(t, 70, *a.Threat.MaxWindGustMPH)
	require.NotNil(t, a.Threat.MaxHailSizeInches)
	assert.Equal(t, 1.0, *a.Threat.MaxHailSizeInches)
	require.Len(t, a.Polygon, 5)
	assert.Equal(t, a.Polygon[0], a.Polygon[len(a.Polygon)-1])
	assert.Equal(t, model.ActionNEW, a.VTEC.Action)
	assert.True(t, strings.Contains(a.Headline, "SEVERE THUNDERSTORM WARNING"))
}

func TestParseRejectsEmptyBody(t *testing.T) {
	_, err := Parse("", time.Now(), model.SourcePush, nil)
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestParseRejectsMalformedHeader(t *testing.T) {
	_, err := Parse("not a header at all\nmore text\n", time.Now(), model.SourcePush, nil)
	assert.ErrorIs(t, err, ErrMalformedHeader)
}
