package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractThreatSnowNotHailCrossTerm(t *testing.T) {
	// spec.md §8 S9: "up to 1 inch of quick snow" must yield snow, not hail,
	// even though a naive regex over "1 inch" alone could match either.
	th := extractThreat("UP TO 1 INCH OF QUICK SNOW EXPECTED THIS EVENING")
	require.NotNil(t, th.SnowAmountMaxInches)
	assert.Equal(t, 1.0, *th.SnowAmountMaxInches)
	assert.Nil(t, th.MaxHailSizeInches)
}

func TestExtractThreatHailNamedSize(t *testing.T) {
	th := extractThreat("HAIL UP TO GOLF BALL SIZE POSSIBLE")
	require.NotNil(t, th.MaxHailSizeInches)
	assert.Equal(t, 1.75, *th.MaxHailSizeInches)
}

func TestExtractThreatHailDecimal(t *testing.T) {
	th := extractThreat("HAIL...1.00 IN")
	require.NotNil(t, th.MaxHailSizeInches)
	assert.Equal(t, 1.0, *th.MaxHailSizeInches)
}

func TestExtractThreatWindGustAndSustainedAreIndependent(t *testing.T) {
	th := extractThreat("WIND GUSTS UP TO 70 MPH EXPECTED\nWINDS 20 TO 30 MPH WITH HIGHER GUSTS")
	require.NotNil(t, th.MaxWindGustMPH)
	assert.Equal(t, 70, *th.MaxWindGustMPH)
	require.NotNil(t, th.SustainedWindMinMPH)
	require.NotNil(t, th.SustainedWindMaxMPH)
	assert.Equal(t, 20, *th.SustainedWindMinMPH)
	assert.Equal(t, 30, *th.SustainedWindMaxMPH)
}

func TestExtractThreatSnowRange(t *testing.T) {
	th := extractThreat("SNOW ACCUMULATIONS OF 3 TO 5 INCHES OF SNOW EXPECTED")
	require.NotNil(t, th.SnowAmountMinInches)
	require.NotNil(t, th.SnowAmountMaxInches)
	assert.Equal(t, 3.0, *th.SnowAmountMinInches)
	assert.Equal(t, 5.0, *th.SnowAmountMaxInches)
}

func TestExtractThreatIce(t *testing.T) {
	th := extractThreat("ICE ACCUMULATION UP TO 0.25 INCH OF ICE POSSIBLE")
	require.NotNil(t, th.IceAmountMaxInches)
}

func TestExtractThreatTornadoDetectionAndDamageThreat(t *testing.T) {
	th := extractThreat("A SEVERE THUNDERSTORM WITH A TORNADO RADAR INDICATED WAS LOCATED\nTORNADO DAMAGE THREAT...CONSIDERABLE")
	assert.Equal(t, "RADAR_INDICATED", th.TornadoDetection)
	require.NotNil(t, th.TornadoDamageThreat)
	assert.EqualValues(t, "CONSIDERABLE", *th.TornadoDamageThreat)
}

func TestExtractThreatStormMotion(t *testing.T) {
	th := extractThreat("STORM MOTION WAS MOVING NE AT 35 MPH")
	assert.Equal(t, "NE", th.StormMotionDirection)
	require.NotNil(t, th.StormMotionSpeedMPH)
	assert.Equal(t, 35, *th.StormMotionSpeedMPH)
}
