package parser

import (
	"testing"

	"github.com/noaa-wx/alertpipe/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindVTECDecodesLine(t *testing.T) {
	lines := []string{
		"OHC085-201900-",
		"/O.NEW.KCLE.SV.W.0042.251220T1815Z-251220T1900Z/",
		"SEVERE THUNDERSTORM WARNING",
	}
	v, ok, err := findVTEC(lines)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "O", v.ProductClass)
	assert.Equal(t, model.ActionNEW, v.Action)
	assert.Equal(t, "KCLE", v.Office)
	assert.Equal(t, "SV", v.Phenomenon)
	assert.Equal(t, "W", v.Significance)
	assert.Equal(t, "0042", v.TrackingNum)
	assert.Equal(t, 2025, v.Begin.Year())
	assert.Equal(t, 18, v.Begin.Hour())
	assert.Equal(t, 19, v.End.Hour())
}

func TestFindVTECAbsentIsLegal(t *testing.T) {
	lines := []string{"OHC085-201900-", "SPECIAL WEATHER STATEMENT"}
	v, ok, err := findVTEC(lines)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, v.IsZero())
}

func TestFindVTECMalformedAttempt(t *testing.T) {
	lines := []string{"/O.BOGUS.KCLE.SV.W.0042.251220T1815Z-251220T1900Z/"}
	_, ok, err := findVTEC(lines)
	assert.False(t, ok)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidVTEC)
}

func TestVTECKey(t *testing.T) {
	v := model.VTEC{Office: "KCLE", Phenomenon: "SV", Significance: "W", TrackingNum: "0042"}
	assert.Equal(t, "KCLE.SV.W.0042", v.Key())
}
