package refdata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom(t *testing.T) {
	csv := "code,name,state,kind\nOHC085,Lake County,OH,C\nOHC093,Lorain County,OH,C\n"
	table, err := loadFrom(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	name, ok := table.Lookup("ohc085")
	assert.True(t, ok)
	assert.Equal(t, "Lake County", name)

	state, ok := table.State("OHC085")
	assert.True(t, ok)
	assert.Equal(t, "OH", state)

	_, ok = table.Lookup("ZZZ999")
	assert.False(t, ok)
}

func TestRender(t *testing.T) {
	csv := "code,name,state,kind\nOHC085,Lake County OH,OH,C\nOHC093,Lorain County OH,OH,C\n"
	table, err := loadFrom(strings.NewReader(csv))
	require.NoError(t, err)

	got := table.Render([]string{"OHC085", "OHC093"})
	assert.Equal(t, "Lake County OH; Lorain County OH", got)
}

func TestRenderDeduplicatesAndFallsBackToCode(t *testing.T) {
	table, err := loadFrom(strings.NewReader("code,name,state,kind\nOHC085,Lake County,OH,C\n"))
	require.NoError(t, err)

	got := table.Render([]string{"OHC085", "OHC085", "ZZZ999"})
	assert.Equal(t, "Lake County; ZZZ999", got)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path.csv")
	require.Error(t, err)
}

func TestNilTableIsSafe(t *testing.T) {
	var table *Table
	assert.Equal(t, 0, table.Len())
	_, ok := table.Lookup("OHC085")
	assert.False(t, ok)
}
