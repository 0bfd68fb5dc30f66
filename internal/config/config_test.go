package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"NWWS_ENABLED", "NWWS_HOST", "NWWS_PORT", "NWWS_USERNAME", "NWWS_PASSWORD", "NWWS_ROOM",
		"NWS_API_BASE", "POLL_INTERVAL_SECONDS", "FILTER_STATES", "EXPIRATION_GRACE_SECONDS",
		"PERSIST_PATH", "HOST", "PORT",
	} {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load(nil)
	require.NoError(t, err)

	assert.False(t, c.NWWSEnabled)
	assert.Equal(t, "https://api.weather.gov", c.NWSAPIBase)
	assert.Equal(t, 300*time.Second, c.PollInterval)
	assert.Equal(t, 60*time.Second, c.ExpirationGrace)
	assert.Nil(t, c.FilterStates)
	assert.Equal(t, "8080", c.Port)
}

func TestLoadRequiresNWWSCredentialsWhenEnabled(t *testing.T) {
	clearEnv(t)
	os.Setenv("NWWS_ENABLED", "true")
	defer clearEnv(t)

	_, err := Load(nil)
	assert.Error(t, err)
}

func TestLoadParsesFilterStates(t *testing.T) {
	clearEnv(t)
	os.Setenv("FILTER_STATES", " oh, tx ,ny")
	defer clearEnv(t)

	c, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"OH", "TX", "NY"}, c.FilterStates)
}

func TestLoadIgnoresInvalidPollInterval(t *testing.T) {
	clearEnv(t)
	os.Setenv("POLL_INTERVAL_SECONDS", "not-a-number")
	defer clearEnv(t)

	c, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 300*time.Second, c.PollInterval)
}
