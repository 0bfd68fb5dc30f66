package push

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFullJitterBounded(t *testing.T) {
	d := 10 * time.Second
	for i := 0; i < 50; i++ {
		got := fullJitter(d)
		assert.GreaterOrEqual(t, got, time.Duration(0))
		assert.Less(t, got, d)
	}
}

func TestFullJitterZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), fullJitter(0))
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, isAuthError(errors.New("stream error: not-authorized")))
	assert.True(t, isAuthError(errors.New("SASL authentication failure")))
	assert.False(t, isAuthError(errors.New("connection reset by peer")))
	assert.False(t, isAuthError(nil))
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, 2*time.Second, c.InitialBackoff)
	assert.Equal(t, 60*time.Second, c.MaxBackoff)
	assert.Equal(t, "alertpipe", c.Resource)
}
