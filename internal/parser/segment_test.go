package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentBodiesSplitsOnDollarTerminator(t *testing.T) {
	raw := "WUUS53 KCLE 201815\nSVRCLE\n\nOHC085-201900-\nfirst segment text\n\n$$\n\nOHC093-201900-\nsecond segment text\n\n$$\n"
	segs := segmentBodies(raw)
	require.Len(t, segs, 2)
	assert.Contains(t, segs[0], "OHC085")
	assert.Contains(t, segs[1], "OHC093")
	for _, s := range segs {
		assert.NotContains(t, s, "$$")
	}
}

func TestSegmentBodiesWholeBodyFallback(t *testing.T) {
	raw := "WUUS53 KCLE 201815\nSVRCLE\n\nOHC085-201900-\nno terminator here\n"
	segs := segmentBodies(raw)
	require.Len(t, segs, 1)
	assert.Contains(t, segs[0], "no terminator here")
}
