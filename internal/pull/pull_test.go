package pull

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noaa-wx/alertpipe/internal/model"
)

const sampleFeature = `{
  "id": "urn:oid:test.1",
  "geometry": {"type": "Polygon", "coordinates": [[[-81.5,41.5],[-81.4,41.5],[-81.4,41.6],[-81.5,41.6],[-81.5,41.5]]]},
  "properties": {
    "event": "Severe Thunderstorm Warning",
    "headline": "Severe Thunderstorm Warning issued",
    "description": "Winds 60 to 70 mph and quarter size hail.",
    "instruction": "Move to an interior room.",
    "sent": "2025-12-20T18:15:00-05:00",
    "effective": "2025-12-20T18:15:00-05:00",
    "expires": "2025-12-20T19:00:00-05:00",
    "senderName": "NWS Cleveland OH",
    "parameters": {
      "AWIPSidentifier": ["SVRCLE"],
      "VTEC": ["/O.NEW.KCLE.SV.W.0042.251220T2315Z-251221T0000Z/"]
    },
    "geocode": {"UGC": ["OHC085", "OHC093"], "SAME": ["039085", "039093"]}
  }
}`

func TestFeatureToFields(t *testing.T) {
	var f activeAlertFeature
	require.NoError(t, json.Unmarshal([]byte(sampleFeature), &f))

	fields, err := f.toFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"OHC085", "OHC093"}, fields.UGCCodes)
	assert.Equal(t, "CLE", fields.Office)
	assert.Equal(t, "SVRCLE", fields.AWIPSID)
	assert.Contains(t, fields.VTECLine, "KCLE.SV.W.0042")
	require.Len(t, fields.Polygon, 5)
	assert.Equal(t, 41.5, fields.Polygon[0].Lat)
	assert.Equal(t, -81.5, fields.Polygon[0].Lon)
}

func TestFeatureToFieldsMissingUGCErrors(t *testing.T) {
	f := activeAlertFeature{ID: "no-ugc"}
	_, err := f.toFields()
	assert.Error(t, err)
}

func TestDecodePolygonRingRejectsShortRing(t *testing.T) {
	raw := json.RawMessage(`[[[-81.5,41.5],[-81.4,41.6]]]`)
	assert.Nil(t, decodePolygonRing(raw))
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, 5*time.Minute, c.PollInterval)
	assert.Equal(t, 30*time.Second, c.HTTPTimeout)
	assert.NotEmpty(t, c.UserAgent)
}

func TestConfigDefaultsEnforcesPollFloor(t *testing.T) {
	c := Config{PollInterval: 10 * time.Millisecond}.withDefaults()
	assert.Equal(t, minPollInterval, c.PollInterval)
}

func TestFetchOnceSetsUserAgentAndDecodesEmptyBatch(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, UserAgent: "alertpipe-test/1.0"}, nil, func([]model.Alert, time.Time) {})
	features, retryable, err := s.fetchOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, retryable)
	assert.Empty(t, features)
	assert.Equal(t, "alertpipe-test/1.0", gotUA)
	assert.Equal(t, "application/geo+json", gotAccept)
}

func TestFetchOnceFatalOn4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL}, nil, func([]model.Alert, time.Time) {})
	_, retryable, err := s.fetchOnce(context.Background())
	assert.Error(t, err)
	assert.False(t, retryable)
}

func TestFetchOnceRetryableOn5xxAnd429(t *testing.T) {
	for _, status := range []int{http.StatusServiceUnavailable, http.StatusTooManyRequests} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		s := New(Config{BaseURL: srv.URL}, nil, func([]model.Alert, time.Time) {})
		_, retryable, err := s.fetchOnce(context.Background())
		assert.Error(t, err)
		assert.True(t, retryable)
		srv.Close()
	}
}

func TestFetchWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL}, nil, func([]model.Alert, time.Time) {})
	features, err := s.fetchWithRetry(context.Background())
	require.NoError(t, err)
	assert.Empty(t, features)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
