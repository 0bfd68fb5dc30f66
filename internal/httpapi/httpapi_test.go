package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noaa-wx/alertpipe/internal/hub"
	"github.com/noaa-wx/alertpipe/internal/model"
	"github.com/noaa-wx/alertpipe/internal/parser"
	"github.com/noaa-wx/alertpipe/internal/store"
)

func testServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st := store.New(time.Minute)
	h := hub.New(st.WithSnapshot)
	ring := parser.NewFailureRing(8)
	health := SourceHealth{
		PushEnabled:   true,
		PushConnected: func() bool { return true },
		PushReceived:  func() int64 { return 3 },
		PullLastPoll:  func() time.Time { return time.Unix(1700000000, 0).UTC() },
		PullCount:     func() int64 { return 7 },
	}
	return NewServer(st, h, ring, health, nil), st
}

func testAlert(productID, phenomenon, significance string, areas ...string) model.Alert {
	return model.Alert{
		ProductID:    productID,
		Phenomenon:   phenomenon,
		Significance: significance,
		AffectedAreas: areas,
	}
}

func TestHandleListAlertsFiltersByQueryParams(t *testing.T) {
	s, st := testServer(t)
	st.Upsert(testAlert("p1", "TO", "W", "OHC085"))
	st.Upsert(testAlert("p2", "SV", "W", "TXC001"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/alerts?phenomenon=TO", nil)
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Alerts []model.Alert `json:"alerts"`
		Count  int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "p1", body.Alerts[0].ProductID)
}

func TestHandleGetAlertNotFound(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/alerts/missing", nil)
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetAlertFound(t *testing.T) {
	s, st := testServer(t)
	st.Upsert(testAlert("p1", "TO", "W", "OHC085"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/alerts/p1", nil)
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var a model.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "p1", a.ProductID)
}

func TestHandleDeleteAlertRemovesAndReturnsOK(t *testing.T) {
	s, st := testServer(t)
	st.Upsert(testAlert("p1", "TO", "W", "OHC085"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/alerts/p1", nil)
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	_, ok := st.Get("p1")
	assert.False(t, ok)
}

func TestHandleDeleteAlertMissingReturnsNotFound(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/alerts/missing", nil)
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStatsReportsCounts(t *testing.T) {
	s, st := testServer(t)
	st.Upsert(testAlert("p1", "TO", "W", "OHC085"))
	st.Upsert(testAlert("p2", "TO", "A", "TXC001"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Total        int            `json:"total"`
		ByPhenomenon map[string]int `json:"by_phenomenon"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 2, body.ByPhenomenon["TO"])
}

func TestHandleHealthReportsSourceStatus(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	push, ok := body["push"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, push["connected"])
}

func TestHandleRecentFailuresReturnsEmptyByDefault(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/diagnostics/recent-failures", nil)
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Failures []recentFailure `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Failures)
}

func TestHandleMetricsServesPrometheusFormat(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alertpipe_")
}
