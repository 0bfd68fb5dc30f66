package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/noaa-wx/alertpipe/internal/model"
	"github.com/noaa-wx/alertpipe/internal/store"
)

// handleListAlerts serves GET /api/alerts, optionally filtered by the
// phenomenon, state, and significance query params (spec.md §6). A state
// filter matches against the two-letter prefix of each affected UGC code,
// the same rule the Broadcast Hub applies to its subscribe frames.
func (s *Server) handleListAlerts(c *gin.Context) {
	phenomenon := strings.ToUpper(c.Query("phenomenon"))
	significance := strings.ToUpper(c.Query("significance"))
	state := strings.ToUpper(c.Query("state"))

	snapshot := s.store.Snapshot()
	out := make([]model.Alert, 0, len(snapshot))
	for _, a := range snapshot {
		if phenomenon != "" && a.Phenomenon != phenomenon {
			continue
		}
		if significance != "" && a.Significance != significance {
			continue
		}
		if state != "" && !hasState(a, state) {
			continue
		}
		out = append(out, a)
	}
	c.JSON(http.StatusOK, gin.H{"alerts": out, "count": len(out)})
}

func hasState(a model.Alert, state string) bool {
	for _, code := range a.AffectedAreas {
		if len(code) >= 2 && strings.EqualFold(code[:2], state) {
			return true
		}
	}
	return false
}

// handleGetAlert serves GET /api/alerts/{product_id}.
func (s *Server) handleGetAlert(c *gin.Context) {
	id := c.Param("product_id")
	a, ok := s.store.Get(id)
	if !ok {
		notFound(c, "no active alert with that product_id")
		return
	}
	c.JSON(http.StatusOK, a)
}

// handleDeleteAlert serves DELETE /api/alerts/{product_id}, the operator
// manual-removal escape hatch (spec.md §6, SPEC_FULL.md supplemented
// feature). Every manual removal is logged at info level with the caller's
// address, since unlike expiry/cancellation it isn't driven by upstream data.
// spec.md §6's REST table mandates 200 on success, 404 if absent.
func (s *Server) handleDeleteAlert(c *gin.Context) {
	id := c.Param("product_id")
	if !s.store.Remove(id, store.ReasonManual) {
		notFound(c, "no active alert with that product_id")
		return
	}
	log.Info().
		Str("product_id", id).
		Str("remote_addr", c.ClientIP()).
		Msg("alert manually removed via API")
	c.JSON(http.StatusOK, gin.H{"product_id": id, "removed": true})
}

// handleStats serves GET /api/stats.
func (s *Server) handleStats(c *gin.Context) {
	st := s.store.Stats()
	c.JSON(http.StatusOK, gin.H{
		"total":         st.Total,
		"by_source":     st.BySource,
		"by_phenomenon": st.ByPhenomenon,
	})
}

// recentFailure is the JSON view of a parser.FailedProduct: error is
// flattened to its message since the error interface itself doesn't marshal.
type recentFailure struct {
	Raw        string `json:"raw"`
	Reason     string `json:"reason"`
	ReceivedAt string `json:"received_at"`
}

// handleRecentFailures serves GET /api/diagnostics/recent-failures, backed
// by the Parser's bounded FailureRing.
func (s *Server) handleRecentFailures(c *gin.Context) {
	out := []recentFailure{}
	if s.ring != nil {
		for _, f := range s.ring.Recent() {
			out = append(out, recentFailure{
				Raw:        f.Raw,
				Reason:     f.Err.Error(),
				ReceivedAt: f.ReceivedAt.Format(time.RFC3339),
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"failures": out})
}
