// Package httpapi is the REST + WebSocket surface exposed to local
// consumers (spec.md §6): alert listing/lookup/removal, aggregate stats,
// health, Prometheus metrics, a parse-failure diagnostic query, and the
// `/ws` upgrade into the Broadcast Hub. Grounded on apimgr-weather's
// gin.Engine wiring (src/main.go) and handler-struct-with-injected-
// dependency style (src/server/handler/severe_weather.go), pared down to
// the middleware this system actually needs.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/noaa-wx/alertpipe/internal/hub"
	"github.com/noaa-wx/alertpipe/internal/parser"
	"github.com/noaa-wx/alertpipe/internal/store"
)

// SourceHealth reports the liveness of the two ingestion sources for
// GET /health, without this package needing to import push/pull directly.
type SourceHealth struct {
	PushEnabled   bool
	PushConnected func() bool
	PushReceived  func() int64
	PullLastPoll  func() time.Time
	PullCount     func() int64
}

// Server wires the Alert Store, Broadcast Hub, and parse-failure ring into
// a gin.Engine.
type Server struct {
	store   *store.Store
	hub     *hub.Hub
	ring    *parser.FailureRing
	health  SourceHealth
	engine  *gin.Engine
	upgrader websocket.Upgrader
}

// NewServer builds the router. corsOrigins empty means allow any origin
// (spec.md's out-of-scope dashboard UI still needs cross-origin access in
// dev, per SPEC_FULL.md's domain stack table).
func NewServer(st *store.Store, h *hub.Hub, ring *parser.FailureRing, health SourceHealth, corsOrigins []string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}
	if len(corsOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = corsOrigins
	}
	engine.Use(cors.New(corsCfg))

	s := &Server{
		store:  st,
		hub:    h,
		ring:   ring,
		health: health,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

// Engine exposes the underlying router, e.g. for http.Server wiring in
// cmd/alertpipe.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/ws", s.handleWebSocket)

	api := s.engine.Group("/api")
	api.GET("/alerts", s.handleListAlerts)
	api.GET("/alerts/:product_id", s.handleGetAlert)
	api.DELETE("/alerts/:product_id", s.handleDeleteAlert)
	api.GET("/stats", s.handleStats)
	api.GET("/diagnostics/recent-failures", s.handleRecentFailures)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	st := s.store.Stats()

	push := gin.H{"enabled": s.health.PushEnabled}
	if s.health.PushEnabled && s.health.PushConnected != nil {
		push["connected"] = s.health.PushConnected()
		push["received_count"] = s.health.PushReceived()
	}

	pull := gin.H{}
	if s.health.PullLastPoll != nil {
		lastPoll := s.health.PullLastPoll()
		pull["poll_count"] = s.health.PullCount()
		if !lastPoll.IsZero() {
			pull["last_polled_at"] = lastPoll.Format(time.RFC3339)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"active_alerts": st.Total,
		"push":         push,
		"pull":         pull,
		"subscribers":  s.hub.Count(),
	})
}
