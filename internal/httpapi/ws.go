package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// handleWebSocket serves GET /ws: upgrades the connection, registers a new
// Subscriber with the Broadcast Hub (which sends connection_ack then bulk
// under the snapshot lock), and starts its read/write pumps. Per spec.md
// §4.5, everything past this point is owned by the hub.Subscriber.
func (s *Server) handleWebSocket(c *gin.Context) {
	// Upgrade writes its own error response to the client on failure; nothing
	// further must be written to c.Writer here.
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("httpapi: websocket upgrade failed")
		return
	}

	sub := s.hub.Accept(conn)
	go sub.WritePump()
	go sub.ReadPump()
}
