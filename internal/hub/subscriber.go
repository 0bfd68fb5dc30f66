package hub

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/noaa-wx/alertpipe/internal/metrics"
)

// Subscriber is one connected client of the Broadcast Hub.
type Subscriber struct {
	id   string
	conn *websocket.Conn
	hub  *Hub

	send chan []byte // bounded outbound queue; back-pressure lives here

	filter atomic.Value // Filter
	lastRead atomic.Value // time.Time, updated by ReadPump on any inbound traffic

	done      chan struct{}
	closeOnce sync.Once
}

// ID is the subscriber's assigned connection id.
func (s *Subscriber) ID() string { return s.id }

// enqueue marshals nothing itself; it just attempts the non-blocking send
// that is the Hub's back-pressure primitive (spec.md §4.5): on a full
// queue, the caller disconnects the subscriber rather than block the
// pipeline for one slow consumer.
func (s *Subscriber) enqueue(frameType string, payload []byte) bool {
	select {
	case s.send <- payload:
		metrics.FramesSentTotal.WithLabelValues(frameType).Inc()
		return true
	default:
		return false
	}
}

func (s *Subscriber) sendFrame(frameType string, data interface{}) {
	payload, err := json.Marshal(Frame{Type: frameType, Data: data, Timestamp: time.Now()})
	if err != nil {
		log.Error().Err(err).Msg("hub: marshal subscriber frame")
		return
	}
	if !s.enqueue(frameType, payload) {
		s.hub.unregister(s, "slow_consumer")
	}
}

func (s *Subscriber) sendError(reason string) {
	s.sendFrame(FrameError, map[string]string{"reason": reason})
}

// WritePump drains the outbound queue onto the websocket connection until
// the queue is closed (by Hub.unregister), then performs a close handshake.
// Grounded on apimgr-weather's WebSocketClient.WritePump, minus its fixed
// interval ping ticker — here the ping is driven by inbound silence, see
// heartbeatLoop.
func (s *Subscriber) WritePump() {
	defer s.conn.Close()
	for payload := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// ReadPump reads inbound control frames until the connection errors or
// times out, then unregisters the subscriber. Grounded on apimgr-weather's
// WebSocketClient.ReadPump, extended with the JSON control-frame dispatch
// spec.md §4.5 requires (ping/subscribe/chaser_position_update).
func (s *Subscriber) ReadPump() {
	defer func() {
		s.hub.unregister(s, "client_closed")
		s.conn.Close()
	}()

	deadline := heartbeatSilence + heartbeatGrace
	_ = s.conn.SetReadDeadline(time.Now().Add(deadline))
	s.conn.SetPongHandler(func(string) error {
		s.lastRead.Store(time.Now())
		return s.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	go s.heartbeatLoop()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.lastRead.Store(time.Now())
		if err := s.conn.SetReadDeadline(time.Now().Add(deadline)); err != nil {
			return
		}
		s.handleInbound(raw)
	}
}

// heartbeatLoop sends a protocol-level websocket ping once inbound traffic
// has been silent for heartbeatSilence; ReadPump's read deadline covers the
// further heartbeatGrace before the connection is abandoned (spec.md §4.5
// "Heartbeat").
func (s *Subscriber) heartbeatLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	var lastPingAt time.Time
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			lastRead, _ := s.lastRead.Load().(time.Time)
			if time.Since(lastRead) < heartbeatSilence {
				continue
			}
			if !lastPingAt.Before(lastRead) {
				continue // already pinged since the last traffic we saw
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			lastPingAt = time.Now()
		}
	}
}

type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (s *Subscriber) handleInbound(raw []byte) {
	var msg inboundFrame
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.sendError("malformed_message")
		return
	}

	switch msg.Type {
	case "ping":
		s.sendFrame(FramePong, nil)
	case "subscribe":
		s.handleSubscribe(msg.Data)
	case "chaser_position_update":
		// Passes through to a side channel per spec.md §4.5; no consumer
		// of that channel exists in this system, so it is a no-op here.
	default:
		s.sendError("unsupported_message_type")
	}
}

func (s *Subscriber) handleSubscribe(data json.RawMessage) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.sendError("unsupported")
		return
	}
	for key := range raw {
		if key != "states" && key != "phenomena" {
			s.sendError("unsupported")
			return
		}
	}

	var req struct {
		States    []string `json:"states"`
		Phenomena []string `json:"phenomena"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendError("unsupported")
		return
	}

	s.filter.Store(Filter{
		States:    normalizeUpper(req.States),
		Phenomena: normalizeUpper(req.Phenomena),
	})
}
