// Package hub is the Broadcast Hub (spec.md §4.5): it accepts persistent
// bidirectional subscriber connections, hands each one a connection_ack
// then a bulk snapshot of the active set, and thereafter streams frames as
// the Alert Store emits events. Grounded on apimgr-weather's
// WebSocketHub/WebSocketClient split (register/unregister bookkeeping,
// per-client bounded Send channel, disconnect-on-full-buffer as the
// back-pressure primitive) generalized from a single global broadcast
// channel to per-subscriber filtering and a two-stage heartbeat.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/noaa-wx/alertpipe/internal/metrics"
	"github.com/noaa-wx/alertpipe/internal/model"
)

// Frame is the envelope every message over the wire carries, inbound and
// outbound alike (spec.md §4.5).
type Frame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Frame type taxonomy (spec.md §4.5). "ping" is deliberately absent: a
// client-originated application-level ping is answered with a Pong frame,
// while the Hub's own silence-triggered keepalive is a protocol-level
// websocket ping (see Subscriber.heartbeatLoop), not a JSON frame.
const (
	FrameConnectionAck = "connection_ack"
	FrameBulk          = "bulk"
	FrameNew           = "new"
	FrameUpdate        = "update"
	FrameRemove        = "remove"
	FrameSystemStatus  = "system_status"
	FramePong          = "pong"
	FrameError         = "error"
)

const (
	defaultQueueSize  = 256
	heartbeatSilence  = 45 * time.Second
	heartbeatGrace    = 30 * time.Second
	writeDeadline     = 10 * time.Second
	shutdownDrainWait = 5 * time.Second
)

// SnapshotFunc hands fn a point-in-time copy of the active set while the
// caller's writer lock is still held, matching store.Store.WithSnapshot.
// Accepting the function shape (rather than a *store.Store) keeps this
// package decoupled from the store's concrete type.
type SnapshotFunc func(fn func(snapshot []model.Alert))

// Hub fans out Alert Store events to subscribers.
type Hub struct {
	mu        sync.RWMutex
	subs      map[string]*Subscriber
	snapshot  SnapshotFunc
	queueSize int
}

// New constructs a Hub. snapshot is invoked once per new subscriber, under
// the Store's writer lock, to deliver a consistent connection_ack+bulk pair
// before any subsequent event can reach the subscriber out of order.
func New(snapshot SnapshotFunc) *Hub {
	return &Hub{
		subs:      make(map[string]*Subscriber),
		snapshot:  snapshot,
		queueSize: defaultQueueSize,
	}
}

// Count returns the number of currently connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Accept registers a new subscriber over an already-upgraded websocket
// connection, sends connection_ack and a bulk snapshot, and returns the
// Subscriber so the caller can run its pumps.
func (h *Hub) Accept(conn *websocket.Conn) *Subscriber {
	sub := &Subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.queueSize),
		hub:  h,
		done: make(chan struct{}),
	}
	sub.filter.Store(Filter{})
	sub.lastRead.Store(time.Now())

	ack, _ := json.Marshal(Frame{
		Type:      FrameConnectionAck,
		Data:      map[string]string{"subscriber_id": sub.id},
		Timestamp: time.Now(),
	})

	h.snapshot(func(snapshot []model.Alert) {
		h.mu.Lock()
		h.subs[sub.id] = sub
		h.mu.Unlock()
		metrics.SubscribersConnected.Set(float64(h.Count()))

		sub.send <- ack
		bulk, err := json.Marshal(Frame{Type: FrameBulk, Data: snapshot, Timestamp: time.Now()})
		if err == nil {
			sub.send <- bulk
		}
	})

	return sub
}

func (h *Hub) unregister(sub *Subscriber, reason string) {
	h.mu.Lock()
	if _, ok := h.subs[sub.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, sub.id)
	h.mu.Unlock()

	metrics.SubscribersConnected.Set(float64(h.Count()))
	if reason == "slow_consumer" {
		metrics.SlowConsumerDisconnectsTotal.Inc()
	}
	log.Debug().Str("subscriber_id", sub.id).Str("reason", reason).Msg("hub: subscriber disconnected")

	sub.closeOnce.Do(func() {
		close(sub.done)
		close(sub.send)
	})
}

// BroadcastAlert sends a new/update frame to every subscriber whose filter
// matches the alert.
func (h *Hub) BroadcastAlert(frameType string, a model.Alert) {
	payload, err := json.Marshal(Frame{Type: frameType, Data: a, Timestamp: time.Now()})
	if err != nil {
		log.Error().Err(err).Msg("hub: marshal alert frame")
		return
	}
	h.dispatch(frameType, payload, func(f Filter) bool { return f.matches(a) })
}

// BroadcastRemove sends a remove frame. last is the alert's final state
// before removal, used only for filter matching.
func (h *Hub) BroadcastRemove(productID, reason string, last model.Alert) {
	data := map[string]string{"product_id": productID, "reason": reason}
	payload, err := json.Marshal(Frame{Type: FrameRemove, Data: data, Timestamp: time.Now()})
	if err != nil {
		log.Error().Err(err).Msg("hub: marshal remove frame")
		return
	}
	h.dispatch(FrameRemove, payload, func(f Filter) bool { return f.matches(last) })
}

// BroadcastSystemStatus sends an unfiltered system_status frame to every
// subscriber.
func (h *Hub) BroadcastSystemStatus(status string) {
	payload, err := json.Marshal(Frame{Type: FrameSystemStatus, Data: map[string]string{"status": status}, Timestamp: time.Now()})
	if err != nil {
		return
	}
	h.dispatch(FrameSystemStatus, payload, func(Filter) bool { return true })
}

func (h *Hub) dispatch(frameType string, payload []byte, match func(Filter) bool) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	var slow []*Subscriber
	for _, sub := range subs {
		f, _ := sub.filter.Load().(Filter)
		if !match(f) {
			continue
		}
		if !sub.enqueue(frameType, payload) {
			slow = append(slow, sub)
		}
	}
	for _, sub := range slow {
		h.unregister(sub, "slow_consumer")
	}
}

// Shutdown cascades a system_status:shutting_down frame to every subscriber,
// then waits up to a 5-second drain deadline per subscriber before forcing
// the remainder closed (spec.md §5 "Cancellation").
func (h *Hub) Shutdown(ctx context.Context) {
	h.BroadcastSystemStatus("shutting_down")

	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *Subscriber) {
			defer wg.Done()
			drainCtx, cancel := context.WithTimeout(ctx, shutdownDrainWait)
			defer cancel()
			select {
			case <-sub.done:
			case <-drainCtx.Done():
			}
			h.unregister(sub, "shutdown")
		}(sub)
	}
	wg.Wait()
}
