package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noaa-wx/alertpipe/internal/model"
)

func fixedSnapshot(alerts []model.Alert) SnapshotFunc {
	return func(fn func([]model.Alert)) { fn(alerts) }
}

func testAlert(productID, phenomenon string, areas ...string) model.Alert {
	return model.Alert{ProductID: productID, Phenomenon: phenomenon, AffectedAreas: areas}
}

func drainFrame(t *testing.T, ch <-chan []byte) Frame {
	t.Helper()
	select {
	case raw := <-ch:
		var f Frame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func TestAcceptSendsConnectionAckThenBulk(t *testing.T) {
	h := New(fixedSnapshot([]model.Alert{testAlert("p1", "SV", "OHC085")}))
	sub := h.Accept(nil)

	ack := drainFrame(t, sub.send)
	assert.Equal(t, FrameConnectionAck, ack.Type)

	bulk := drainFrame(t, sub.send)
	assert.Equal(t, FrameBulk, bulk.Type)

	assert.Equal(t, 1, h.Count())
}

func TestBroadcastAlertRespectsSubscriberFilter(t *testing.T) {
	h := New(fixedSnapshot(nil))
	sub := h.Accept(nil)
	drainFrame(t, sub.send) // connection_ack
	drainFrame(t, sub.send) // bulk

	sub.filter.Store(Filter{Phenomena: []string{"TO"}})

	h.BroadcastAlert(FrameNew, testAlert("p2", "SV", "OHC085"))
	select {
	case <-sub.send:
		t.Fatal("filtered-out alert must not be enqueued")
	case <-time.After(100 * time.Millisecond):
	}

	h.BroadcastAlert(FrameNew, testAlert("p3", "TO", "OHC085"))
	frame := drainFrame(t, sub.send)
	assert.Equal(t, FrameNew, frame.Type)
}

func TestBroadcastRemoveFiltersOnLastKnownState(t *testing.T) {
	h := New(fixedSnapshot(nil))
	sub := h.Accept(nil)
	drainFrame(t, sub.send)
	drainFrame(t, sub.send)

	sub.filter.Store(Filter{States: []string{"TX"}})

	h.BroadcastRemove("p1", "expired", testAlert("p1", "SV", "OHC085"))
	select {
	case <-sub.send:
		t.Fatal("remove for a non-matching state must not be enqueued")
	case <-time.After(100 * time.Millisecond):
	}

	h.BroadcastRemove("p2", "expired", testAlert("p2", "SV", "TXC001"))
	frame := drainFrame(t, sub.send)
	assert.Equal(t, FrameRemove, frame.Type)
}

func TestSlowConsumerIsDisconnectedOnFullQueue(t *testing.T) {
	h := New(fixedSnapshot(nil))
	h.queueSize = 2
	sub := h.Accept(nil) // channel sized from h.queueSize at construction time
	drainFrame(t, sub.send)
	drainFrame(t, sub.send)

	// Fill the queue, then push one more to force the drop.
	for i := 0; i < h.queueSize; i++ {
		h.BroadcastSystemStatus("filler")
	}
	h.BroadcastSystemStatus("one_too_many")

	require.Eventually(t, func() bool { return h.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestShutdownBroadcastsStatusAndUnregisters(t *testing.T) {
	h := New(fixedSnapshot(nil))
	sub := h.Accept(nil)
	drainFrame(t, sub.send) // connection_ack
	drainFrame(t, sub.send) // bulk

	// No write pump drains this subscriber, so Shutdown's per-subscriber
	// drain wait ends at ctx's deadline and the subscriber is then forced out.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h.Shutdown(ctx)

	assert.Equal(t, 0, h.Count())
	status := drainFrame(t, sub.send)
	assert.Equal(t, FrameSystemStatus, status.Type)
}

func TestFilterMatchesEmptyFilterAcceptsEverything(t *testing.T) {
	var f Filter
	assert.True(t, f.matches(testAlert("p1", "TO", "OHC085")))
}

func TestFilterMatchesPhenomenonAndState(t *testing.T) {
	f := Filter{States: []string{"oh"}, Phenomena: []string{"to"}}
	assert.True(t, f.matches(testAlert("p1", "TO", "OHC085")))
	assert.False(t, f.matches(testAlert("p2", "SV", "OHC085")))
	assert.False(t, f.matches(testAlert("p3", "TO", "TXC001")))
}

func TestHandleSubscribeRejectsUnknownFilterKey(t *testing.T) {
	h := New(fixedSnapshot(nil))
	sub := h.Accept(nil)
	drainFrame(t, sub.send)
	drainFrame(t, sub.send)

	sub.handleSubscribe(json.RawMessage(`{"counties":["OHC085"]}`))
	frame := drainFrame(t, sub.send)
	assert.Equal(t, FrameError, frame.Type)
}

func TestHandleSubscribeInstallsFilter(t *testing.T) {
	h := New(fixedSnapshot(nil))
	sub := h.Accept(nil)
	drainFrame(t, sub.send)
	drainFrame(t, sub.send)

	sub.handleSubscribe(json.RawMessage(`{"states":["oh","tx"]}`))
	f, _ := sub.filter.Load().(Filter)
	assert.Equal(t, []string{"OH", "TX"}, f.States)
}

func TestHandleInboundPingRepliesWithPong(t *testing.T) {
	h := New(fixedSnapshot(nil))
	sub := h.Accept(nil)
	drainFrame(t, sub.send)
	drainFrame(t, sub.send)

	sub.handleInbound([]byte(`{"type":"ping"}`))
	frame := drainFrame(t, sub.send)
	assert.Equal(t, FramePong, frame.Type)
}

func TestHandleInboundUnknownTypeSendsUnsupportedError(t *testing.T) {
	h := New(fixedSnapshot(nil))
	sub := h.Accept(nil)
	drainFrame(t, sub.send)
	drainFrame(t, sub.send)

	sub.handleInbound([]byte(`{"type":"something_else"}`))
	frame := drainFrame(t, sub.send)
	assert.Equal(t, FrameError, frame.Type)
}
