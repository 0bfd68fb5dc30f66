// Package store holds the single authoritative in-memory set of active
// alerts. All mutation is serialized through one writer lock (spec.md §4.4,
// §5) — callbacks fire synchronously on the writer path and must not block.
package store

import (
	"container/heap"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/noaa-wx/alertpipe/internal/model"
)

// UpsertResult reports what upsert actually did, per spec.md §4.4's
// operation contract table.
type UpsertResult string

const (
	ResultAdded      UpsertResult = "added"
	ResultUpdated    UpsertResult = "updated"
	ResultSuperseded UpsertResult = "superseded"
	ResultIgnored    UpsertResult = "ignored"
)

// RemoveReason is why an alert left the active set.
type RemoveReason string

const (
	ReasonExpired   RemoveReason = "expired"
	ReasonCancelled RemoveReason = "cancelled"
	ReasonManual    RemoveReason = "manual"
)

// AddedFunc, UpdatedFunc, RemovedFunc are the typed callback shapes
// registered via Store.OnAdded/OnUpdated/OnRemoved. Per spec.md §9's
// "callback registration -> typed subscription" redesign note, registration
// returns a cancel handle rather than only appending to a list.
type AddedFunc func(a model.Alert)
type UpdatedFunc func(a model.Alert)
type RemovedFunc func(productID string, reason RemoveReason, last model.Alert)

// CancelFunc removes a previously registered callback.
type CancelFunc func()

// Stats is the result of the non-blocking stats read.
type Stats struct {
	Total       int
	BySource    map[model.Source]int
	ByPhenomenon map[string]int
}

// expHeap is a min-heap of product IDs ordered by ExpirationTime, used by
// the eviction loop to always wake for the soonest-expiring alert.
type expItem struct {
	productID string
	expires   time.Time
	index     int
}

type expHeap []*expItem

func (h expHeap) Len() int            { return len(h) }
func (h expHeap) Less(i, j int) bool  { return h[i].expires.Before(h[j].expires) }
func (h expHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *expHeap) Push(x interface{}) {
	item := x.(*expItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *expHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// Store is the shared authoritative alert set. The zero value is not
// usable; construct with New.
type Store struct {
	mu sync.Mutex

	byProductID map[string]model.Alert
	byVTECKey   map[string]string // vtec.Key() -> product_id
	heap        expHeap
	heapIndex   map[string]*expItem

	grace time.Duration

	onAdded   map[int]AddedFunc
	onUpdated map[int]UpdatedFunc
	onRemoved map[int]RemovedFunc
	nextSub   int

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs an empty Store. grace is the eviction grace period added to
// expiration_time before an alert is actually removed (spec.md §4.4).
func New(grace time.Duration) *Store {
	if grace <= 0 {
		grace = 60 * time.Second
	}
	s := &Store{
		byProductID: make(map[string]model.Alert),
		byVTECKey:   make(map[string]string),
		heapIndex:   make(map[string]*expItem),
		grace:       grace,
		onAdded:     make(map[int]AddedFunc),
		onUpdated:   make(map[int]UpdatedFunc),
		onRemoved:   make(map[int]RemovedFunc),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	heap.Init(&s.heap)
	return s
}

// OnAdded, OnUpdated, OnRemoved register a callback invoked synchronously on
// the writer path. The returned CancelFunc deregisters it.
func (s *Store) OnAdded(fn AddedFunc) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.onAdded[id] = fn
	return func() { s.mu.Lock(); delete(s.onAdded, id); s.mu.Unlock() }
}

func (s *Store) OnUpdated(fn UpdatedFunc) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.onUpdated[id] = fn
	return func() { s.mu.Lock(); delete(s.onUpdated, id); s.mu.Unlock() }
}

func (s *Store) OnRemoved(fn RemovedFunc) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.onRemoved[id] = fn
	return func() { s.mu.Lock(); delete(s.onRemoved, id); s.mu.Unlock() }
}

// Upsert applies the alert per the algorithm in spec.md §4.4.
func (s *Store) Upsert(a model.Alert) UpsertResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.HasVTEC {
		switch a.VTEC.Action {
		case model.ActionCAN, model.ActionUPG:
			if priorID, ok := s.byVTECKey[a.VTEC.Key()]; ok {
				s.removeLocked(priorID, ReasonCancelled)
			}
			return ResultSuperseded
		case model.ActionEXP:
			if priorID, ok := s.byVTECKey[a.VTEC.Key()]; ok {
				s.removeLocked(priorID, ReasonExpired)
				return ResultSuperseded
			}
			return ResultIgnored
		case model.ActionNEW:
			if _, exists := s.byProductID[a.ProductID]; exists {
				return ResultIgnored
			}
			s.insertLocked(a)
			return ResultAdded
		case model.ActionCON, model.ActionEXT, model.ActionEXA, model.ActionEXB, model.ActionCOR:
			priorID, ok := s.byVTECKey[a.VTEC.Key()]
			if !ok {
				s.insertLocked(a)
				return ResultAdded
			}
			s.updateLocked(priorID, a)
			return ResultUpdated
		default:
			// ROU and any other action: treat like a plain upsert by
			// product_id, matching the "no VTEC" fallback below.
		}
	}

	existing, exists := s.byProductID[a.ProductID]
	if !exists {
		s.insertLocked(a)
		return ResultAdded
	}
	if existing.LastUpdated.Equal(a.LastUpdated) {
		return ResultIgnored
	}
	s.updateLocked(a.ProductID, a)
	return ResultUpdated
}

func (s *Store) insertLocked(a model.Alert) {
	a.Status = model.StatusActive
	s.byProductID[a.ProductID] = a
	if a.HasVTEC {
		s.byVTECKey[a.VTEC.Key()] = a.ProductID
	}
	item := &expItem{productID: a.ProductID, expires: a.ExpirationTime}
	s.heapIndex[a.ProductID] = item
	heap.Push(&s.heap, item)

	for _, fn := range s.onAdded {
		fn(a.Clone())
	}
}

// updateLocked replaces fields on an existing record, keeping the original
// issued_time, and bumps update_count (spec.md §4.4 step 4). When the
// incoming revision carries a different product_id, the record is re-keyed
// under the new id and the prior id no longer resolves.
func (s *Store) updateLocked(productID string, incoming model.Alert) {
	prior, ok := s.byProductID[productID]
	if !ok {
		s.insertLocked(incoming)
		return
	}
	if incoming.ProductID != "" && incoming.ProductID != productID {
		delete(s.byProductID, productID)
		if item, ok := s.heapIndex[productID]; ok {
			delete(s.heapIndex, productID)
			item.productID = incoming.ProductID
			s.heapIndex[incoming.ProductID] = item
		}
		productID = incoming.ProductID
	}
	updated := incoming
	updated.ProductID = productID
	updated.IssuedTime = prior.IssuedTime
	updated.UpdateCount = prior.UpdateCount + 1
	updated.Status = model.StatusUpdated

	s.byProductID[productID] = updated
	if updated.HasVTEC {
		s.byVTECKey[updated.VTEC.Key()] = productID
	}

	if item, ok := s.heapIndex[productID]; ok {
		item.expires = updated.ExpirationTime
		heap.Fix(&s.heap, item.index)
	}

	for _, fn := range s.onUpdated {
		fn(updated.Clone())
	}
}

// Remove deletes an alert by product_id with an explicit reason (spec.md
// §4.4, used by the operator-triggered DELETE /api/alerts/{product_id}).
func (s *Store) Remove(productID string, reason RemoveReason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(productID, reason)
}

func (s *Store) removeLocked(productID string, reason RemoveReason) bool {
	a, ok := s.byProductID[productID]
	if !ok {
		return false
	}
	delete(s.byProductID, productID)
	if a.HasVTEC {
		delete(s.byVTECKey, a.VTEC.Key())
	}
	if item, ok := s.heapIndex[productID]; ok {
		heap.Remove(&s.heap, item.index)
		delete(s.heapIndex, productID)
	}

	for _, fn := range s.onRemoved {
		fn(productID, reason, a.Clone())
	}
	return true
}

// Get is a non-blocking point read.
func (s *Store) Get(productID string) (model.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byProductID[productID]
	if !ok {
		return model.Alert{}, false
	}
	return a.Clone(), true
}

// Snapshot returns an immutable, point-in-time-consistent copy of the active
// set (spec.md §4.4 "snapshot").
func (s *Store) Snapshot() []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Alert, 0, len(s.byProductID))
	for _, a := range s.byProductID {
		out = append(out, a.Clone())
	}
	return out
}

// WithSnapshot hands fn a point-in-time copy of the active set while still
// holding the writer lock, so a caller that needs to register itself for
// future events in the same atomic step (the Broadcast Hub's subscriber
// registration, spec.md §4.5 "Ordering") cannot miss or double-deliver an
// event racing the snapshot.
func (s *Store) WithSnapshot(fn func(snapshot []model.Alert)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Alert, 0, len(s.byProductID))
	for _, a := range s.byProductID {
		out = append(out, a.Clone())
	}
	fn(out)
}

// Stats returns non-blocking aggregate counts (spec.md §4.4 "stats").
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		BySource:     make(map[model.Source]int),
		ByPhenomenon: make(map[string]int),
	}
	for _, a := range s.byProductID {
		st.Total++
		st.BySource[a.Source]++
		st.ByPhenomenon[a.Phenomenon]++
	}
	return st
}

// ProductIDs returns the set of product_ids currently active, used by the
// supervisor's pull-batch reconciliation to compute set-difference
// departures (spec.md §4.3/§4.4).
func (s *Store) ProductIDs() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.byProductID))
	for id := range s.byProductID {
		out[id] = true
	}
	return out
}

// RunEvictionLoop blocks, evicting alerts whose expiration_time+grace is due,
// until Stop is called. Eviction never fires for an alert whose
// expiration_time is still in the future even if the grace window math would
// otherwise suggest it (spec.md §4.4, testable property 11).
func (s *Store) RunEvictionLoop() {
	defer close(s.doneCh)
	for {
		wait := s.nextWait()
		timer := time.NewTimer(wait)
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			s.evictDue()
		}
	}
}

func (s *Store) nextWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 {
		return time.Second
	}
	due := s.heap[0].expires.Add(s.grace)
	d := time.Until(due)
	if d < 10*time.Millisecond {
		return 10 * time.Millisecond
	}
	return d
}

func (s *Store) evictDue() {
	now := time.Now()
	for {
		s.mu.Lock()
		if len(s.heap) == 0 {
			s.mu.Unlock()
			return
		}
		top := s.heap[0]
		if top.expires.Add(s.grace).After(now) {
			s.mu.Unlock()
			return
		}
		productID := top.productID
		s.mu.Unlock()

		s.mu.Lock()
		ok := s.removeLocked(productID, ReasonExpired)
		s.mu.Unlock()
		if !ok {
			return
		}
		log.Debug().Str("product_id", productID).Msg("alert evicted: expiration + grace elapsed")
	}
}

// Stop ends the eviction loop and waits for it to exit.
func (s *Store) Stop() {
	close(s.stopCh)
	<-s.doneCh
}
