package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noaa-wx/alertpipe/internal/config"
	"github.com/noaa-wx/alertpipe/internal/model"
	"github.com/noaa-wx/alertpipe/internal/store"
)

// TestIngestBatchLatePullReconciliation exercises spec.md's S3 scenario:
// Push delivered A and B; after a partition, a pull poll returns {B, C}. A
// must be removed with reason expired only if its expiration has passed,
// else left alone; B is unchanged; C is inserted.
func TestIngestBatchLatePullReconciliation(t *testing.T) {
	st := store.New(time.Minute)

	a := model.Alert{ProductID: "A", Source: model.SourcePush, ExpirationTime: time.Now().Add(-time.Minute)}
	b := model.Alert{ProductID: "B", Source: model.SourcePush, ExpirationTime: time.Now().Add(time.Hour)}
	st.Upsert(a)
	st.Upsert(b)

	batch := []model.Alert{
		{ProductID: "B", Source: model.SourcePull, ExpirationTime: time.Now().Add(time.Hour)},
		{ProductID: "C", Source: model.SourcePull, ExpirationTime: time.Now().Add(time.Hour)},
	}
	ingestBatch(batch, config.Config{}, st)

	_, aStillPresent := st.Get("A")
	assert.False(t, aStillPresent, "A's expiration has passed and it is absent from the batch, so it must be removed")

	_, bPresent := st.Get("B")
	assert.True(t, bPresent, "B is present in the batch and must remain")

	_, cPresent := st.Get("C")
	assert.True(t, cPresent, "C is new upstream and must be inserted")
}

// TestIngestBatchLeavesUnexpiredAbsentAlertAlone covers the "else left
// alone" clause: an alert missing from the batch but not yet expired must
// survive the reconciliation pass.
func TestIngestBatchLeavesUnexpiredAbsentAlertAlone(t *testing.T) {
	st := store.New(time.Minute)

	a := model.Alert{ProductID: "A", Source: model.SourcePush, ExpirationTime: time.Now().Add(time.Hour)}
	st.Upsert(a)

	ingestBatch(nil, config.Config{}, st)

	_, ok := st.Get("A")
	assert.True(t, ok, "A has not yet expired and must be left alone despite being absent from the batch")
}

func TestPassesStateFilterEmptyAcceptsEverything(t *testing.T) {
	a := model.Alert{AffectedAreas: []string{"OHC085"}}
	assert.True(t, passesStateFilter(a, nil))
}

func TestPassesStateFilterMatchesAndRejects(t *testing.T) {
	a := model.Alert{AffectedAreas: []string{"OHC085"}}
	assert.True(t, passesStateFilter(a, []string{"OH"}))
	assert.False(t, passesStateFilter(a, []string{"TX"}))
}
