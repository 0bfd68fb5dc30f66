// Package persist implements the optional crash-recovery snapshot file
// (spec.md §4.4/§6): a flat JSON document of the active set plus a
// generated_at instant, written periodically and loaded once at startup.
// This is deliberately not backed by a database driver or key/value store —
// SPEC_FULL.md's Non-goals rule out persistence beyond this snapshot, so
// there is nothing here for a SQL/Redis client from the corpus to do; a
// single flat file is the whole of the feature, and encoding/json plus
// os.Rename is the idiomatic, dependency-free way to write one atomically.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/noaa-wx/alertpipe/internal/model"
)

// document is the on-disk snapshot layout.
type document struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Alerts      []model.Alert `json:"alerts"`
}

// Save atomically writes the current snapshot to path: a temp file in the
// same directory, then a rename, so a crash mid-write never corrupts the
// previous snapshot.
func Save(path string, alerts []model.Alert) error {
	doc := document{GeneratedAt: time.Now(), Alerts: alerts}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("persist: marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".alertpipe-snapshot-*")
	if err != nil {
		return fmt.Errorf("persist: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("persist: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("persist: rename into place: %w", err)
	}
	return nil
}

// Load reads path and drops any alert whose expiration_time has already
// passed (spec.md §6 "Loader drops records with expiration_time <= now").
// A missing file is not an error: persistence is optional and this is the
// expected state on first run.
func Load(path string) ([]model.Alert, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("persist: decode %s: %w", path, err)
	}

	now := time.Now()
	out := make([]model.Alert, 0, len(doc.Alerts))
	dropped := 0
	for _, a := range doc.Alerts {
		if !a.ExpirationTime.After(now) {
			dropped++
			continue
		}
		out = append(out, a)
	}
	if dropped > 0 {
		log.Info().Int("dropped", dropped).Str("path", path).Msg("persist: discarded expired alerts from snapshot")
	}
	return out, nil
}

// RunPeriodicSave blocks, calling snapshot on interval and writing it to
// path, until stop is closed. Save failures are logged, never fatal — a
// snapshot write failure must not take down the pipeline (spec.md §7).
func RunPeriodicSave(path string, interval time.Duration, snapshot func() []model.Alert, stop <-chan struct{}) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			if err := Save(path, snapshot()); err != nil {
				log.Warn().Err(err).Msg("persist: final snapshot save failed")
			}
			return
		case <-ticker.C:
			if err := Save(path, snapshot()); err != nil {
				log.Warn().Err(err).Msg("persist: periodic snapshot save failed")
			}
		}
	}
}
