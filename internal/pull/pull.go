// Package pull implements the Pull Source: a periodic fetcher of
// api.weather.gov's active-alerts GeoJSON feed, the authoritative backstop
// to the Push Source (spec.md §4.3). Grounded on the teacher's HTTP-fetch
// style (client/client.go's retry/backoff wiring) and on apimgr-weather's
// api.weather.gov GeoJSON client, generalized into a typed feature decoder
// that feeds the same parser helpers as the text pipeline.
package pull

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/noaa-wx/alertpipe/internal/metrics"
	"github.com/noaa-wx/alertpipe/internal/model"
	"github.com/noaa-wx/alertpipe/internal/parser"
	"github.com/noaa-wx/alertpipe/internal/refdata"
)

// Config is the pull source's configuration, loaded from NWS_API_BASE,
// POLL_INTERVAL_SECONDS, and the deployment's User-Agent (spec.md §6).
type Config struct {
	BaseURL      string // e.g. https://api.weather.gov
	UserAgent    string
	PollInterval time.Duration // default 5m
	HTTPTimeout  time.Duration // default 30s
}

const minPollInterval = 1 * time.Second

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Minute
	}
	if c.PollInterval < minPollInterval {
		c.PollInterval = minPollInterval
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "alertpipe/1.0"
	}
	return c
}

// OnBatch is invoked once per successful poll with every alert currently
// active upstream, decoded and parsed. The caller (main's wiring) is
// responsible for the store's set-difference against this batch.
type OnBatch func(alerts []model.Alert, polledAt time.Time)

// Source is the Pull Source component.
type Source struct {
	cfg     Config
	client  *http.Client
	onBatch OnBatch
	refTbl  *refdata.Table

	pollCount    int64
	lastPolledAt atomic.Value // time.Time
}

// PollCount returns the number of completed poll cycles, queryable
// without blocking the poll loop (mirrors push.Source.ReceivedCount).
func (s *Source) PollCount() int64 { return atomic.LoadInt64(&s.pollCount) }

// LastPolledAt returns the instant of the most recently completed poll, or
// the zero time if no poll has completed yet.
func (s *Source) LastPolledAt() time.Time {
	t, _ := s.lastPolledAt.Load().(time.Time)
	return t
}

func New(cfg Config, refTbl *refdata.Table, onBatch OnBatch) *Source {
	cfg = cfg.withDefaults()
	return &Source{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		onBatch: onBatch,
		refTbl:  refTbl,
	}
}

// Run polls on cfg.PollInterval until ctx is cancelled, retrying each poll
// attempt per spec.md §4.3 (up to 3 tries, exponential backoff starting at
// 1s, fatal on non-429 4xx).
func (s *Source) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Source) pollOnce(ctx context.Context) {
	polledAt := time.Now()
	features, err := s.fetchWithRetry(ctx)
	if err != nil {
		log.Error().Err(err).Msg("pull source: poll failed")
		return
	}

	metrics.SourceProductsReceivedTotal.WithLabelValues(string(model.SourcePull)).Add(float64(len(features)))
	alerts := make([]model.Alert, 0, len(features))
	for _, f := range features {
		fields, err := f.toFields()
		if err != nil {
			log.Warn().Err(err).Str("id", f.ID).Msg("pull source: skipped feature")
			continue
		}
		a, err := parser.FromActiveAlert(fields, polledAt, s.refTbl)
		if err != nil {
			log.Warn().Err(err).Str("id", f.ID).Msg("pull source: parse failed")
			continue
		}
		alerts = append(alerts, a)
	}

	atomic.AddInt64(&s.pollCount, 1)
	s.lastPolledAt.Store(polledAt)
	s.onBatch(alerts, polledAt)
}

// fetchWithRetry performs one poll attempt with up to 3 tries: exponential
// backoff (initial 1s, multiplier 2) on connection errors, 5xx, and 429;
// immediate fatal return on any other 4xx.
func (s *Source) fetchWithRetry(ctx context.Context) ([]activeAlertFeature, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	const maxAttempts = 3
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		features, retryable, err := s.fetchOnce(ctx)
		if err == nil {
			return features, nil
		}
		lastErr = err
		if !retryable || attempt == maxAttempts {
			return nil, lastErr
		}

		delay := b.NextBackOff()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// fetchOnce performs a single HTTP round trip. retryable distinguishes
// transient failures (connection error, 5xx, 429) from fatal ones (any
// other 4xx).
func (s *Source) fetchOnce(ctx context.Context) (features []activeAlertFeature, retryable bool, err error) {
	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/alerts/active"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("pull: build request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("pull: request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("pull: upstream status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("pull: fatal upstream status %d", resp.StatusCode)
	default:
		return nil, true, fmt.Errorf("pull: unexpected upstream status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("pull: read body: %w", err)
	}

	var doc activeAlertsDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false, fmt.Errorf("pull: decode geo+json: %w", err)
	}
	return doc.Features, false, nil
}
