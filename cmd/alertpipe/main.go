// Command alertpipe runs the NWS severe-weather alert ingestion and
// distribution pipeline: Push Source (NWWS XMPP) and Pull Source
// (api.weather.gov poll) feed a single Alert Store, whose change callbacks
// drive both Prometheus metrics and the Broadcast Hub's WebSocket fan-out,
// exposed together with a REST surface over HTTP. Grounded on the teacher's
// cmd/seabird-nwwsio-plugin/main.go supervisor shape: dotenv load, isatty-
// conditional zerolog writer, LOG_LEVEL switch, signal-driven shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/noaa-wx/alertpipe/internal/config"
	"github.com/noaa-wx/alertpipe/internal/hub"
	"github.com/noaa-wx/alertpipe/internal/httpapi"
	"github.com/noaa-wx/alertpipe/internal/metrics"
	"github.com/noaa-wx/alertpipe/internal/model"
	"github.com/noaa-wx/alertpipe/internal/parser"
	"github.com/noaa-wx/alertpipe/internal/persist"
	"github.com/noaa-wx/alertpipe/internal/pull"
	"github.com/noaa-wx/alertpipe/internal/push"
	"github.com/noaa-wx/alertpipe/internal/refdata"
	"github.com/noaa-wx/alertpipe/internal/store"
)

func main() {
	configureLogging()

	cfg, err := config.Load(godotenv.Load)
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	refTable, err := refdata.Load(cfg.RefDataPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.RefDataPath).Msg("failed to load reference data")
	}
	log.Info().Int("entries", refTable.Len()).Msg("reference data loaded")

	ring := parser.NewFailureRing(128)
	st := store.New(cfg.ExpirationGrace)
	h := hub.New(st.WithSnapshot)

	wireStoreCallbacks(st, h)

	if cfg.PersistPath != "" {
		restoreSnapshot(cfg, st)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var g errgroup.Group

	var pushSource *push.Source
	if cfg.NWWSEnabled {
		pushSource = push.New(push.Config{
			Host:     cfg.NWWSHost,
			Port:     cfg.NWWSPort,
			Username: cfg.NWWSUsername,
			Password: cfg.NWWSPassword,
			Room:     cfg.NWWSRoom,
		}, func(raw push.RawProduct) {
			ingestRaw(raw.Text, raw.ReceivedAt, model.SourcePush, refTable, cfg, ring, st)
		})
		g.Go(func() error { return pushSource.Run(ctx) })
	}

	pullSource := pull.New(pull.Config{
		BaseURL:      cfg.NWSAPIBase,
		PollInterval: cfg.PollInterval,
	}, refTable, func(alerts []model.Alert, polledAt time.Time) {
		ingestBatch(alerts, cfg, st)
	})
	g.Go(func() error { return pullSource.Run(ctx) })

	g.Go(func() error { st.RunEvictionLoop(); return nil })

	persistStop := make(chan struct{})
	if cfg.PersistPath != "" {
		g.Go(func() error {
			persist.RunPeriodicSave(cfg.PersistPath, 30*time.Second, st.Snapshot, persistStop)
			return nil
		})
	}

	health := httpapi.SourceHealth{
		PushEnabled: cfg.NWWSEnabled,
	}
	if pushSource != nil {
		health.PushConnected = pushSource.Connected
		health.PushReceived = pushSource.ReceivedCount
	}
	health.PullLastPoll = pullSource.LastPolledAt
	health.PullCount = pullSource.PollCount

	server := httpapi.NewServer(st, h, ring, health, nil)
	httpSrv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: server.Engine(),
	}

	g.Go(func() error {
		log.Info().Str("addr", httpSrv.Addr).Msg("httpapi: listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("httpapi: listen: %w", err)
		}
		return nil
	})

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	h.Shutdown(shutdownCtx)
	_ = httpSrv.Shutdown(shutdownCtx)
	st.Stop()
	close(persistStop)

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("component exited with error")
		os.Exit(1)
	}
	os.Exit(0)
}

func configureLogging() {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		consoleWriter := zerolog.NewConsoleWriter()
		consoleWriter.FormatLevel = func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		}
		log.Logger = zerolog.New(consoleWriter).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// ingestRaw parses one Push Source delivery and upserts every resulting
// segment, recording failures to the diagnostic ring (spec.md §7).
func ingestRaw(raw string, receivedAt time.Time, source model.Source, refTable *refdata.Table, cfg config.Config, ring *parser.FailureRing, st *store.Store) {
	metrics.SourceProductsReceivedTotal.WithLabelValues(string(source)).Inc()
	alerts, err := parser.Parse(raw, receivedAt, source, refTable)
	if err != nil {
		ring.Record(raw, err, receivedAt)
		reason := "Other"
		switch {
		case errors.Is(err, parser.ErrMalformedHeader):
			reason = "MalformedHeader"
		case errors.Is(err, parser.ErrMissingUGC):
			reason = "MissingUGC"
		case errors.Is(err, parser.ErrInvalidVTEC):
			reason = "InvalidVTEC"
		case errors.Is(err, parser.ErrEmptyBody):
			reason = "EmptyBody"
		}
		metrics.ParseFailuresTotal.WithLabelValues(reason).Inc()
		log.Warn().Err(err).Msg("parser: failed to parse product")
		return
	}
	for _, a := range alerts {
		if !passesStateFilter(a, cfg.FilterStates) {
			continue
		}
		st.Upsert(a)
	}
}

// ingestBatch reconciles a Pull Source poll batch against the whole active
// set: every alert present upstream is upserted, and any tracked alert
// absent from the batch whose expiration has already passed is removed as
// expired; one still within its expiration window is left alone pending a
// future poll or its own eviction (spec.md §4.3 "set difference", scenario
// S3: "A removed with reason expired if its expiration has passed, else
// left alone").
func ingestBatch(alerts []model.Alert, cfg config.Config, st *store.Store) {
	present := make(map[string]bool, len(alerts))
	for _, a := range alerts {
		if !passesStateFilter(a, cfg.FilterStates) {
			continue
		}
		present[a.ProductID] = true
		st.Upsert(a)
	}

	now := time.Now()
	for id := range st.ProductIDs() {
		if present[id] {
			continue
		}
		existing, ok := st.Get(id)
		if !ok || existing.ExpirationTime.After(now) {
			continue
		}
		st.Remove(id, store.ReasonExpired)
	}
}

// passesStateFilter applies FILTER_STATES (spec.md §6): an alert survives if
// FilterStates is empty, or at least one affected UGC code's leading
// two-letter state matches the configured set.
func passesStateFilter(a model.Alert, filterStates []string) bool {
	if len(filterStates) == 0 {
		return true
	}
	for _, code := range a.AffectedAreas {
		if len(code) < 2 {
			continue
		}
		for _, want := range filterStates {
			if strings.EqualFold(code[:2], want) {
				return true
			}
		}
	}
	return false
}

func restoreSnapshot(cfg config.Config, st *store.Store) {
	alerts, err := persist.Load(cfg.PersistPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.PersistPath).Msg("failed to load persisted snapshot")
		return
	}
	for _, a := range alerts {
		st.Upsert(a)
	}
	if len(alerts) > 0 {
		log.Info().Int("count", len(alerts)).Msg("restored alerts from snapshot")
	}
}

// wireStoreCallbacks connects the Store's change events to the Broadcast
// Hub's frame types and the active-alert gauge (spec.md §4.4 -> §4.5).
func wireStoreCallbacks(st *store.Store, h *hub.Hub) {
	st.OnAdded(func(a model.Alert) {
		h.BroadcastAlert(hub.FrameNew, a)
		metrics.ActiveAlerts.WithLabelValues(a.Phenomenon, string(a.Source)).Inc()
	})
	st.OnUpdated(func(a model.Alert) {
		h.BroadcastAlert(hub.FrameUpdate, a)
	})
	st.OnRemoved(func(productID string, reason store.RemoveReason, last model.Alert) {
		h.BroadcastRemove(productID, string(reason), last)
		metrics.ActiveAlerts.WithLabelValues(last.Phenomenon, string(last.Source)).Dec()
	})
}
