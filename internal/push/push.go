// Package push implements the Push Source: a long-lived XMPP client that
// joins the NWWS (NOAA Weather Wire Service) multi-user chat room and emits
// every room message body as a raw product (spec.md §4.2). Grounded on the
// teacher's client/client.go XMPP wiring, generalized to feed a pipeline
// callback instead of a seabird chat relay.
package push

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"gosrc.io/xmpp"
	"gosrc.io/xmpp/stanza"

	"github.com/noaa-wx/alertpipe/internal/wmo"
)

// Config is the push source's connection configuration, loaded from
// NWWS_HOST/NWWS_PORT/NWWS_USERNAME/NWWS_PASSWORD/NWWS_ROOM (spec.md §6).
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Room     string // MUC JID, e.g. nwws@conference.nwws-oi.weather.gov
	Resource string

	InitialBackoff time.Duration // default 2s
	MaxBackoff     time.Duration // default 60s
	ConnectTimeout time.Duration // default 20s
}

func (c Config) withDefaults() Config {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 2 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 60 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 20 * time.Second
	}
	if c.Resource == "" {
		c.Resource = "alertpipe"
	}
	return c
}

// RawProduct is one undecoded delivery handed to the Parser.
type RawProduct struct {
	Text       string
	ReceivedAt time.Time
}

// OnProduct is invoked once per room delivery, in room-delivery order
// (spec.md §4.2 "Ordering").
type OnProduct func(RawProduct)

// Source is the Push Source component. The zero value is not usable;
// construct with New.
type Source struct {
	cfg       Config
	onProduct OnProduct

	connected atomic.Bool
	received  atomic.Int64

	client *xmpp.Client
	cm     *xmpp.StreamManager
}

func New(cfg Config, onProduct OnProduct) *Source {
	return &Source{cfg: cfg.withDefaults(), onProduct: onProduct}
}

// Connected reports the current transport state without blocking (spec.md
// §4.2 health bit).
func (s *Source) Connected() bool { return s.connected.Load() }

// ReceivedCount is the monotonic count of products received since start.
func (s *Source) ReceivedCount() int64 { return s.received.Load() }

// Run connects and reconnects with exponential backoff and full jitter
// until ctx is cancelled. It returns nil on a clean shutdown via ctx, or a
// non-nil error only on an unrecoverable authentication failure (spec.md
// §4.2 "on authentication failure, surfaces fatal error to the supervisor").
func (s *Source) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialBackoff
	b.MaxInterval = s.cfg.MaxBackoff
	b.MaxElapsedTime = 0 // retry forever; only ctx cancellation stops us
	b.Multiplier = 2

	for {
		if ctx.Err() != nil {
			return nil
		}

		err := s.runOnce(ctx)
		s.connected.Store(false)

		if ctx.Err() != nil {
			return nil
		}
		if isAuthError(err) {
			return fmt.Errorf("push: authentication failed: %w", err)
		}

		delay := fullJitter(b.NextBackOff())
		log.Warn().Err(err).Dur("retry_in", delay).Msg("push source disconnected, reconnecting")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// fullJitter returns a duration uniformly distributed in [0, d), matching
// spec.md §4.2's "full jitter on the delay."
func fullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)))
}

// isAuthError recognizes an unrecoverable SASL/authentication failure from
// the underlying transport error text, mirroring the teacher's
// mucErrorHandler substring-matching style (client/client.go) rather than
// asserting a specific stanza error type the XMPP library may not export.
func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not-authorized") || strings.Contains(msg, "authentication failure") ||
		strings.Contains(msg, "sasl")
}

func (s *Source) runOnce(ctx context.Context) error {
	mucJID := fmt.Sprintf("%s/%s", s.cfg.Room, s.cfg.Resource)

	router := xmpp.NewRouter()
	router.HandleFunc("message", func(sender xmpp.Sender, p stanza.Packet) {
		s.handleMessage(p)
	})

	config := xmpp.Config{
		Jid:            fmt.Sprintf("%s@%s/%s", s.cfg.Username, s.cfg.Host, s.cfg.Resource),
		Credential:     xmpp.Password(s.cfg.Password),
		ConnectTimeout: int(s.cfg.ConnectTimeout.Seconds()),
		TransportConfiguration: xmpp.TransportConfiguration{
			Address: fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port),
			Domain:  s.cfg.Host,
		},
	}

	client, err := xmpp.NewClient(&config, router, func(err error) {
		log.Error().Err(err).Msg("push source transport error")
	})
	if err != nil {
		return fmt.Errorf("push: build client: %w", err)
	}
	s.client = client

	cm := xmpp.NewStreamManager(client, func(sender xmpp.Sender) {
		s.connected.Store(true)
		if err := sender.Send(stanza.Presence{
			Attrs: stanza.Attrs{To: mucJID},
			Extensions: []stanza.PresExtension{
				stanza.MucPresence{History: stanza.History{MaxStanzas: stanza.NewNullableInt(0)}},
			},
		}); err != nil {
			log.Error().Err(err).Msg("push source: failed to join MUC")
		}
	})
	s.cm = cm

	done := make(chan error, 1)
	go func() { done <- cm.Run() }()

	select {
	case <-ctx.Done():
		s.shutdown(mucJID)
		<-done
		return nil
	case err := <-done:
		return err
	}
}

// shutdown sends presence-unavailable, waits 2s, then stops the stream
// manager to force the transport closed (spec.md §4.2 "Cancellation").
func (s *Source) shutdown(mucJID string) {
	if s.client != nil {
		_ = s.client.Send(stanza.Presence{
			Attrs: stanza.Attrs{To: mucJID, Type: stanza.PresenceTypeUnavailable},
		})
	}
	time.Sleep(2 * time.Second)
	if s.cm != nil {
		s.cm.Stop()
	}
}

func (s *Source) handleMessage(p stanza.Packet) {
	msg, ok := p.(stanza.Message)
	if !ok {
		return
	}
	var x wmo.NWWSOIMessageXExtension
	if !msg.Get(&x) {
		return
	}
	if x.Text == "" {
		return
	}
	s.received.Add(1)
	s.onProduct(RawProduct{Text: x.Text, ReceivedAt: time.Now()})
}
