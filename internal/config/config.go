// Package config loads the pipeline's environment-variable configuration
// once at startup (spec.md §6) into a single struct, passed explicitly to
// each component constructor rather than read piecemeal — spec.md §9's
// "singletons → explicit dependencies" redesign note.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully resolved startup configuration.
type Config struct {
	NWWSEnabled  bool
	NWWSHost     string
	NWWSPort     string
	NWWSUsername string
	NWWSPassword string
	NWWSRoom     string

	NWSAPIBase         string
	PollInterval       time.Duration
	FilterStates       []string // empty = accept all
	ExpirationGrace    time.Duration
	PersistPath        string
	RefDataPath        string

	Host string
	Port string
}

// Load reads the environment (after a best-effort .env load, matching the
// teacher's `_ = godotenv.Load()` convention) and validates mandatory
// fields. A non-nil error here is fatal at startup (spec.md §7
// "Configuration" errors).
func Load(loadDotenv func() error) (Config, error) {
	if loadDotenv != nil {
		_ = loadDotenv()
	}

	c := Config{
		NWWSEnabled:  parseBool(os.Getenv("NWWS_ENABLED"), false),
		NWWSHost:     os.Getenv("NWWS_HOST"),
		NWWSPort:     envOr("NWWS_PORT", "5222"),
		NWWSUsername: os.Getenv("NWWS_USERNAME"),
		NWWSPassword: os.Getenv("NWWS_PASSWORD"),
		NWWSRoom:     os.Getenv("NWWS_ROOM"),

		NWSAPIBase:      envOr("NWS_API_BASE", "https://api.weather.gov"),
		PollInterval:    parseSeconds(os.Getenv("POLL_INTERVAL_SECONDS"), 300*time.Second),
		FilterStates:    parseStates(os.Getenv("FILTER_STATES")),
		ExpirationGrace: parseSeconds(os.Getenv("EXPIRATION_GRACE_SECONDS"), 60*time.Second),
		PersistPath:     os.Getenv("PERSIST_PATH"),
		RefDataPath:     envOr("REFDATA_PATH", "configs/ugc_reference.csv"),

		Host: envOr("HOST", "0.0.0.0"),
		Port: envOr("PORT", "8080"),
	}

	if c.NWWSEnabled {
		if c.NWWSHost == "" || c.NWWSUsername == "" || c.NWWSPassword == "" || c.NWWSRoom == "" {
			return Config{}, fmt.Errorf("config: NWWS_ENABLED requires NWWS_HOST, NWWS_USERNAME, NWWS_PASSWORD, and NWWS_ROOM")
		}
	}

	return c, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBool(v string, fallback bool) bool {
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func parseSeconds(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

// parseStates splits a comma-separated list of two-letter state codes,
// trimming whitespace and normalizing case. An empty input means "accept
// all" per spec.md §6.
func parseStates(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
