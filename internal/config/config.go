package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// Logger mode keys understood by the audit recorder.
const (
	LoggerBiometric  = "biometric-logs"
	LoggerCredential = "credential-logs"
	LoggerEventStore = "event-store"
)

// Event store backends.
const (
	EventStoreMemory = "memory"
	EventStoreSQLite = "sqlite"
)

type Config struct {
	Env string // "dev" | "prod"

	// Logging
	LogLevel  string // debug | info | warn | error
	LogFormat string // text | json

	// Composition keys
	AuthMode         string // default mode for the CLI
	LoggerMode       string
	LegacyOnlineCard bool // swap online-card for the prefix-only check

	// Credentials
	FixturesPath string   // empty = built-in seed
	Denylist     []string // empty = policy.DefaultDenylist

	// Access events
	EventStore string // "memory" | "sqlite"
	DBPath     string // e.g. "./data/portunus-gate.db"

	// Event retention
	EventRetentionDays int // 0 = keep forever
	PruneIntervalHours int // how often the pruner runs (default 6)
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("PORTUNUS_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	legacy := strings.EqualFold(os.Getenv("PORTUNUS_LEGACY_ONLINE_CARD"), "true") ||
		os.Getenv("PORTUNUS_LEGACY_ONLINE_CARD") == "1"

	return Config{
		Env: env,

		LogLevel:  strings.ToLower(getenvDefault("PORTUNUS_LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getenvDefault("PORTUNUS_LOG_FORMAT", "text")),

		AuthMode:         getenvDefault("PORTUNUS_AUTH_MODE", types.ModeDeny.String()),
		LoggerMode:       getenvDefault("PORTUNUS_LOGGER_MODE", LoggerBiometric),
		LegacyOnlineCard: legacy,

		FixturesPath: strings.TrimSpace(os.Getenv("PORTUNUS_FIXTURES")),
		Denylist:     splitCSV(os.Getenv("PORTUNUS_DENYLIST")),

		EventStore: strings.ToLower(getenvDefault("PORTUNUS_EVENT_STORE", EventStoreMemory)),
		DBPath:     getenvDefault("PORTUNUS_DB_PATH", "./data/portunus-gate.db"),

		EventRetentionDays: getenvInt("PORTUNUS_EVENT_RETENTION_DAYS", 0),
		PruneIntervalHours: getenvInt("PORTUNUS_PRUNE_INTERVAL_HOURS", 6),
	}
}

// Validate checks every composition key before anything is built.  The
// first unresolvable key is returned as an *Error.
func (c Config) Validate() error {
	if _, ok := types.LookupMode(c.AuthMode); !ok {
		return NewError("auth mode", c.AuthMode)
	}
	switch strings.ToLower(strings.TrimSpace(c.LoggerMode)) {
	case LoggerBiometric, LoggerCredential, LoggerEventStore:
	default:
		return NewError("logger mode", c.LoggerMode)
	}
	switch c.EventStore {
	case EventStoreMemory, EventStoreSQLite:
	default:
		return NewError("event store", c.EventStore)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return NewError("log level", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return NewError("log format", c.LogFormat)
	}
	return nil
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
