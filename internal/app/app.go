// Package app wires configuration, credentials, strategies, the audit
// recorder and the access event store into one running gate.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/config"
	"github.com/BrandonDHaskell/Portunus/gate/internal/db"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/audit"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/auth"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/fixtures"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/policy"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store/memory"
	sqlitestore "github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// App holds the composed gate.  Build it with New and release it with Close.
type App struct {
	Config      config.Config
	DefaultMode types.AuthMode
	Dispatcher  *auth.Dispatcher
	Events      *service.AccessEventService
	Recorder    *audit.Recorder
	Pruner      *service.EventPruner

	logger        *slog.Logger
	auditFailures atomic.Int64
	closers       []func()
}

// New validates cfg and composes every component.  A configuration error is
// returned before anything is opened.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := auth.ParseMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, DefaultMode: mode, logger: logger}

	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	eventStore, err := a.openEventStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Events = service.NewAccessEventService(eventStore)

	accessLogger, err := audit.ResolveLogger(cfg.LoggerMode, audit.Deps{
		Logger: logger.With(slog.String("component", "audit")),
		Events: a.Events,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Recorder = audit.NewRecorder(accessLogger,
		audit.WithDiagnostics(logger),
		audit.WithErrorHandler(func(error) { a.auditFailures.Add(1) }),
	)

	deps := auth.Deps{Credentials: creds, Addresses: addressPolicy(cfg)}
	strategies := auth.NewStrategies(deps)
	if cfg.LegacyOnlineCard {
		strategies[types.ModeOnlineCard] = auth.LegacyCardStrategy(deps)
	}
	a.Dispatcher = auth.NewDispatcher(strategies,
		auth.WithLogger(logger.With(slog.String("component", "auth"))),
		auth.WithObserver(a.Recorder.Observer()),
	)

	a.Pruner = service.NewEventPruner(eventStore, service.PrunerConfig{
		RetentionDays: cfg.EventRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger.With(slog.String("component", "pruner")))

	principals, cards := creds.Len()
	logger.Info("gate composed",
		slog.String("env", cfg.Env),
		slog.String("default_mode", mode.String()),
		slog.String("logger_mode", cfg.LoggerMode),
		slog.String("event_store", cfg.EventStore),
		slog.Bool("legacy_online_card", cfg.LegacyOnlineCard),
		slog.Int("principals", principals),
		slog.Int("cards", cards),
	)
	return a, nil
}

// AuditFailures counts audit logger errors seen so far.
func (a *App) AuditFailures() int64 {
	return a.auditFailures.Load()
}

// Start launches background work.  Only the pruner runs today.
func (a *App) Start(ctx context.Context) {
	a.Pruner.Start(ctx)
	a.closers = append(a.closers, a.Pruner.Stop)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func loadCredentials(cfg config.Config) (*memory.CredentialStore, error) {
	if cfg.FixturesPath == "" {
		return fixtures.Default(time.Now()), nil
	}
	return fixtures.Load(cfg.FixturesPath)
}

func addressPolicy(cfg config.Config) *policy.AddressPolicy {
	if len(cfg.Denylist) == 0 {
		return policy.DefaultAddressPolicy()
	}
	return policy.NewAddressPolicy(cfg.Denylist...)
}

func (a *App) openEventStore(ctx context.Context, cfg config.Config) (store.AccessEventStore, error) {
	if cfg.EventStore != config.EventStoreSQLite {
		return memory.NewAccessEventStore(), nil
	}

	dbCfg := db.Config{Path: cfg.DBPath, Env: cfg.Env}
	if cfg.Env == "dev" && strings.TrimSpace(cfg.FixturesPath) == "" {
		// Seed only a database this run created, so an emptied or fully
		// pruned dev file stays empty.
		dbCfg.OnCreate = func(ctx context.Context, conn *sql.DB) error {
			n, err := db.SeedDev(ctx, conn, db.SeedDevOptions{})
			if err != nil {
				return err
			}
			a.logger.Info("seeded dev access events", slog.Int("rows", n))
			return nil
		}
	}

	conn, err := db.Open(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open event db: %w", err)
	}
	writer := db.NewWorker(conn)
	a.closers = append(a.closers, func() { _ = conn.Close() }, writer.Close)

	return sqlitestore.NewAccessEventStore(conn, writer), nil
}

// NewLogger builds the process logger from the configured level and format.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lv}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
