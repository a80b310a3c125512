// portunus-gate composes the authentication dispatcher, audit recorder and
// access event store from PORTUNUS_* environment variables and command-line
// flags, then runs one command against them.
//
//	portunus-gate [global flags] <command> [command flags]
//
// Commands:
//
//	auth      authenticate one request
//	serve     authenticate JSON requests read line by line from stdin
//	register  record an access event
//	list      list access events, optionally for one badge
//	remove    delete an access event by id
//	prune     delete access events older than the retention period
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/BrandonDHaskell/Portunus/gate/internal/app"
	"github.com/BrandonDHaskell/Portunus/gate/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()

	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, config.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg := config.FromEnv()

	flagSet := pflag.NewFlagSet("portunus-gate", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	bindGlobalFlags(flagSet, &cfg)
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stderr, flagSet)
		return fmt.Errorf("no command given")
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		printUsage(stderr, flagSet)
		return fmt.Errorf("unknown command %q", rest[0])
	}

	logger := app.NewLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	gate, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer gate.Close()

	return cmd.run(ctx, gate, rest[1:], stdin, stdout)
}

// bindGlobalFlags registers flags that override the environment.  Each
// default is the value already read from the environment.
func bindGlobalFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Env, "env", cfg.Env, "environment: dev or prod")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	fs.StringVar(&cfg.AuthMode, "auth-mode", cfg.AuthMode, "default authentication mode")
	fs.StringVar(&cfg.LoggerMode, "logger-mode", cfg.LoggerMode, "audit logger: biometric-logs, credential-logs or event-store")
	fs.BoolVar(&cfg.LegacyOnlineCard, "legacy-online-card", cfg.LegacyOnlineCard, "use the prefix-only check for online-card")
	fs.StringVar(&cfg.FixturesPath, "fixtures", cfg.FixturesPath, "YAML or TOML credentials file (default: built-in seed)")
	fs.StringSliceVar(&cfg.Denylist, "denylist", cfg.Denylist, "client addresses to block for online modes")
	fs.StringVar(&cfg.EventStore, "event-store", cfg.EventStore, "access event backend: memory or sqlite")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fs.IntVar(&cfg.EventRetentionDays, "retention-days", cfg.EventRetentionDays, "days of access events to keep (0 = forever)")
	fs.IntVar(&cfg.PruneIntervalHours, "prune-interval-hours", cfg.PruneIntervalHours, "hours between prune passes")
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, `Usage: portunus-gate [global flags] <command> [command flags]

Commands:
  auth      authenticate one request
  serve     authenticate JSON requests read line by line from stdin
  register  record an access event
  list      list access events
  remove    delete an access event by id
  prune     delete access events past retention

Global flags:
%s`, fs.FlagUsages())
}
