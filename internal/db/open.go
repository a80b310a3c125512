package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const defaultPath = "./data/portunus-gate.db"

type Config struct {
	Path string // e.g. "./data/portunus-gate.db"
	Env  string // "dev" | "prod"

	// OnCreate runs after migrations when Open created the file.  It never
	// runs for an existing database, however empty.
	OnCreate func(ctx context.Context, db *sql.DB) error
}

// Open opens (creating if needed) the SQLite event database at cfg.Path and
// applies pending migrations.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		cfg.Path = defaultPath
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	_, statErr := os.Stat(cfg.Path)
	created := errors.Is(statErr, fs.ErrNotExist)

	conn, err := openDSN(ctx, fileDSN(cfg.Path))
	if err != nil {
		return nil, err
	}
	if created && cfg.OnCreate != nil {
		if err := cfg.OnCreate(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("db on-create: %w", err)
		}
	}
	return conn, nil
}

// OpenMemory opens a private in-memory database with the production schema.
// name must be unique per database the process wants to keep apart.
func OpenMemory(ctx context.Context, name string) (*sql.DB, error) {
	return openDSN(ctx, fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", name, pragmas))
}

// Per-connection PRAGMAs for modernc.org/sqlite:
// - WAL so readers don't block on the writer
// - synchronous NORMAL, durable enough for an access log
// - busy_timeout to ride out SQLITE_BUSY
const pragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

func fileDSN(path string) string {
	return fmt.Sprintf("file:%s?%s", path, pragmas)
}

func openDSN(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	// All writes go through Worker; one connection keeps SQLite happy.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
