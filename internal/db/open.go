package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultPath = "./data/gatehouse.db"

type Config struct {
	Path string // e.g. "./data/gatehouse.db"
	Env  string // "dev" | "prod"

	// MemoryName, when set, opens a named shared-cache in-memory database
	// instead of Path. The database lives as long as the pool holds its
	// connection.
	MemoryName string

	// BusyTimeout defaults to 5s.
	BusyTimeout time.Duration
}

func (c Config) dsn() string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", c.BusyTimeout.Milliseconds()),
	}
	if c.MemoryName != "" {
		params = append([]string{"mode=memory", "cache=shared"}, params...)
		return "file:" + c.MemoryName + "?" + strings.Join(params, "&")
	}
	return "file:" + c.Path + "?" + strings.Join(params, "&")
}

// Open opens the gatehouse database, applies pending migrations and returns
// a pool limited to a single connection. Writes still go through a Worker.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		cfg.Path = defaultPath
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	if cfg.MemoryName == "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping (%s): %w", cfg.Env, err)
	}

	if err := Migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}
