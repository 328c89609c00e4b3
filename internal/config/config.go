package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreSQLite StoreKind = "sqlite"
	StoreMongo  StoreKind = "mongo"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the health endpoint

	Env   string // "dev" | "prod"
	Store StoreKind

	// SQLite
	DBPath string

	// MongoDB
	MongoURI string
	MongoDB  string

	// Resident directory
	ResidentsFile    string
	RedisURL         string // empty disables the cache
	ResidentCacheTTL time.Duration

	// Policy
	Timezone     string
	OverrideCode string // empty disables overrides

	AuditWindow int

	// KnownCheckpoints, when set, is the only set of stations allowed to
	// register entries, exits and QR scans.
	KnownCheckpoints []string

	// Heartbeat retention
	HeartbeatRetentionDays int // 0 = keep forever
	PruneIntervalHours     int // how often the pruner runs (default 6)
}

// FromEnv reads GATEHOUSE_* variables, after loading a .env file from the
// working directory if one exists.
func FromEnv() Config {
	_ = godotenv.Load()

	env := strings.ToLower(getenvDefault("GATEHOUSE_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	return Config{
		HTTPAddr: getenvDefault("GATEHOUSE_HTTP_ADDR", ":8080"),
		GRPCAddr: strings.TrimSpace(os.Getenv("GATEHOUSE_GRPC_ADDR")),
		Env:      env,
		Store:    StoreKind(strings.ToLower(getenvDefault("GATEHOUSE_STORE", string(StoreSQLite)))),

		DBPath: getenvDefault("GATEHOUSE_DB_PATH", "./data/gatehouse.db"),

		MongoURI: getenvDefault("GATEHOUSE_MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getenvDefault("GATEHOUSE_MONGO_DB", "gatehouse"),

		ResidentsFile:    strings.TrimSpace(os.Getenv("GATEHOUSE_RESIDENTS_FILE")),
		RedisURL:         strings.TrimSpace(os.Getenv("GATEHOUSE_REDIS_URL")),
		ResidentCacheTTL: time.Duration(getenvInt("GATEHOUSE_RESIDENT_CACHE_TTL_SECONDS", 600)) * time.Second,

		Timezone:     getenvDefault("GATEHOUSE_TIMEZONE", "UTC"),
		OverrideCode: os.Getenv("GATEHOUSE_OVERRIDE_CODE"),

		AuditWindow: getenvInt("GATEHOUSE_AUDIT_WINDOW", 1000),

		KnownCheckpoints: splitCSV(os.Getenv("GATEHOUSE_KNOWN_CHECKPOINTS")),

		HeartbeatRetentionDays: getenvInt("GATEHOUSE_HEARTBEAT_RETENTION_DAYS", 30),
		PruneIntervalHours:     getenvInt("GATEHOUSE_PRUNE_INTERVAL_HOURS", 6),
	}
}

// Validate catches settings that would only fail later at first use.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory, StoreSQLite, StoreMongo:
	default:
		errs = append(errs, fmt.Errorf("GATEHOUSE_STORE: unknown store %q", c.Store))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("GATEHOUSE_TIMEZONE: %w", err))
	}
	if c.Env == "prod" && strings.TrimSpace(c.OverrideCode) == "" {
		errs = append(errs, errors.New("GATEHOUSE_OVERRIDE_CODE is required in prod"))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EnforceCheckpoints reports whether unknown stations are refused.
func (c Config) EnforceCheckpoints() bool {
	return len(c.KnownCheckpoints) > 0
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
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
