package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/config"
	dbpkg "github.com/BrandonDHaskell/Portunus/gatehouse/internal/db"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/residents"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store/memory"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store/mongodb"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
)

// backend is the set of stores selected by GATEHOUSE_STORE.
type backend struct {
	requests    store.RequestStore
	audit       store.AuditStore
	heartbeats  store.HeartbeatStore
	checkpoints store.CheckpointStore
	closers     []func(context.Context) error
}

func (b *backend) Close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func openBackend(ctx context.Context, cfg config.Config, log logger.Logger) (*backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store; nothing survives a restart")
		return &backend{
			requests:    memory.NewRequestStore(),
			audit:       memory.NewAuditStore(),
			heartbeats:  memory.New(),
			checkpoints: memory.NewCheckpointStore(cfg.KnownCheckpoints),
		}, nil

	case config.StoreSQLite:
		db, err := dbpkg.Open(ctx, dbpkg.Config{Path: cfg.DBPath, Env: cfg.Env})
		if err != nil {
			return nil, err
		}
		if err := dbpkg.SeedDev(ctx, db, dbpkg.SeedDevOptions{KnownCheckpoints: cfg.KnownCheckpoints}); err != nil {
			_ = db.Close()
			return nil, err
		}
		writer := dbpkg.NewWorker(db)
		log.Info("sqlite store ready", "path", cfg.DBPath)
		return &backend{
			requests:    sqlite.NewRequestStore(db, writer),
			audit:       sqlite.NewAuditStore(db, writer),
			heartbeats:  sqlite.NewHeartbeatStore(db, writer),
			checkpoints: sqlite.NewCheckpointStore(db, writer),
			closers: []func(context.Context) error{
				func(context.Context) error { return db.Close() },
				func(context.Context) error { writer.Close(); return nil },
			},
		}, nil

	case config.StoreMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		database := client.Database(cfg.MongoDB)
		requests, err := mongodb.NewRequestStore(ctx, database)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		audit, err := mongodb.NewAuditStore(ctx, database)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info("mongodb store ready", "database", cfg.MongoDB)
		// Heartbeats are liveness data; they stay in process memory.
		return &backend{
			requests:    requests,
			audit:       audit,
			heartbeats:  memory.New(),
			checkpoints: memory.NewCheckpointStore(cfg.KnownCheckpoints),
			closers:     []func(context.Context) error{client.Disconnect},
		}, nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// openDirectory loads the member roll and, when Redis is configured, puts
// the read-through cache in front of it.
func openDirectory(ctx context.Context, cfg config.Config, log logger.Logger) (residents.Directory, func() error, error) {
	var base residents.Directory = residents.NewStatic()
	if cfg.ResidentsFile != "" {
		st, err := residents.LoadStatic(cfg.ResidentsFile)
		if err != nil {
			return nil, nil, err
		}
		base = st
	}

	if cfg.RedisURL == "" {
		return base, func() error { return nil }, nil
	}

	client, err := residents.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn("resident cache disabled", "error", err)
		return base, func() error { return nil }, nil
	}
	return residents.NewRedisCache(client, base, cfg.ResidentCacheTTL, log), client.Close, nil
}
