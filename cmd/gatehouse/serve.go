package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/policy"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/httpapi"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and gRPC health endpoint when configured)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := be.Close(closeCtx); err != nil {
			log.Error("closing store", "error", err)
		}
	}()

	dir, closeDir, err := openDirectory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = closeDir() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	engine := policy.NewEngine(cfg.Location(), cfg.OverrideCode)
	checkpoints := service.NewCheckpointRegistry(be.checkpoints, cfg.EnforceCheckpoints(), log)
	audit := service.NewAuditRecorder(be.audit, cfg.AuditWindow, log.With("component", "audit"))

	deps := service.Deps{
		Requests:    be.requests,
		Policy:      engine,
		Audit:       audit,
		Checkpoints: checkpoints,
		Log:         log.With("component", "access"),
		Metrics:     m,
	}
	tracker := service.NewTrackerService(deps)

	pruner := service.NewHeartbeatPruner(be.heartbeats, service.PrunerConfig{
		RetentionDays: cfg.HeartbeatRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, log.With("component", "pruner"))
	pruner.Start(ctx)
	defer pruner.Stop()

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:           log.With("component", "http"),
		Metrics:          m,
		Gatherer:         reg,
		Addr:             cfg.HTTPAddr,
		Policy:           engine,
		Authorization:    service.NewAuthorizationService(deps),
		Tracker:          tracker,
		QR:               service.NewQRVerifier(deps, tracker),
		History:          service.NewHistoryService(be.requests, dir, log.With("component", "history")),
		Audit:            audit,
		HeartbeatService: service.NewHeartbeatService(be.heartbeats, checkpoints, log.With("component", "heartbeat")),
	})

	var (
		grpcServer *grpc.Server
		healthSrv  *health.Server
	)
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		grpcServer = grpc.NewServer()
		healthSrv = health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthSrv)
		healthSrv.SetServingStatus("gatehouse", healthpb.HealthCheckResponse_SERVING)

		go func() {
			log.Info("grpc health listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				log.Error("grpc server error", "error", err)
				stop()
			}
		}()
	}

	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "store", string(cfg.Store), "timezone", cfg.Timezone)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	if healthSrv != nil {
		healthSrv.Shutdown()
		grpcServer.GracefulStop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
