package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/policy"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/service"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/metrics"
)

const (
	headerActor      = "X-Actor-ID"
	headerCheckpoint = "X-Checkpoint-ID"
)

type Dependencies struct {
	Logger  logger.Logger
	Metrics *metrics.Metrics
	// Gatherer backs GET /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer
	Addr     string

	Policy           *policy.Engine
	Authorization    *service.AuthorizationService
	Tracker          *service.TrackerService
	QR               *service.QRVerifier
	History          *service.HistoryService
	Audit            *service.AuditRecorder
	HeartbeatService *service.HeartbeatService
}

type Server struct {
	httpServer *http.Server
	logger     logger.Logger
	mux        *http.ServeMux

	policy           *policy.Engine
	authorization    *service.AuthorizationService
	tracker          *service.TrackerService
	qr               *service.QRVerifier
	history          *service.HistoryService
	audit            *service.AuditRecorder
	heartbeatService *service.HeartbeatService
}

func NewServer(d Dependencies) *Server {
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		logger:           d.Logger,
		mux:              mux,
		policy:           d.Policy,
		authorization:    d.Authorization,
		tracker:          d.Tracker,
		qr:               d.QR,
		history:          d.History,
		audit:            d.Audit,
		heartbeatService: d.HeartbeatService,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/heartbeat", s.handleHeartbeat)

	mux.HandleFunc("POST /v1/requests", s.handleCreate)
	mux.HandleFunc("GET /v1/requests", s.handleList)
	mux.HandleFunc("GET /v1/requests/export.csv", s.handleExport)
	mux.HandleFunc("GET /v1/requests/{id}", s.handleGet)
	mux.HandleFunc("GET /v1/requests/{id}/evaluate", s.handleEvaluateRequest)
	mux.HandleFunc("GET /v1/requests/{id}/qr", s.handleIssueQR)
	mux.HandleFunc("POST /v1/requests/{id}/authorize", s.handleAuthorize)
	mux.HandleFunc("POST /v1/requests/{id}/deny", s.handleDeny)
	mux.HandleFunc("POST /v1/requests/{id}/persons/{index}/entry", s.handleEntry)
	mux.HandleFunc("POST /v1/requests/{id}/persons/{index}/exit", s.handleExit)
	mux.HandleFunc("POST /v1/requests/{id}/finalize", s.handleFinalize)
	mux.HandleFunc("POST /v1/requests/{id}/enter", s.handleSelectAndEnter)

	mux.HandleFunc("POST /v1/qr/verify", s.handleVerifyQR)
	mux.HandleFunc("GET /v1/audit", s.handleAudit)
	mux.HandleFunc("GET /v1/policy/evaluate", s.handleEvaluatePolicy)

	if d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	handler := loggingMiddleware(d.Logger, d.Metrics, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func actorFrom(r *http.Request) types.Actor {
	return types.Actor{
		ID:         strings.TrimSpace(r.Header.Get(headerActor)),
		Checkpoint: strings.TrimSpace(r.Header.Get(headerCheckpoint)),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req types.HeartbeatRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.heartbeatService.Record(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCheckpointID) {
			writeError(w, http.StatusBadRequest, "invalid_checkpoint_id", err.Error())
			return
		}
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
