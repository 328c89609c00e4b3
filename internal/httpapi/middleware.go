package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(log logger.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now().UTC()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		dur := time.Since(start)

		// ServeMux fills in Pattern on the way through.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		if m != nil {
			m.HTTPLatency.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Observe(dur.Seconds())
		}
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"from", r.RemoteAddr,
			"actor", r.Header.Get(headerActor),
			"checkpoint", r.Header.Get(headerCheckpoint),
			"dur", dur.String())
	})
}
