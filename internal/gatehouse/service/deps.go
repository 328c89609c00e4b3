package service

import (
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/policy"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/logger"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/metrics"
)

// Deps bundles the collaborators shared by the access services.
type Deps struct {
	Requests store.RequestStore
	Policy   *policy.Engine
	Audit    *AuditRecorder

	// Checkpoints, when set, rejects checkpoint operations from stations
	// that are not commissioned.
	Checkpoints *CheckpointRegistry

	Log     logger.Logger
	Metrics *metrics.Metrics

	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Policy == nil {
		d.Policy = policy.NewEngine(time.UTC, "")
	}
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// reject records a typed refusal or an infrastructure failure.
func (d Deps) reject(op string, err error) {
	code := Code(err)
	if isInfra(err) && code != "request_not_found" {
		d.Metrics.StoreError(op)
		d.Log.Error("store failure", "operation", op, "error", err)
		return
	}
	d.Metrics.Rejection(op, code)
}
