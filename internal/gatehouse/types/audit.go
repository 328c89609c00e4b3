package types

import (
	"encoding/json"
	"time"
)

type AuditAction string

const (
	ActionCreated          AuditAction = "created"
	ActionAuthorized       AuditAction = "authorized"
	ActionDenied           AuditAction = "denied"
	ActionPersonEntered    AuditAction = "person_entered"
	ActionPersonExited     AuditAction = "person_exited"
	ActionGroupFinalized   AuditAction = "group_finalized"
	ActionQRVerified       AuditAction = "qr_verified"
	ActionLateExit         AuditAction = "late_exit"
	ActionQRRejected       AuditAction = "qr_rejected"
	ActionOverrideRejected AuditAction = "override_rejected"
)

// AuditModule tags every event written by the access subsystem.
const AuditModule = "access"

// AuditEvent is one append-only audit row.  Before/After hold JSON
// snapshots of the request so auditors can diff a transition.
type AuditEvent struct {
	ID         string          `json:"id" bson:"_id"`
	Seq        int64           `json:"seq" bson:"seq"`
	Module     string          `json:"module" bson:"module"`
	RequestID  string          `json:"request_id,omitempty" bson:"requestId,omitempty"`
	ActorID    string          `json:"actor_id" bson:"actorId"`
	Checkpoint string          `json:"checkpoint,omitempty" bson:"checkpoint,omitempty"`
	Action     AuditAction     `json:"action" bson:"action"`
	Timestamp  time.Time       `json:"timestamp" bson:"timestamp"`
	Before     json.RawMessage `json:"before,omitempty" bson:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty" bson:"after,omitempty"`
	Detail     string          `json:"detail,omitempty" bson:"detail,omitempty"`
}
