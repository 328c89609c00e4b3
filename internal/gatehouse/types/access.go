package types

import "time"

type Category string

const (
	CategoryVisitor  Category = "visitor"
	CategoryWorker   Category = "worker"
	CategorySupplier Category = "supplier"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryVisitor, CategoryWorker, CategorySupplier:
		return true
	}
	return false
}

type AccessMode string

const (
	AccessModePedestrian AccessMode = "pedestrian"
	AccessModeVehicular  AccessMode = "vehicular"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusDenied     Status = "denied"
)

type EntryState string

const (
	EntryNotEntered EntryState = "not_entered"
	EntryEntered    EntryState = "entered"
	EntryExited     EntryState = "exited"
)

// Person is one named individual inside a request.  Its position in
// AccessRequest.Persons is its identity for checkpoint operations.
type Person struct {
	Name       string `json:"name" bson:"name"`
	DocumentID string `json:"document_id,omitempty" bson:"documentId,omitempty"`
	Minor      bool   `json:"minor,omitempty" bson:"minor,omitempty"`

	EntryState      EntryState `json:"entry_state" bson:"entryState"`
	EntryAt         *time.Time `json:"entry_at,omitempty" bson:"entryAt,omitempty"`
	ExitAt          *time.Time `json:"exit_at,omitempty" bson:"exitAt,omitempty"`
	EntryCheckpoint string     `json:"entry_checkpoint,omitempty" bson:"entryCheckpoint,omitempty"`
	ExitCheckpoint  string     `json:"exit_checkpoint,omitempty" bson:"exitCheckpoint,omitempty"`
	EnteredBy       string     `json:"entered_by,omitempty" bson:"enteredBy,omitempty"`
	ExitedBy        string     `json:"exited_by,omitempty" bson:"exitedBy,omitempty"`
	LateExit        bool       `json:"late_exit,omitempty" bson:"lateExit,omitempty"`
}

type AccessRequest struct {
	ID                 string     `json:"id" bson:"_id"`
	Category           Category   `json:"category" bson:"category"`
	AccessMode         AccessMode `json:"access_mode" bson:"accessMode"`
	Plate              string     `json:"plate,omitempty" bson:"plate,omitempty"`
	ResidentID         string     `json:"resident_id" bson:"residentId"`
	DestinationAddress string     `json:"destination_address" bson:"destinationAddress"`
	Persons            []Person   `json:"persons" bson:"persons"`
	MinorsCount        int        `json:"minors_count" bson:"minorsCount"`

	Status       Status     `json:"status" bson:"status"`
	AuthorizedBy string     `json:"authorized_by,omitempty" bson:"authorizedBy,omitempty"`
	AuthorizedAt *time.Time `json:"authorized_at,omitempty" bson:"authorizedAt,omitempty"`
	DeniedBy     string     `json:"denied_by,omitempty" bson:"deniedBy,omitempty"`
	DeniedAt     *time.Time `json:"denied_at,omitempty" bson:"deniedAt,omitempty"`
	DenialReason string     `json:"denial_reason,omitempty" bson:"denialReason,omitempty"`

	// RequiresOverride is informational: the policy verdict at filing time.
	RequiresOverride bool `json:"requires_override,omitempty" bson:"requiresOverride,omitempty"`
	OverrideUsed     bool `json:"override_used,omitempty" bson:"overrideUsed,omitempty"`

	CreatedBy        string     `json:"created_by,omitempty" bson:"createdBy,omitempty"`
	CreatedAt        time.Time  `json:"created_at" bson:"createdAt"`
	GroupFinalExit   bool       `json:"group_final_exit" bson:"groupFinalExit"`
	GroupFinalExitAt *time.Time `json:"group_final_exit_at,omitempty" bson:"groupFinalExitAt,omitempty"`

	// Version is bumped by every conditional update.
	Version int64 `json:"version" bson:"version"`
}

// Clone returns a deep copy so callers never share the Persons slice or
// timestamp pointers with a store.
func (r AccessRequest) Clone() AccessRequest {
	out := r
	out.AuthorizedAt = cloneTime(r.AuthorizedAt)
	out.DeniedAt = cloneTime(r.DeniedAt)
	out.GroupFinalExitAt = cloneTime(r.GroupFinalExitAt)
	if r.Persons != nil {
		out.Persons = make([]Person, len(r.Persons))
		for i, p := range r.Persons {
			p.EntryAt = cloneTime(p.EntryAt)
			p.ExitAt = cloneTime(p.ExitAt)
			out.Persons[i] = p
		}
	}
	return out
}

// AllExited reports whether every listed person has passed back out.
func (r AccessRequest) AllExited() bool {
	if len(r.Persons) == 0 {
		return false
	}
	for _, p := range r.Persons {
		if p.EntryState != EntryExited {
			return false
		}
	}
	return true
}

// Active is an authorized request that has not been closed out.
func (r AccessRequest) Active() bool {
	return r.Status == StatusAuthorized && !r.GroupFinalExit
}

// Actor identifies who performed an operation and, for checkpoint
// operations, at which station.
type Actor struct {
	ID         string `json:"actor_id"`
	Checkpoint string `json:"checkpoint,omitempty"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
