package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/policy"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

type PersonInput struct {
	Name       string `json:"name"`
	DocumentID string `json:"document_id"`
	Minor      bool   `json:"minor"`
}

func (p PersonInput) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.DocumentID, validation.When(!p.Minor, validation.Required), validation.Length(0, 64)),
	)
}

// CreateInput is what a resident or the desk files for a new request.
type CreateInput struct {
	Category           types.Category   `json:"category"`
	AccessMode         types.AccessMode `json:"access_mode"`
	Plate              string           `json:"plate"`
	ResidentID         string           `json:"resident_id"`
	DestinationAddress string           `json:"destination_address"`
	Persons            []PersonInput    `json:"persons"`
	MinorsCount        int              `json:"minors_count"`
}

func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Category, validation.Required,
			validation.In(types.CategoryVisitor, types.CategoryWorker, types.CategorySupplier)),
		validation.Field(&in.AccessMode, validation.Required,
			validation.In(types.AccessModePedestrian, types.AccessModeVehicular)),
		validation.Field(&in.Plate, validation.When(in.AccessMode == types.AccessModeVehicular, validation.Required)),
		validation.Field(&in.ResidentID, validation.Required),
		validation.Field(&in.Persons, validation.Required),
		validation.Field(&in.MinorsCount, validation.Min(0)),
	)
}

func (in CreateInput) normalized() CreateInput {
	in.Category = types.Category(strings.ToLower(strings.TrimSpace(string(in.Category))))
	in.AccessMode = types.AccessMode(strings.ToLower(strings.TrimSpace(string(in.AccessMode))))
	in.Plate = strings.ToUpper(strings.TrimSpace(in.Plate))
	in.ResidentID = strings.TrimSpace(in.ResidentID)
	in.DestinationAddress = strings.TrimSpace(in.DestinationAddress)

	persons := make([]PersonInput, len(in.Persons))
	for i, p := range in.Persons {
		persons[i] = PersonInput{
			Name:       strings.TrimSpace(p.Name),
			DocumentID: strings.TrimSpace(p.DocumentID),
			Minor:      p.Minor,
		}
	}
	in.Persons = persons
	return in
}

// AuthorizationService owns the pending -> authorized|denied transition.
// Nothing here decides on its own: policy only informs the human actor,
// except for the Sunday worker case that needs an override code.
type AuthorizationService struct {
	Deps
}

func NewAuthorizationService(d Deps) *AuthorizationService {
	return &AuthorizationService{Deps: d.withDefaults()}
}

// Create files a pending request.  It never consults the policy to refuse:
// requests may be filed ahead of their window.
func (s *AuthorizationService) Create(ctx context.Context, in CreateInput, actor types.Actor) (types.AccessRequest, error) {
	in = in.normalized()
	actor = normalizeActor(actor)

	if err := in.Validate(); err != nil {
		s.reject("create", ErrValidation)
		return types.AccessRequest{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	now := s.Now()
	persons := make([]types.Person, len(in.Persons))
	for i, p := range in.Persons {
		persons[i] = types.Person{
			Name:       p.Name,
			DocumentID: p.DocumentID,
			Minor:      p.Minor,
			EntryState: types.EntryNotEntered,
		}
	}

	req := types.AccessRequest{
		ID:                 uuid.NewString(),
		Category:           in.Category,
		AccessMode:         in.AccessMode,
		Plate:              in.Plate,
		ResidentID:         in.ResidentID,
		DestinationAddress: in.DestinationAddress,
		Persons:            persons,
		MinorsCount:        in.MinorsCount,
		Status:             types.StatusPending,
		RequiresOverride:   s.Policy.Evaluate(in.Category, now).RequiresOverride,
		CreatedBy:          actor.ID,
		CreatedAt:          now,
	}
	if in.AccessMode != types.AccessModeVehicular {
		req.Plate = ""
	}

	created, err := s.Requests.Create(ctx, req)
	if err != nil {
		s.reject("create", err)
		return types.AccessRequest{}, err
	}

	if err := s.Audit.record(ctx, types.ActionCreated, actor, created.ID, nil, &created, now, ""); err != nil {
		return created, err
	}
	s.Metrics.Transition(string(types.ActionCreated), string(created.Category))
	s.Log.Info("access request created",
		"request_id", created.ID, "category", string(created.Category),
		"persons", len(created.Persons), "actor", actor.ID)
	return created, nil
}

// Authorize moves a pending request to authorized.  When the policy says
// the category needs an override at this instant, overrideCode must match
// the shared secret.
func (s *AuthorizationService) Authorize(ctx context.Context, requestID string, actor types.Actor, overrideCode string) (types.AccessRequest, error) {
	actor = normalizeActor(actor)
	if actor.ID == "" {
		return types.AccessRequest{}, fmt.Errorf("%w: actor is required", ErrValidation)
	}

	var (
		now      time.Time
		decision policy.Decision
	)
	before, after, err := transition(ctx, s.Requests, requestID, func(req *types.AccessRequest) error {
		now = s.Now()
		if req.Status != types.StatusPending {
			return ErrAlreadyDecided
		}
		decision = s.Policy.Evaluate(req.Category, now)
		if decision.RequiresOverride && !s.Policy.ValidateOverrideCode(overrideCode) {
			return ErrInvalidOverrideCode
		}
		req.Status = types.StatusAuthorized
		req.AuthorizedBy = actor.ID
		req.AuthorizedAt = &now
		req.OverrideUsed = decision.RequiresOverride
		return nil
	})
	if err != nil {
		s.reject("authorize", err)
		if errors.Is(err, ErrInvalidOverrideCode) {
			s.Log.Warn("override code rejected", "request_id", requestID, "actor", actor.ID)
			if aerr := s.Audit.record(ctx, types.ActionOverrideRejected, actor, requestID, nil, nil, now,
				"override code missing or wrong"); aerr != nil {
				return types.AccessRequest{}, aerr
			}
		}
		return types.AccessRequest{}, err
	}

	var detail string
	switch {
	case after.OverrideUsed:
		detail = "override code accepted"
	case !decision.Allowed:
		detail = "authorized outside policy window"
		if decision.Window != "" {
			detail += " " + decision.Window
		}
	}

	if err := s.Audit.record(ctx, types.ActionAuthorized, actor, after.ID, &before, &after, now, detail); err != nil {
		return after, err
	}
	s.Metrics.Transition(string(types.ActionAuthorized), string(after.Category))
	s.Log.Info("access request authorized",
		"request_id", after.ID, "actor", actor.ID, "override", after.OverrideUsed)
	return after, nil
}

// Deny moves a pending request to denied.  A reason is mandatory.
func (s *AuthorizationService) Deny(ctx context.Context, requestID string, actor types.Actor, reason string) (types.AccessRequest, error) {
	actor = normalizeActor(actor)
	reason = strings.TrimSpace(reason)
	if actor.ID == "" {
		return types.AccessRequest{}, fmt.Errorf("%w: actor is required", ErrValidation)
	}
	if reason == "" {
		s.reject("deny", ErrValidation)
		return types.AccessRequest{}, fmt.Errorf("%w: reason is required", ErrValidation)
	}

	var now time.Time
	before, after, err := transition(ctx, s.Requests, requestID, func(req *types.AccessRequest) error {
		now = s.Now()
		if req.Status != types.StatusPending {
			return ErrAlreadyDecided
		}
		req.Status = types.StatusDenied
		req.DeniedBy = actor.ID
		req.DeniedAt = &now
		req.DenialReason = reason
		return nil
	})
	if err != nil {
		s.reject("deny", err)
		return types.AccessRequest{}, err
	}

	if err := s.Audit.record(ctx, types.ActionDenied, actor, after.ID, &before, &after, now, reason); err != nil {
		return after, err
	}
	s.Metrics.Transition(string(types.ActionDenied), string(after.Category))
	s.Log.Info("access request denied", "request_id", after.ID, "actor", actor.ID)
	return after, nil
}

func (s *AuthorizationService) Get(ctx context.Context, requestID string) (types.AccessRequest, error) {
	return s.Requests.GetByID(ctx, strings.TrimSpace(requestID))
}

// Evaluate reports the policy verdict for a stored request right now.  It
// is a hint for the desk and changes nothing.
func (s *AuthorizationService) Evaluate(ctx context.Context, requestID string) (policy.Decision, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return policy.Decision{}, err
	}
	return s.Policy.Evaluate(req.Category, s.Now()), nil
}
