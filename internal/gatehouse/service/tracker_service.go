package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

// TrackerService moves individual persons of an authorized request through
// not_entered -> entered -> exited, and closes the group out.
type TrackerService struct {
	Deps
}

func NewTrackerService(d Deps) *TrackerService {
	return &TrackerService{Deps: d.withDefaults()}
}

func (s *TrackerService) RegisterEntry(ctx context.Context, requestID string, index int, actor types.Actor) (time.Time, error) {
	actor = normalizeActor(actor)
	if err := s.admit(ctx, "entry", actor); err != nil {
		return time.Time{}, err
	}

	var now time.Time
	before, after, err := transition(ctx, s.Requests, requestID, func(req *types.AccessRequest) error {
		now = s.Now()
		if req.Status != types.StatusAuthorized {
			return ErrRequestNotAuthorized
		}
		p, err := personAt(req, index)
		if err != nil {
			return err
		}
		// Person state first: everyone in a finalized group has exited, so
		// a repeat scan reports what happened to that person.
		if p.EntryState != types.EntryNotEntered {
			return ErrAlreadyEntered
		}
		if req.GroupFinalExit {
			return ErrGroupFinalized
		}
		p.EntryState = types.EntryEntered
		p.EntryAt = &now
		p.EntryCheckpoint = actor.Checkpoint
		p.EnteredBy = actor.ID
		return nil
	})
	if err != nil {
		s.reject("entry", err)
		return time.Time{}, err
	}

	detail := fmt.Sprintf("person %d entered", index)
	if err := s.Audit.record(ctx, types.ActionPersonEntered, actor, after.ID, &before, &after, now, detail); err != nil {
		return now, err
	}
	s.Metrics.Transition(string(types.ActionPersonEntered), string(after.Category))
	s.Log.Info("person entered",
		"request_id", after.ID, "person", index, "checkpoint", actor.Checkpoint, "actor", actor.ID)
	return now, nil
}

// RegisterExit never blocks on the exit deadline.  A late worker exit is
// flagged on the person and reported as a separate late_exit event.
func (s *TrackerService) RegisterExit(ctx context.Context, requestID string, index int, actor types.Actor) (time.Time, error) {
	actor = normalizeActor(actor)
	if err := s.admit(ctx, "exit", actor); err != nil {
		return time.Time{}, err
	}

	var (
		now      time.Time
		deadline *time.Time
	)
	before, after, err := transition(ctx, s.Requests, requestID, func(req *types.AccessRequest) error {
		now = s.Now()
		if req.Status != types.StatusAuthorized {
			return ErrRequestNotAuthorized
		}
		p, err := personAt(req, index)
		if err != nil {
			return err
		}
		switch p.EntryState {
		case types.EntryExited:
			return ErrAlreadyExited
		case types.EntryEntered:
		default:
			return ErrNotYetEntered
		}
		if req.GroupFinalExit {
			return ErrGroupFinalized
		}

		p.EntryState = types.EntryExited
		p.ExitAt = &now
		p.ExitCheckpoint = actor.Checkpoint
		p.ExitedBy = actor.ID
		p.LateExit = false
		deadline = nil
		if p.EntryAt != nil {
			d := s.Policy.EvaluateExitWindow(req.Category, *p.EntryAt, now)
			p.LateExit = d.Late
			deadline = d.Deadline
		}
		return nil
	})
	if err != nil {
		s.reject("exit", err)
		return time.Time{}, err
	}

	detail := fmt.Sprintf("person %d exited", index)
	if err := s.Audit.record(ctx, types.ActionPersonExited, actor, after.ID, &before, &after, now, detail); err != nil {
		return now, err
	}
	s.Metrics.Transition(string(types.ActionPersonExited), string(after.Category))

	if after.Persons[index].LateExit {
		late := fmt.Sprintf("person %d (%s) exited after deadline", index, after.Persons[index].Name)
		if deadline != nil {
			late += " " + deadline.In(s.Policy.Location()).Format("2006-01-02 15:04")
		}
		if err := s.Audit.record(ctx, types.ActionLateExit, actor, after.ID, nil, &after, now, late); err != nil {
			return now, err
		}
		s.Metrics.LateExit()
		s.Log.Warn("late exit", "request_id", after.ID, "person", index, "actor", actor.ID)
	}

	s.Log.Info("person exited",
		"request_id", after.ID, "person", index, "checkpoint", actor.Checkpoint, "actor", actor.ID)
	return now, nil
}

// FinalizeGroup closes an authorized request once every person is out.
// It is always an explicit call.
func (s *TrackerService) FinalizeGroup(ctx context.Context, requestID string, actor types.Actor) (types.AccessRequest, error) {
	actor = normalizeActor(actor)
	if actor.ID == "" {
		return types.AccessRequest{}, fmt.Errorf("%w: actor is required", ErrValidation)
	}

	var now time.Time
	before, after, err := transition(ctx, s.Requests, requestID, func(req *types.AccessRequest) error {
		now = s.Now()
		if req.Status != types.StatusAuthorized {
			return ErrRequestNotAuthorized
		}
		if req.GroupFinalExit {
			return ErrGroupFinalized
		}
		if !req.AllExited() {
			return ErrNotAllExited
		}
		req.GroupFinalExit = true
		req.GroupFinalExitAt = &now
		return nil
	})
	if err != nil {
		s.reject("finalize", err)
		return types.AccessRequest{}, err
	}

	if err := s.Audit.record(ctx, types.ActionGroupFinalized, actor, after.ID, &before, &after, now, ""); err != nil {
		return after, err
	}
	s.Metrics.Transition(string(types.ActionGroupFinalized), string(after.Category))
	s.Log.Info("group finalized", "request_id", after.ID, "actor", actor.ID)
	return after, nil
}

func (s *TrackerService) admit(ctx context.Context, op string, actor types.Actor) error {
	if actor.ID == "" {
		return fmt.Errorf("%w: actor is required", ErrValidation)
	}
	if err := s.Checkpoints.Check(ctx, actor.Checkpoint); err != nil {
		s.reject(op, err)
		if errors.Is(err, ErrUnknownCheckpoint) {
			s.Log.Warn("operation from unknown checkpoint", "operation", op, "checkpoint", actor.Checkpoint)
		}
		return err
	}
	return nil
}
