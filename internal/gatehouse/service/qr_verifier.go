package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/qrtoken"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

// Verification is what a checkpoint shows after a scan: the live request
// and which of its persons may still enter.
type Verification struct {
	Request types.AccessRequest `json:"request"`
	// Eligible lists persons that have not entered yet.
	Eligible []int `json:"eligible"`
	// Suggested is the subset of Eligible the pass was printed for.
	Suggested []int `json:"suggested,omitempty"`
}

type PersonResult struct {
	Index     int        `json:"index"`
	EnteredAt *time.Time `json:"entered_at,omitempty"`
	Error     string     `json:"error,omitempty"`
	Err       error      `json:"-"`
}

// BatchResult reports each selected person separately.  One person
// failing does not stop the others.
type BatchResult struct {
	RequestID string         `json:"request_id"`
	Results   []PersonResult `json:"results"`
}

func (b BatchResult) Entered() int {
	n := 0
	for _, r := range b.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// QRVerifier handles gate passes.  A token only names a request; names,
// documents and status always come from the live record.
type QRVerifier struct {
	Deps
	tracker *TrackerService
}

func NewQRVerifier(d Deps, tracker *TrackerService) *QRVerifier {
	return &QRVerifier{Deps: d.withDefaults(), tracker: tracker}
}

// Issue builds the token printed on the pass of an authorized request.
func (v *QRVerifier) Issue(ctx context.Context, requestID string) (string, error) {
	req, err := v.Requests.GetByID(ctx, strings.TrimSpace(requestID))
	if err != nil {
		return "", err
	}
	if req.Status != types.StatusAuthorized {
		return "", ErrRequestNotAuthorized
	}
	persons := make([]int, len(req.Persons))
	for i := range req.Persons {
		persons[i] = i
	}
	return qrtoken.Encode(qrtoken.Token{
		RequestID: req.ID,
		Persons:   persons,
		IssuedAt:  v.Now(),
	}), nil
}

func (v *QRVerifier) DecodeAndVerify(ctx context.Context, raw string, actor types.Actor) (Verification, error) {
	actor = normalizeActor(actor)
	if actor.ID == "" {
		return Verification{}, fmt.Errorf("%w: actor is required", ErrValidation)
	}
	if err := v.Checkpoints.Check(ctx, actor.Checkpoint); err != nil {
		v.reject("qr_verify", err)
		return Verification{}, err
	}

	now := v.Now()
	tok, err := qrtoken.Decode(raw)
	if err != nil {
		return Verification{}, v.rejectScan(ctx, actor, "", now, "invalid", err)
	}

	req, err := v.Requests.GetByID(ctx, tok.RequestID)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return Verification{}, v.rejectScan(ctx, actor, tok.RequestID, now, "not_found", err)
		}
		v.reject("qr_verify", err)
		return Verification{}, err
	}
	if req.Status != types.StatusAuthorized {
		return Verification{}, v.rejectScan(ctx, actor, req.ID, now, "not_authorized", ErrRequestNotAuthorized)
	}

	out := Verification{Request: req, Eligible: []int{}}
	if !req.GroupFinalExit {
		for i, p := range req.Persons {
			if p.EntryState == types.EntryNotEntered {
				out.Eligible = append(out.Eligible, i)
			}
		}
	}
	for _, i := range tok.Persons {
		if slices.Contains(out.Eligible, i) && !slices.Contains(out.Suggested, i) {
			out.Suggested = append(out.Suggested, i)
		}
	}

	detail := fmt.Sprintf("%d of %d persons eligible", len(out.Eligible), len(req.Persons))
	if err := v.Audit.record(ctx, types.ActionQRVerified, actor, req.ID, nil, nil, now, detail); err != nil {
		return Verification{}, err
	}
	v.Metrics.QRScan("verified")
	return out, nil
}

// SelectAndEnter registers entry for each selected person.  Per-person
// refusals are collected; infrastructure failures stop the batch and are
// returned with the results gathered so far.
func (v *QRVerifier) SelectAndEnter(ctx context.Context, requestID string, indexes []int, actor types.Actor) (BatchResult, error) {
	actor = normalizeActor(actor)
	requestID = strings.TrimSpace(requestID)
	out := BatchResult{RequestID: requestID, Results: []PersonResult{}}

	if actor.ID == "" {
		return out, fmt.Errorf("%w: actor is required", ErrValidation)
	}
	if len(indexes) == 0 {
		return out, fmt.Errorf("%w: no persons selected", ErrValidation)
	}
	if err := v.Checkpoints.Check(ctx, actor.Checkpoint); err != nil {
		v.reject("qr_enter", err)
		return out, err
	}

	req, err := v.Requests.GetByID(ctx, requestID)
	if err != nil {
		v.reject("qr_enter", err)
		return out, err
	}
	if req.Status != types.StatusAuthorized {
		return out, v.rejectScan(ctx, actor, req.ID, v.Now(), "not_authorized", ErrRequestNotAuthorized)
	}

	seen := make(map[int]struct{}, len(indexes))
	for _, idx := range indexes {
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}

		at, err := v.tracker.RegisterEntry(ctx, req.ID, idx, actor)
		if err != nil {
			if isInfra(err) || errors.Is(err, ErrRequestNotAuthorized) {
				return out, err
			}
			out.Results = append(out.Results, PersonResult{Index: idx, Error: Code(err), Err: err})
			continue
		}
		out.Results = append(out.Results, PersonResult{Index: idx, EnteredAt: &at})
	}
	return out, nil
}

func (v *QRVerifier) rejectScan(ctx context.Context, actor types.Actor, requestID string, at time.Time, outcome string, cause error) error {
	v.Metrics.QRScan(outcome)
	v.reject("qr_verify", cause)
	v.Log.Warn("qr token rejected",
		"request_id", requestID, "outcome", outcome, "checkpoint", actor.Checkpoint, "actor", actor.ID)

	if err := v.Audit.record(ctx, types.ActionQRRejected, actor, requestID, nil, nil, at, outcome+": "+cause.Error()); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
