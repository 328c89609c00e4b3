package service

import (
	"context"
	"errors"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/qrtoken"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrAlreadyDecided       = errors.New("request already decided")
	ErrRequestNotAuthorized = errors.New("request not authorized")
	ErrAlreadyEntered       = errors.New("person already entered")
	ErrAlreadyExited        = errors.New("person already exited")
	ErrNotYetEntered        = errors.New("person has not entered")
	ErrNotAllExited         = errors.New("not every person has exited")
	ErrGroupFinalized       = errors.New("group already finalized")
	ErrPersonNotFound       = errors.New("person not found")
	ErrInvalidOverrideCode  = errors.New("invalid override code")

	ErrInvalidCheckpointID = errors.New("checkpoint_id is required")
	ErrUnknownCheckpoint   = errors.New("unknown checkpoint")

	ErrInvalidToken     = qrtoken.ErrInvalidToken
	ErrRequestNotFound  = store.ErrNotFound
	ErrStoreUnavailable = store.ErrUnavailable
)

// Code maps an error to the stable identifier used in API responses,
// metrics labels and logs.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrAlreadyDecided):
		return "already_decided"
	case errors.Is(err, ErrRequestNotAuthorized):
		return "request_not_authorized"
	case errors.Is(err, ErrAlreadyEntered):
		return "already_entered"
	case errors.Is(err, ErrAlreadyExited):
		return "already_exited"
	case errors.Is(err, ErrNotYetEntered):
		return "not_yet_entered"
	case errors.Is(err, ErrNotAllExited):
		return "not_all_exited"
	case errors.Is(err, ErrGroupFinalized):
		return "group_finalized"
	case errors.Is(err, ErrPersonNotFound):
		return "person_not_found"
	case errors.Is(err, ErrInvalidOverrideCode):
		return "invalid_override_code"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrInvalidCheckpointID):
		return "invalid_checkpoint_id"
	case errors.Is(err, ErrUnknownCheckpoint):
		return "unknown_checkpoint"
	case errors.Is(err, ErrRequestNotFound):
		return "request_not_found"
	case errors.Is(err, store.ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "internal_error"
}

// isInfra reports failures that say nothing about the request itself.
// Batch operations stop on these instead of collecting them.
func isInfra(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, store.ErrConflict) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
