package manager

import (
	"errors"
	"fmt"
)

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct {
	modelID string
	cause   error
}

func (e tooBusyError) Error() string {
	if e.cause != nil {
		return "too busy: " + e.modelID + ": " + e.cause.Error()
	}
	return "too busy: " + e.modelID
}

func (e tooBusyError) Unwrap() error { return e.cause }

// ErrTooBusy reports backpressure on modelID.
func ErrTooBusy(modelID string) error { return tooBusyError{modelID: modelID} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound returns an error when a requested model id is not present in the registry.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a missing external dependency (the
// engine build, the snapshot store) so the HTTP layer can return 503.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}

// budgetExceededError means no idle instance could be evicted to make room.
type budgetExceededError struct {
	requiredMB, usedMB, budgetMB int
}

func (e budgetExceededError) Error() string {
	return fmt.Sprintf("vram budget exceeded: need %dMB, using %dMB of %dMB", e.requiredMB, e.usedMB, e.budgetMB)
}

// IsBudgetExceeded reports whether a load was refused for lack of budget.
func IsBudgetExceeded(err error) bool {
	var e budgetExceededError
	return errors.As(err, &e)
}

// loadError records a failed engine load for a model.
type loadError struct {
	modelID string
	err     error
}

func (e loadError) Error() string { return "load " + e.modelID + ": " + e.err.Error() }
func (e loadError) Unwrap() error { return e.err }

// notLoadedError is returned by session operations on a model that is in the
// registry but has no instance.
type notLoadedError struct{ id string }

func (e notLoadedError) Error() string   { return "model not loaded: " + e.id }
func (e notLoadedError) StatusCode() int { return 409 }

// IsNotLoaded reports whether err names a model without a live instance.
func IsNotLoaded(err error) bool {
	var e notLoadedError
	return errors.As(err, &e)
}

// invalidRequestError rejects a malformed inference request.
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string   { return e.msg }
func (e invalidRequestError) StatusCode() int { return 400 }

// IsInvalidRequest reports whether err rejects the request itself.
func IsInvalidRequest(err error) bool {
	var e invalidRequestError
	return errors.As(err, &e)
}
