package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRequest marks malformed lookup input. Never retried.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrStore marks a backing-store failure.
	ErrStore = errors.New("cache store error")
	// ErrProviderUnavailable is returned when every configured provider failed.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrPartialWarmFailure marks a warming run where some routes failed.
	ErrPartialWarmFailure = errors.New("partial warm failure")
	// ErrEntryNotFound is returned by stores when no entry exists for a key.
	ErrEntryNotFound = errors.New("cache entry not found")
	// ErrMaintenanceInProgress is returned when a maintenance run is already active.
	ErrMaintenanceInProgress = errors.New("maintenance already in progress")
)

// InvalidRequestf builds an ErrInvalidRequest with a reason.
func InvalidRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// StoreError wraps an underlying store failure with the operation that failed.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err for op. A nil err yields nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("cache store %s: %v", e.Op, e.Err)
}

// Unwrap exposes the cause.
func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStore) match any StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// ProviderAttempt records one failed provider call.
type ProviderAttempt struct {
	Provider string
	Err      error
}

// ProviderUnavailableError lists every provider attempt made for a request.
type ProviderUnavailableError struct {
	Request  string
	Attempts []ProviderAttempt
}

func (e *ProviderUnavailableError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("provider unavailable for %s: no provider configured", e.Request)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return fmt.Sprintf("provider unavailable for %s: %s", e.Request, strings.Join(parts, "; "))
}

// Is lets errors.Is(err, ErrProviderUnavailable) match.
func (e *ProviderUnavailableError) Is(target error) bool { return target == ErrProviderUnavailable }

// Unwrap exposes the individual attempt errors.
func (e *ProviderUnavailableError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// WarmFailure is one route that could not be warmed.
type WarmFailure struct {
	Request string `json:"request"`
	Error   string `json:"error"`
}

// PartialWarmFailure collects failed routes from a warming run.
type PartialWarmFailure struct {
	Attempted int
	Failures  []WarmFailure
}

func (e *PartialWarmFailure) Error() string {
	return fmt.Sprintf("%d of %d routes failed to warm", len(e.Failures), e.Attempted)
}

// Is lets errors.Is(err, ErrPartialWarmFailure) match.
func (e *PartialWarmFailure) Is(target error) bool { return target == ErrPartialWarmFailure }
