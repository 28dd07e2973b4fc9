package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrReportNotFound    = errors.New("report not found")
	ErrWorkerNotFound    = errors.New("worker not found")
	ErrWorkerExists      = errors.New("worker already registered")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrReportConflict    = errors.New("report was modified concurrently")
	ErrWorkerUnavailable = errors.New("worker is not available for assignment")
	ErrNotAssignedWorker = errors.New("report is not assigned to this worker")
	ErrNotVerified       = errors.New("report has no successful completion verification")
	ErrUpstream          = errors.New("upstream service unavailable")
)

// ValidationError is returned before any remote call when input is incomplete.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// OrNil returns nil when no field failed.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}
