package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates an entity lookup failed.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// ErrValidation indicates a structurally invalid or incomplete field set.
type ErrValidation struct {
	Reason string
}

func (e ErrValidation) Error() string {
	return "validation failed: " + e.Reason
}

// ErrInvalidRange indicates an end date precedes its start date, or a
// numeric bound is out of range.
type ErrInvalidRange struct {
	Field  string
	Reason string
}

func (e ErrInvalidRange) Error() string {
	return fmt.Sprintf("invalid range for %s: %s", e.Field, e.Reason)
}

// ErrCapacityExceeded indicates an equipment already has the maximum number
// of concurrently active users.
type ErrCapacityExceeded struct {
	Entity   EntityType
	ID       string
	Capacity int
}

func (e ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("%s %q is at capacity (%d active users)", e.Entity, e.ID, e.Capacity)
}

// ErrConstraint indicates a relational or uniqueness constraint was violated,
// such as a duplicate link row or a self-referential mentorship.
type ErrConstraint struct {
	Constraint string
	Reason     string
}

func (e ErrConstraint) Error() string {
	return fmt.Sprintf("constraint %s violated: %s", e.Constraint, e.Reason)
}

// ErrStorageUnavailable wraps failures reaching or mutating the backing store.
type ErrStorageUnavailable struct {
	Op  string
	Err error
}

func (e ErrStorageUnavailable) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying driver error.
func (e ErrStorageUnavailable) Unwrap() error { return e.Err }

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	var target ErrNotFound
	return errors.As(err, &target)
}

// IsValidation reports whether err is an ErrValidation.
func IsValidation(err error) bool {
	var target ErrValidation
	return errors.As(err, &target)
}

// IsInvalidRange reports whether err is an ErrInvalidRange.
func IsInvalidRange(err error) bool {
	var target ErrInvalidRange
	return errors.As(err, &target)
}

// IsCapacityExceeded reports whether err is an ErrCapacityExceeded.
func IsCapacityExceeded(err error) bool {
	var target ErrCapacityExceeded
	return errors.As(err, &target)
}

// IsConstraint reports whether err is an ErrConstraint.
func IsConstraint(err error) bool {
	var target ErrConstraint
	return errors.As(err, &target)
}

// IsStorageUnavailable reports whether err is an ErrStorageUnavailable.
func IsStorageUnavailable(err error) bool {
	var target ErrStorageUnavailable
	return errors.As(err, &target)
}
