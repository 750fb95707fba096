package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures the listing/lifecycle engine reports.
type ErrorKind string

const (
	KindValidation          ErrorKind = "ValidationError"
	KindIllegalTransition   ErrorKind = "IllegalTransition"
	KindNotFound            ErrorKind = "NotFound"
	KindConflict            ErrorKind = "Conflict"
	KindStorageWriteFailed  ErrorKind = "StorageWriteFailed"
	KindOrphanCleanupFailed ErrorKind = "OrphanCleanupFailed"
	KindConfiguration       ErrorKind = "ConfigurationError"
	KindInternal            ErrorKind = "Internal"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// IllegalTransitionError is returned when the requested workflow state is not
// reachable from the current one. The row is left unmodified.
type IllegalTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e IllegalTransitionError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("cannot move from %q to %q", e.From, e.To)
	}
	return fmt.Sprintf("%s cannot move from %q to %q", e.Entity, e.From, e.To)
}

// StorageWriteError aborts the whole operation; nothing referencing the file is committed.
type StorageWriteError struct {
	Name string
	Err  error
}

func (e StorageWriteError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("storage write failed: %v", e.Err)
	}
	return fmt.Sprintf("storage write failed for %s: %v", e.Name, e.Err)
}

func (e StorageWriteError) Unwrap() error { return e.Err }

// OrphanCleanupError is non-fatal; it is logged and never returned to callers
// of a mutating operation.
type OrphanCleanupError struct {
	Name string
	Err  error
}

func (e OrphanCleanupError) Error() string {
	return fmt.Sprintf("orphan cleanup failed for %s: %v", e.Name, e.Err)
}

func (e OrphanCleanupError) Unwrap() error { return e.Err }

// ConfigurationError signals a programmer error in an entity or filter
// declaration. It surfaces at construction time.
type ConfigurationError struct {
	Component string
	Msg       string
}

func (e ConfigurationError) Error() string {
	if e.Component == "" {
		return "configuration error: " + e.Msg
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Msg)
}

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

func IsIllegalTransition(err error) bool {
	var target IllegalTransitionError
	return errors.As(err, &target)
}

func IsStorageWrite(err error) bool {
	var target StorageWriteError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target ConfigurationError
	return errors.As(err, &target)
}

// KindOf maps err onto the error taxonomy. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	var orphan OrphanCleanupError
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return KindValidation
	case IsIllegalTransition(err):
		return KindIllegalTransition
	case IsNotFound(err):
		return KindNotFound
	case IsConflict(err):
		return KindConflict
	case IsStorageWrite(err):
		return KindStorageWriteFailed
	case errors.As(err, &orphan):
		return KindOrphanCleanupFailed
	case IsConfiguration(err):
		return KindConfiguration
	default:
		return KindInternal
	}
}
