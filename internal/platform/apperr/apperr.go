// Package apperr defines the domain error taxonomy shared by every
// service: validation, permission, not-found and conflict. Repositories
// translate store-level constraint violations into these kinds; anything
// else propagates unwrapped as a fatal store error.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation.
type Kind int

const (
	// Validation marks a business-rule violation: duplicate line item,
	// non-positive payment, re-issuing an invoice, editing a non-draft
	// result, a discount percentage outside [0,100].
	Validation Kind = iota + 1
	// Permission marks an actor whose role does not allow the attempted
	// workflow transition.
	Permission
	// NotFound marks a reference to an order, item, contract or parameter
	// that does not exist.
	NotFound
	// Conflict marks a concurrent-mutation or sequence race surfaced by
	// the store as a unique-constraint violation.
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Permission:
		return "permission"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	}
	return "unknown"
}

// Error is a classified domain error. Field is optional and names the
// request field the reason applies to, so callers can render field-level
// messages.
type Error struct {
	Kind   Kind
	Field  string
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.cause }

// Validationf builds a Validation error for a specific field.
func Validationf(field, format string, args ...interface{}) *Error {
	return &Error{Kind: Validation, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Permissionf builds a Permission error.
func Permissionf(format string, args ...interface{}) *Error {
	return &Error{Kind: Permission, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: NotFound, Reason: fmt.Sprintf(format, args...)}
}

// Conflictf builds a Conflict error, keeping the store error as cause.
func Conflictf(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: Conflict, Reason: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf returns the Kind of err, or 0 when err carries no domain kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsValidation reports whether err is a Validation error.
func IsValidation(err error) bool { return KindOf(err) == Validation }

// IsPermission reports whether err is a Permission error.
func IsPermission(err error) bool { return KindOf(err) == Permission }

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return KindOf(err) == NotFound }

// IsConflict reports whether err is a Conflict error.
func IsConflict(err error) bool { return KindOf(err) == Conflict }
