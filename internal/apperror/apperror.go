// Package apperror defines the error taxonomy shared by all services.
// The transport layer maps kinds to HTTP status codes; the services
// themselves never see status codes.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"
	KindConflict   Kind = "CONFLICT"
	KindValidation Kind = "VALIDATION_ERROR"
	KindInternal   Kind = "INTERNAL_ERROR"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NotFound reports a missing resource by its identifier.
func NotFound(resource, identifier string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s '%s' not found", resource, identifier)}
}

// NotFoundf reports a missing resource with a free-form message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, unwrapping as needed.
// Anything that is not an *Error counts as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
