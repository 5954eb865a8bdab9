package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	Unauthorized
	NotFound
	Validation
	Conflict
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFoundf(format string, args ...any) *Error   { return Newf(NotFound, format, args...) }
func Validationf(format string, args ...any) *Error { return Newf(Validation, format, args...) }
func Conflictf(format string, args ...any) *Error   { return Newf(Conflict, format, args...) }

func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Unauthorized:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Validation:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
