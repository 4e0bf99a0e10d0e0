// Package apperr is the error taxonomy shared by handlers and middleware.
// Each Kind maps onto one HTTP status; handlers translate at the boundary.
package apperr

import (
	"errors"
	"net/http"
)

// Messages shared by every package that answers on behalf of the user.
const (
	MsgNotAuthenticated = "No estás autenticado. Por favor, inicia sesión para obtener acceso."
	MsgUserGone         = "El usuario al que pertenece este token ya no existe."
	MsgGeneric          = "Algo salió mal. Inténtalo de nuevo más tarde."
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindAuthentication:
		return "AuthenticationError"
	case KindAuthorization:
		return "AuthorizationError"
	case KindNotFound:
		return "NotFoundError"
	case KindUpstream:
		return "UpstreamError"
	default:
		return "InternalError"
	}
}

type Error struct {
	Kind    Kind
	Message string // user-visible
	Err     error  // cause, only exposed in development
	status  int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status is the HTTP status for the error.
func (e *Error) Status() int {
	if e.status != 0 {
		return e.status
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WithStatus overrides the status derived from the kind.
func (e *Error) WithStatus(code int) *Error {
	e.status = code
	return e
}

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }
func Unauthenticated(msg string) *Error { return &Error{Kind: KindAuthentication, Message: msg} }
func Forbidden(msg string) *Error { return &Error{Kind: KindAuthorization, Message: msg} }
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// From returns err as *Error, wrapping anything else as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(MsgGeneric, err)
}
