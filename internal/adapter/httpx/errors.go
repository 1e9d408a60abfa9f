package httpx

import "fmt"

// ErrorType represents the category of error that occurred.
type ErrorType int

const (
	ErrTypeAuthentication ErrorType = iota
	ErrTypeServiceUnavailable
	ErrTypeInvalidRequest
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeMalformedResponse
	ErrTypeUnknown
)

// String returns a human-readable description of the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeAuthentication:
		return "authentication error"
	case ErrTypeServiceUnavailable:
		return "service unavailable"
	case ErrTypeInvalidRequest:
		return "invalid request"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeModelNotFound:
		return "model not found"
	case ErrTypeMalformedResponse:
		return "malformed response"
	default:
		return "unknown error"
	}
}

// Error represents an HTTP collaborator error with additional context.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Service    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s (status: %d)", e.Service, e.Type.String(), e.Message, e.StatusCode)
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsConnectivity reports whether the error belongs to the
// connectivity/timeout class, which maps to a distinct process exit code.
func (e *Error) IsConnectivity() bool {
	return e.Type == ErrTypeTimeout || e.Type == ErrTypeServiceUnavailable
}

// NewAuthenticationError creates a new authentication error.
func NewAuthenticationError(service, message string) *Error {
	return &Error{Type: ErrTypeAuthentication, Message: message, StatusCode: 401, Service: service}
}

// NewServiceUnavailableError creates a new service unavailable error.
func NewServiceUnavailableError(service, message string) *Error {
	return &Error{Type: ErrTypeServiceUnavailable, Message: message, StatusCode: 503, Service: service}
}

// NewInvalidRequestError creates a new invalid request error.
func NewInvalidRequestError(service, message string) *Error {
	return &Error{Type: ErrTypeInvalidRequest, Message: message, StatusCode: 400, Service: service}
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(service, message string) *Error {
	return &Error{Type: ErrTypeTimeout, Message: message, Service: service}
}

// NewModelNotFoundError creates a new model not found error.
func NewModelNotFoundError(service, message string) *Error {
	return &Error{Type: ErrTypeModelNotFound, Message: message, StatusCode: 404, Service: service}
}

// NewMalformedResponseError flags a response body that could not be
// trusted: missing, carrying an explicit error field, or lacking the
// expected payload.
func NewMalformedResponseError(service, message string) *Error {
	return &Error{Type: ErrTypeMalformedResponse, Message: message, Service: service}
}
