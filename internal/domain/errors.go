package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindResolution     ErrorKind = "resolution"
	KindAuthentication ErrorKind = "authentication"
	KindCapacity       ErrorKind = "capacity"
	KindStorage        ErrorKind = "storage"
	KindNotFound       ErrorKind = "not-found"
	KindUnauthorized   ErrorKind = "unauthorized"
)

// Stable error codes returned to clients.
const (
	CodeInvalidParams        = "INVALID_PARAMS"
	CodeResolutionFailed     = "RESOLUTION_FAILED"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeCapacityExceeded     = "CAPACITY_EXCEEDED"
	CodeStorageError         = "STORAGE_ERROR"
	CodeDuplicateComment     = "DUPLICATE_COMMENT"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInternal             = "INTERNAL"
	CodeParseError           = "PARSE_ERROR"
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeMethodNotFound       = "METHOD_NOT_FOUND"
)

// JSON-RPC error numbers for each stable code.
var rpcCodes = map[string]int{
	CodeParseError:           -32700,
	CodeInvalidRequest:       -32600,
	CodeMethodNotFound:       -32601,
	CodeInvalidParams:        -32602,
	CodeInternal:             -32603,
	CodeResolutionFailed:     -32603,
	CodeStorageError:         -32603,
	CodeAuthenticationFailed: -32001,
	CodeCapacityExceeded:     -32002,
	CodeUnauthorized:         -32003,
	CodeNotFound:             -32004,
	CodeDuplicateComment:     -32005,
}

var defaultCodes = map[ErrorKind]string{
	KindValidation:     CodeInvalidParams,
	KindResolution:     CodeResolutionFailed,
	KindAuthentication: CodeAuthenticationFailed,
	KindCapacity:       CodeCapacityExceeded,
	KindStorage:        CodeStorageError,
	KindNotFound:       CodeNotFound,
	KindUnauthorized:   CodeUnauthorized,
}

type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Field   string
	Data    any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so sentinel kinds such as
// ErrCapacityExceeded work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || t.Code == e.code())
}

func (e *Error) code() string {
	if e.Code != "" {
		return e.Code
	}
	return defaultCodes[e.Kind]
}

var (
	ErrValidation           = &Error{Kind: KindValidation}
	ErrResolution           = &Error{Kind: KindResolution}
	ErrAuthenticationFailed = &Error{Kind: KindAuthentication}
	ErrCapacityExceeded     = &Error{Kind: KindCapacity}
	ErrStorage              = &Error{Kind: KindStorage}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized}
)

func NewValidationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func NewResolutionError(message string, data any, err error) *Error {
	return &Error{Kind: KindResolution, Message: message, Data: data, Err: err}
}

func NewAuthenticationError(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func NewCapacityError(message string) *Error {
	return &Error{Kind: KindCapacity, Message: message}
}

func NewStorageError(message string, err error) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// CodeOf maps any error to a stable client-facing code.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.code()
	}
	return CodeInternal
}

// RPCCode returns the JSON-RPC error number for a stable code.
func RPCCode(code string) int {
	if n, ok := rpcCodes[code]; ok {
		return n
	}
	return rpcCodes[CodeInternal]
}

// IsRetryable reports whether the caller may resubmit the same request.
func IsRetryable(err error) bool {
	kind, ok := KindOf(err)
	return ok && (kind == KindCapacity || kind == KindResolution)
}
