package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType int

const (
	ErrorNone ErrorType = iota
	ErrorUrl
	ErrorTransport
	ErrorProtocol
	ErrorInvalidArgument
	ErrorMemory
)

func (t ErrorType) String() string {
	switch t {
	case ErrorNone:
		return "None"
	case ErrorUrl:
		return "URL"
	case ErrorTransport:
		return "Transport"
	case ErrorProtocol:
		return "Protocol"
	case ErrorInvalidArgument:
		return "InvalidArgument"
	case ErrorMemory:
		return "Memory"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// UrlError represents URL parsing errors
type UrlError int

const (
	UrlErrorNone UrlError = iota
	UrlErrorMalformed
	UrlErrorMissingHost
)

func (e UrlError) String() string {
	switch e {
	case UrlErrorNone:
		return "none"
	case UrlErrorMalformed:
		return "malformed URL"
	case UrlErrorMissingHost:
		return "host not found in URL"
	default:
		return fmt.Sprintf("UrlError(%d)", int(e))
	}
}

// TransportError represents transport-layer specific errors
type TransportError int

const (
	TransportErrorNone TransportError = iota
	TransportErrorSocketCreateFailure
	TransportErrorSocketConnectFailure
	TransportErrorSocketReadFailure
	TransportErrorSocketWriteFailure
	TransportErrorConnectionClosed
	TransportErrorDnsFailure
	TransportErrorTimeout
	TransportErrorSocketCloseFailure
	TransportErrorIoUringInit
	TransportErrorIoUringSubmit
)

func (e TransportError) String() string {
	switch e {
	case TransportErrorNone:
		return "none"
	case TransportErrorSocketCreateFailure:
		return "socket creation failed"
	case TransportErrorSocketConnectFailure:
		return "socket connection failed"
	case TransportErrorSocketReadFailure:
		return "socket read failed"
	case TransportErrorSocketWriteFailure:
		return "socket write failed"
	case TransportErrorConnectionClosed:
		return "connection closed"
	case TransportErrorDnsFailure:
		return "address resolution failed"
	case TransportErrorTimeout:
		return "read timed out"
	case TransportErrorSocketCloseFailure:
		return "socket close failed"
	case TransportErrorIoUringInit:
		return "io_uring initialization failed"
	case TransportErrorIoUringSubmit:
		return "io_uring submission failed"
	default:
		return fmt.Sprintf("TransportError(%d)", int(e))
	}
}

// ProtocolError represents protocol-layer specific errors
type ProtocolError int

const (
	ProtocolErrorNone ProtocolError = iota
	ProtocolErrorInvalidStatusLine
	ProtocolErrorInvalidHeader
	ProtocolErrorMessageTooLarge
	ProtocolErrorIncompleteResponse
)

func (e ProtocolError) String() string {
	switch e {
	case ProtocolErrorNone:
		return "none"
	case ProtocolErrorInvalidStatusLine:
		return "invalid status line"
	case ProtocolErrorInvalidHeader:
		return "invalid header"
	case ProtocolErrorMessageTooLarge:
		return "message too large"
	case ProtocolErrorIncompleteResponse:
		return "incomplete response"
	default:
		return fmt.Sprintf("ProtocolError(%d)", int(e))
	}
}

// MemoryError represents buffer allocation errors
type MemoryError int

const (
	MemoryErrorNone MemoryError = iota
	MemoryErrorAllocationFailed
)

func (e MemoryError) String() string {
	switch e {
	case MemoryErrorNone:
		return "none"
	case MemoryErrorAllocationFailed:
		return "allocation failed"
	default:
		return fmt.Sprintf("MemoryError(%d)", int(e))
	}
}

// HttpError is the main error type for the HTTP client
type HttpError struct {
	Type          ErrorType
	UrlErr        UrlError
	TransportErr  TransportError
	ProtocolErr   ProtocolError
	MemoryErr     MemoryError
	Message       string
	UnderlyingErr error
}

// Error implements the error interface
func (e *HttpError) Error() string {
	if e == nil {
		return "no error"
	}

	var typeStr string
	switch e.Type {
	case ErrorUrl:
		typeStr = fmt.Sprintf("URL error (%s)", e.UrlErr)
	case ErrorTransport:
		typeStr = fmt.Sprintf("Transport error (%s)", e.TransportErr)
	case ErrorProtocol:
		typeStr = fmt.Sprintf("Protocol error (%s)", e.ProtocolErr)
	case ErrorInvalidArgument:
		typeStr = "Invalid argument"
	case ErrorMemory:
		typeStr = fmt.Sprintf("Memory error (%s)", e.MemoryErr)
	default:
		typeStr = "Unknown error"
	}

	if e.Message != "" {
		typeStr = fmt.Sprintf("%s: %s", typeStr, e.Message)
	}

	if e.UnderlyingErr != nil {
		return fmt.Sprintf("%s (caused by: %v)", typeStr, e.UnderlyingErr)
	}

	return typeStr
}

// Unwrap returns the underlying error for error chain support
func (e *HttpError) Unwrap() error {
	return e.UnderlyingErr
}

// NewUrlError creates a new URL error
func NewUrlError(err UrlError, message string) *HttpError {
	return &HttpError{
		Type:    ErrorUrl,
		UrlErr:  err,
		Message: message,
	}
}

// NewTransportError creates a new transport error
func NewTransportError(err TransportError, message string, underlying error) *HttpError {
	return &HttpError{
		Type:          ErrorTransport,
		TransportErr:  err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewProtocolError creates a new protocol error
func NewProtocolError(err ProtocolError, message string) *HttpError {
	return &HttpError{
		Type:        ErrorProtocol,
		ProtocolErr: err,
		Message:     message,
	}
}

// NewMemoryError creates a new memory error
func NewMemoryError(err MemoryError, message string) *HttpError {
	return &HttpError{
		Type:      ErrorMemory,
		MemoryErr: err,
		Message:   message,
	}
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string) *HttpError {
	return &HttpError{
		Type:    ErrorInvalidArgument,
		Message: message,
	}
}

// As returns the first *HttpError in err's chain.
func As(err error) (*HttpError, bool) {
	var httpErr *HttpError
	if stderrors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// IsUrl reports whether err carries the given URL error kind.
func IsUrl(err error, kind UrlError) bool {
	e, ok := As(err)
	return ok && e.Type == ErrorUrl && e.UrlErr == kind
}

// IsTransport reports whether err carries the given transport error kind.
func IsTransport(err error, kind TransportError) bool {
	e, ok := As(err)
	return ok && e.Type == ErrorTransport && e.TransportErr == kind
}

// IsProtocol reports whether err carries the given protocol error kind.
func IsProtocol(err error, kind ProtocolError) bool {
	e, ok := As(err)
	return ok && e.Type == ErrorProtocol && e.ProtocolErr == kind
}

// IsMemory reports whether err carries the given memory error kind.
func IsMemory(err error, kind MemoryError) bool {
	e, ok := As(err)
	return ok && e.Type == ErrorMemory && e.MemoryErr == kind
}

// IsInvalidArgument reports whether err is an invalid argument error.
func IsInvalidArgument(err error) bool {
	e, ok := As(err)
	return ok && e.Type == ErrorInvalidArgument
}
