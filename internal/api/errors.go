package api

import (
	"errors"
	"fmt"
)

// Kind classifies remote call failures.
type Kind int

const (
	// KindNetwork covers transport failures and timeouts.
	KindNetwork Kind = iota + 1
	// KindStatus is a non-2xx response.
	KindStatus
	// KindBadResponse is a body that could not be decoded or failed validation.
	KindBadResponse
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindBadResponse:
		return "bad_response"
	default:
		return "unknown"
	}
}

// Error is returned by every Client method.
type Error struct {
	Kind     Kind
	Endpoint string
	// StatusCode is set for KindStatus and for bad 2xx bodies.
	StatusCode int
	// Message is the server-supplied "message" field, if any.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindStatus && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	case e.Kind == KindStatus:
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Endpoint, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Endpoint, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the server's message verbatim, or "" when the
// server sent none.
func (e *Error) UserMessage() string {
	return e.Message
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// ServerMessage extracts the server message from err, if any.
func ServerMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
