package discord

import (
	"errors"
	"fmt"
)

var (
	ErrNoToken           = errors.New("bot token is not configured")
	ErrUnknownPermission = errors.New("unknown permission")
)

// TransportError means no status line was obtained: DNS, refused
// connections, timeouts, cancelled contexts and unreadable bodies.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is a non-2xx answer. Code and Message come from the JSON
// error body when the API sent one.
type ProtocolError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("discord api status %d", e.StatusCode)
	}
	return fmt.Sprintf("discord api status %d: %s (%d)", e.StatusCode, e.Message, e.Code)
}

// PayloadError is a 2xx body that could not be interpreted.
type PayloadError struct {
	Field string
	Err   error
}

func (e *PayloadError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("field %q: %v", e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("missing field %q", e.Field)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "malformed payload"
	}
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}
