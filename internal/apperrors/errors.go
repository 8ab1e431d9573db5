package apperrors

import (
	"fmt"
	"strings"
)

// ErrNotFound represents the absence of an expected identifier or cross-reference.
// Callers above the resolver treat it as an empty result rather than a failure.
type ErrNotFound struct {
	Resource string
	ID       interface{}
}

// Error implements the error interface.
func (e *ErrNotFound) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is allows for error checking with errors.Is().
func (e *ErrNotFound) Is(target error) bool {
	_, ok := target.(*ErrNotFound)
	return ok
}

// NewNotFoundError creates a new ErrNotFound.
func NewNotFoundError(resource string, id interface{}) *ErrNotFound {
	return &ErrNotFound{
		Resource: resource,
		ID:       id,
	}
}

// TransportError is a network or HTTP-layer failure: the request never
// produced a response body we could look at.
type TransportError struct {
	Op  string
	URL string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *TransportError) Is(target error) bool {
	_, ok := target.(*TransportError)
	return ok
}

// ApplicationError is a well-formed response that reports a failure, either
// through its status code or inside a success-status body.
type ApplicationError struct {
	Source     string
	StatusCode int
	Code       int
	Message    string
}

// Error implements the error interface.
func (e *ApplicationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	b.WriteString(" error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Code != 0 && e.Code != e.StatusCode {
		fmt.Fprintf(&b, " code %d", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is allows for error checking with errors.Is().
func (e *ApplicationError) Is(target error) bool {
	_, ok := target.(*ApplicationError)
	return ok
}

// InBand reports whether the error was signalled inside a 200 response.
func (e *ApplicationError) InBand() bool {
	return e.StatusCode == 200
}

// DecodeError is returned when a payload is malformed or does not have the
// expected shape.
type DecodeError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *DecodeError) Is(target error) bool {
	_, ok := target.(*DecodeError)
	return ok
}

// NewDecodeError formats a shape violation into a DecodeError.
func NewDecodeError(source, format string, args ...interface{}) *DecodeError {
	return &DecodeError{
		Source: source,
		Err:    fmt.Errorf(format, args...),
	}
}
