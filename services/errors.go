package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrPreconditionMissing = errors.New("precondition missing")
	ErrGenerationFormat    = errors.New("generated reply does not match the required shape")
	ErrTransport           = errors.New("transport error")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTooManyAttempts     = errors.New("too many attempts")
	ErrConflict            = errors.New("already exists")
)

// PreconditionError names the upstream fact that was absent.
type PreconditionError struct {
	Fact    string
	Message string
}

func PreconditionMissing(fact, message string) *PreconditionError {
	return &PreconditionError{Fact: fact, Message: message}
}

func (e *PreconditionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("precondition missing: %s", e.Fact)
	}
	return fmt.Sprintf("precondition missing: %s: %s", e.Fact, e.Message)
}

func (e *PreconditionError) Unwrap() error { return ErrPreconditionMissing }

// TransportError wraps an I/O failure talking to the database or a remote API.
type TransportError struct {
	Op  string
	Err error
}

func transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
