// Package errors defines the coded error types shared across botforge.
// Every error carries a stable code so the presentation layer can decide
// how to render it without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown    = "UNKNOWN"
	CodeDatabase   = "DATABASE"
	CodeValidation = "VALIDATION"
	CodeCredential = "CREDENTIAL"
	CodeProcess    = "PROCESS"
	CodeOwnership  = "OWNERSHIP"
	CodeConfig     = "CONFIG"
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// base carries the fields shared by every coded error.
type base struct {
	code    string
	message string
	err     error
}

func (e *base) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *base) Code() string {
	return e.code
}

func (e *base) Unwrap() error {
	return e.err
}

// Message returns the error message without the wrapped cause.
func (e *base) Message() string {
	return e.message
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if it doesn't have one.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// Message returns the message of the first coded error in err's chain without
// its wrapped cause, or err.Error() for uncoded errors.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var m interface{ Message() string }
	if errors.As(err, &m) {
		return m.Message()
	}

	return err.Error()
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && Code(err) == code
}

// DatabaseError wraps a failure of the persistence store.
type DatabaseError struct {
	base
}

func NewDatabaseError(message string, cause error) error {
	return &DatabaseError{base{code: CodeDatabase, message: message, err: cause}}
}

// ValidationError is returned when a configuration fails the structural or schema check.
type ValidationError struct {
	base
}

func NewValidationError(message string, cause error) error {
	return &ValidationError{base{code: CodeValidation, message: message, err: cause}}
}

// CredentialError is returned for malformed or platform-rejected bot tokens.
type CredentialError struct {
	base
}

func NewCredentialError(message string, cause error) error {
	return &CredentialError{base{code: CodeCredential, message: message, err: cause}}
}

// ProcessError is returned when a generated bot cannot be built, started or tracked.
type ProcessError struct {
	base
}

func NewProcessError(message string, cause error) error {
	return &ProcessError{base{code: CodeProcess, message: message, err: cause}}
}

// OwnershipError is returned when a user acts on a bot that is missing or not theirs.
// The message never reveals which of the two it was.
type OwnershipError struct {
	base
}

func NewOwnershipError(message string) error {
	return &OwnershipError{base{code: CodeOwnership, message: message}}
}

// ConfigError is returned for invalid application configuration.
type ConfigError struct {
	base
}

func NewConfigError(message string, cause error) error {
	return &ConfigError{base{code: CodeConfig, message: message, err: cause}}
}
