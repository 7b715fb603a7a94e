// Package apperr implements the coordination service's error taxonomy:
// a small set of sentinel error codes with errors.Is/errors.As support,
// modeled on the teacher's internal/errors.AppError but scoped to this
// domain's six codes instead of an HTTP/DB-oriented set.
package apperr

import (
	"errors"
	"fmt"
)

// Code categorizes an AppError.
type Code string

const (
	// CodeInvalidClientID marks a request missing or malforming the
	// client-id header the worker is required to send.
	CodeInvalidClientID Code = "invalid_client_id"
	// CodeWrongCommandFormat marks a Command that does not parse as
	// exactly three whitespace-separated tokens terminated by "#".
	CodeWrongCommandFormat Code = "wrong_command_format"
	// CodeUnknownJob marks a job reference (action, params) a Task
	// Controller has no record of.
	CodeUnknownJob Code = "unknown_job"
	// CodeUnknownWork marks a job MarkWorkDone cannot find in any of the
	// Scheduler's queues.
	CodeUnknownWork Code = "unknown_work"
	// CodeHandlerPermanentFailure marks a task handler result that must
	// not be retried.
	CodeHandlerPermanentFailure Code = "handler_permanent_failure"
	// CodeTransportError marks a failure talking to the coordinator over
	// HTTP (as opposed to a well-formed error response from it).
	CodeTransportError Code = "transport_error"
)

// AppError is a structured error carrying a Code, a human-readable
// Message, and an optional wrapped Cause.
type AppError struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvalidClientID reports a missing or malformed client-id header.
func InvalidClientID(format string, args ...any) *AppError {
	return newf(CodeInvalidClientID, format, args...)
}

// WrongCommandFormat reports a Command that failed to parse.
func WrongCommandFormat(format string, args ...any) *AppError {
	return newf(CodeWrongCommandFormat, format, args...)
}

// UnknownJob reports a job a Task Controller has no record of.
func UnknownJob(format string, args ...any) *AppError {
	return newf(CodeUnknownJob, format, args...)
}

// UnknownWork reports a job MarkWorkDone could not find in any
// Scheduler queue.
func UnknownWork(format string, args ...any) *AppError {
	return newf(CodeUnknownWork, format, args...)
}

// HandlerPermanentFailure reports a task handler result that must not be
// retried, wrapping the handler's own error.
func HandlerPermanentFailure(cause error, format string, args ...any) *AppError {
	return &AppError{Code: CodeHandlerPermanentFailure, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// TransportError reports a failure communicating with the coordinator
// over HTTP, wrapping the underlying transport error.
func TransportError(cause error, format string, args ...any) *AppError {
	return &AppError{Code: CodeTransportError, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func isCode(err error, code Code) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsInvalidClientID reports whether err is an InvalidClientID AppError.
func IsInvalidClientID(err error) bool { return isCode(err, CodeInvalidClientID) }

// IsWrongCommandFormat reports whether err is a WrongCommandFormat AppError.
func IsWrongCommandFormat(err error) bool { return isCode(err, CodeWrongCommandFormat) }

// IsUnknownJob reports whether err is an UnknownJob AppError.
func IsUnknownJob(err error) bool { return isCode(err, CodeUnknownJob) }

// IsUnknownWork reports whether err is an UnknownWork AppError.
func IsUnknownWork(err error) bool { return isCode(err, CodeUnknownWork) }

// IsHandlerPermanentFailure reports whether err is a HandlerPermanentFailure AppError.
func IsHandlerPermanentFailure(err error) bool { return isCode(err, CodeHandlerPermanentFailure) }

// IsTransportError reports whether err is a TransportError AppError.
func IsTransportError(err error) bool { return isCode(err, CodeTransportError) }

// GetCode returns the Code carried by err, or "" if err is not an AppError.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
