// Package apperr defines the platform error taxonomy and the central handler
// that converts failures into log records, Sentry events, and user-facing text.
package apperr

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError is the typed error carried through the dispatch pipeline.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewRoutingError marks an update that no active bot identity claims.
// It is logged and dropped; the user never sees a reply.
func NewRoutingError(routingKey string) *AppError {
	return &AppError{
		Code:     "E100",
		Message:  fmt.Sprintf("no bot resolved for routing key ending %q", tail(routingKey)),
		Severity: SeverityLow,
	}
}

// NewAuthError marks a command that requires authentication the session lacks.
func NewAuthError(command string) *AppError {
	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("authentication required for command %q", command),
		UserMessage: "You need to be registered to use this command. Send /register to get started.",
		Severity:    SeverityLow,
	}
}

// NewHandlerError wraps a fault raised inside a handler.
func NewHandlerError(handlerName string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("handler %s failed", handlerName),
		UserMessage: "Sorry, something went wrong. Please try again.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewSessionStoreError wraps an unreachable session backend. The turn is
// abandoned without a reply because no session context exists to build one.
func NewSessionStoreError(cause error) *AppError {
	return &AppError{
		Code:      "E400",
		Message:   "session store unavailable",
		Severity:  SeverityCritical,
		Retryable: true,
		cause:     cause,
	}
}

// NewValidationError marks malformed user-supplied data, such as a webapp
// payload that fails validation.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     msg,
		UserMessage: "That doesn't look right. Please check your input and try again.",
		Severity:    SeverityLow,
	}
}

// tail keeps only the last few characters of a routing key so tokens never
// reach logs in full.
func tail(key string) string {
	const keep = 4
	if len(key) <= keep {
		return key
	}

	return "…" + key[len(key)-keep:]
}
