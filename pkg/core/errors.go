package core

import (
	"fmt"
)

// Error represents a failure reported by an external collaborator
// (classifier, translator, speech services).
type Error struct {
	Type         ErrorType `json:"type"`
	Message      string    `json:"message"`
	Collaborator string    `json:"collaborator,omitempty"`
	StatusCode   int       `json:"status_code,omitempty"`
	RetryAfter   *int      `json:"retry_after,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Collaborator != "" {
		return fmt.Sprintf("%s: %s: %s", e.Collaborator, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Retryable reports whether the failure is transient enough to retry.
func (e *Error) Retryable() bool {
	return e.Type == ErrRateLimit || e.Type == ErrOverloaded
}

// ErrorType categorizes collaborator errors.
type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrAuthentication ErrorType = "authentication_error"
	ErrNotFound       ErrorType = "not_found_error"
	ErrRateLimit      ErrorType = "rate_limit_error"
	ErrAPI            ErrorType = "api_error"
	ErrOverloaded     ErrorType = "overloaded_error"
)

// NewCollaboratorError builds an error for a non-2xx collaborator response.
func NewCollaboratorError(collaborator string, statusCode int, message string) *Error {
	return &Error{
		Type:         typeForStatus(statusCode),
		Message:      message,
		Collaborator: collaborator,
		StatusCode:   statusCode,
	}
}

func typeForStatus(code int) ErrorType {
	switch {
	case code == 401 || code == 403:
		return ErrAuthentication
	case code == 404:
		return ErrNotFound
	case code == 429:
		return ErrRateLimit
	case code >= 500:
		return ErrOverloaded
	case code >= 400:
		return ErrInvalidRequest
	default:
		return ErrAPI
	}
}
