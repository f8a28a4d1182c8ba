package searchagent

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is() to check.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrServer       = errors.New("server error")
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("searchagent: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }
