// Package common defines shared sentinel errors used across the service
// layers. Callers should match these values with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorDeactivated means the credentials were correct but the
	// account is switched off. Distinct from ErrorUnauthorized on
	// purpose: the caller already proved credential knowledge.
	ErrorDeactivated = errors.New("account deactivated")

	// Auth/session errors.
	ErrInvalidToken = errors.New("invalid token")

	// Rate limiting.
	ErrRateLimited = errors.New("rate limited")
)
