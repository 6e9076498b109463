package shared

import "errors"

// Error taxonomy shared by all workflow modules. Services wrap these with %w
// and handlers map them to HTTP status codes in platform/httpx.
var (
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState indicates the operation is not legal in the entity's current status.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrForbidden indicates the caller's role lacks permission for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a concurrent mutation or uniqueness violation; retryable after refetch.
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates an unknown id.
	ErrNotFound = errors.New("not found")
	// ErrSecurity indicates a failed payment signature check. Never partially applied.
	ErrSecurity = errors.New("signature verification failed")
	// ErrUnauthorized indicates a missing or expired credential.
	ErrUnauthorized = errors.New("unauthorized")
)
