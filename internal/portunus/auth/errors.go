package auth

import "errors"

// Failure classifications carried in types.AuthResult.Reason.  Strategies
// never return these as Go errors; callers test them with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("principal not found")
	ErrForbidden         = errors.New("method not permitted for principal")
	ErrMissingCredential = errors.New("credential missing")
	ErrUnknownCard       = errors.New("card unknown")
	ErrExpired           = errors.New("card expired")
	ErrMismatch          = errors.New("card not registered to identity")
	ErrBlocked           = errors.New("blocked by risk policy")
	ErrInvalidToken      = errors.New("token rejected")
	ErrBiometricMismatch = errors.New("biometric mismatch")
	ErrUnknownMode       = errors.New("unknown or disallowed mode")

	// ErrLookup wraps credential store faults other than not-found.
	ErrLookup = errors.New("credential lookup failed")
)
