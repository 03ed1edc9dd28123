package repository

import "errors"

// Failure kinds returned by the store. Handlers translate these into
// user-facing responses. ErrInvalidRole is the exception: it means the
// stored data is corrupt and is surfaced as an unexpected failure.
var (
	// Sign-in failures.
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrDomainNotAllowed   = errors.New("domain_not_allowed")
	ErrInactiveAccount    = errors.New("inactive_account")

	// Password change failures.
	ErrAccountUnavailable = errors.New("account_unavailable")
	ErrIncorrectPassword  = errors.New("incorrect_password")

	// Staff creation failures.
	ErrDuplicateEmail = errors.New("duplicate_email")

	// Access-scope failures.
	ErrAccountInactive = errors.New("account_inactive")
	ErrMissingSchool   = errors.New("missing_school")
	ErrInvalidRole     = errors.New("invalid_role")

	// Tenant-scoped repository failures. ErrNotFound covers both a genuinely
	// missing row and a row outside the actor's scope; the two are never
	// distinguished to callers.
	ErrNotFound         = errors.New("not_found")
	ErrInvalidClassroom = errors.New("invalid_classroom")
)
