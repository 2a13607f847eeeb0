package services

import "errors"

// Sentinel errors returned by the services. Handlers map them to HTTP
// statuses; their text is safe to show to clients.
var (
	ErrValidation            = errors.New("missing or invalid fields")
	ErrDuplicateEmail        = errors.New("email is already in use")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredentials    = errors.New("incorrect credentials")
	ErrInvalidMFACode        = errors.New("incorrect MFA code")
	ErrMFANotConfigured      = errors.New("MFA is not enabled for this user")
	ErrMFAAlreadyEnabled     = errors.New("MFA is already enabled for this user")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUnauthenticated       = errors.New("invalid or expired session")
	ErrForbidden             = errors.New("not authorized")
	ErrDefaultCategory       = errors.New("default categories cannot be modified")
	ErrDuplicateCategory     = errors.New("a category with that name and type already exists")
	ErrNotFound              = errors.New("resource not found")
	ErrTooManyAttempts       = errors.New("too many attempts, try again later")
)
