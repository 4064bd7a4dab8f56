package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	//
	// ErrAuthExpired is run-halting: the stored refresh token was rejected and
	// only a new interactive authorization can recover. ErrAuthTransient marks
	// network or 5xx failures during an exchange and may be retried.
	ErrAuthExpired    = fmt.Errorf("authorization expired, re-run 'ncx auth login'")
	ErrAuthTransient  = fmt.Errorf("transient authentication failure")
	ErrNotAuthorized  = fmt.Errorf("not authorized")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrSourceNotFound     = fmt.Errorf("source playlist not found")
	ErrPlaylistRejected   = fmt.Errorf("target playlist creation rejected")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
