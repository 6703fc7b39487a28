package shared

import "fmt"

var (
	// Configuration errors
	ErrConfiguration = fmt.Errorf("configuration error")

	// Authorization errors
	ErrPortUnavailable      = fmt.Errorf("redirect port unavailable")
	ErrAuthorizationTimeout = fmt.Errorf("authorization timed out")
	ErrAuthorizationDenied  = fmt.Errorf("authorization denied")
	ErrAuthorizationPending = fmt.Errorf("authorization already pending")
	ErrTokenExchange        = fmt.Errorf("token exchange failed")
	ErrInvalidCredentials   = fmt.Errorf("invalid credentials")
	ErrNoRefreshToken       = fmt.Errorf("no refresh token available")

	// API and service errors
	ErrProviderUnavailable = fmt.Errorf("provider unavailable")
	ErrRateLimited         = fmt.Errorf("rate limited")
	ErrPartialAssembly     = fmt.Errorf("playlist partially assembled")
	ErrRunNotFound         = fmt.Errorf("run not found")
	ErrExportNotFound      = fmt.Errorf("export not found")

	// Input validation errors
	ErrValidation      = fmt.Errorf("validation failed")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
