package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrScheduleFailed means the native adapter rejected the alarm or the
	// post-schedule verification could not find it; the store mutation has
	// already been rolled back when this is returned.
	ErrScheduleFailed = errors.New("native scheduling failed")

	// ErrPermissionDenied means notification permission was refused; scheduling
	// should not be attempted until the permission flow resolves it.
	ErrPermissionDenied = errors.New("notification permission denied")
)
