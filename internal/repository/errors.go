// Package repository holds the stores the shop reads ids from.  The
// sentinel errors below let handlers map store failures to HTTP codes.
package repository

import "errors"

// ErrSequenceUnavailable is returned when the arrival sequence cannot hand
// out a new client id.  Handlers should translate this into an HTTP 503.
var ErrSequenceUnavailable = errors.New("arrival sequence unavailable")
