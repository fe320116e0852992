// filepath: internal/dispatch/errors.go
package dispatch

import "errors"

// Standard errors returned by the dispatcher.
var (
	ErrNotSupported = errors.New("action not supported")
	ErrDisabled     = errors.New("action disabled")
	ErrNotFound     = errors.New("row not found")
	ErrValidation   = errors.New("validation failed")
)
