// filepath: internal/grid/errors.go
package grid

import "errors"

// Standard errors returned by the grid package.
var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrInvalidToken      = errors.New("invalid config token")
	ErrUnknownHook       = errors.New("unknown hook")
)
