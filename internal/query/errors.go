// filepath: internal/query/errors.go
package query

import "errors"

// Standard errors returned by the query assembler.
var (
	ErrInvalidOrder     = errors.New("invalid ordering")
	ErrNoWritableFields = errors.New("no writable fields in payload")
)
