// Package apperr defines sentinel errors shared across layers.
package apperr

import "errors"

// ErrNotFound marks lookups that matched no row. Handlers translate it
// to a 404 instead of a 500.
var ErrNotFound = errors.New("not found")
