package domain

import "errors"

// ErrNotFound is returned by readers when the requested row does not exist or
// is not visible.
var ErrNotFound = errors.New("domain: not found") //nolint:gochecknoglobals // sentinel error
