package artifact

import "errors"

// ErrNotFound is returned when a requested artifact does not exist for the
// given session/id pair.
var ErrNotFound = errors.New("artifact not found")
