package rating

import "errors"

// Sentinel error kinds for the rating engine.
var (
	ErrOutOfOrder   = errors.New("snapshot is not after the last replayed day")
	ErrUnknownModel = errors.New("unknown rating model")
)
