package snapshot

import "errors"

// Sentinel error kinds for snapshot admission.
var (
	ErrMalformed     = errors.New("malformed snapshot")
	ErrDuplicateDate = errors.New("snapshot date already recorded")
)
