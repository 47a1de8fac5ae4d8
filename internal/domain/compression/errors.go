package compression

import "errors"

// ErrUnknownMode is returned for an unsupported compression mode.
var ErrUnknownMode = errors.New("unknown compression mode")
