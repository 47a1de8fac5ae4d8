package output

import "errors"

var (
	// ErrArtifactNotFound is returned when no artifact exists for a
	// category and dataset.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrBadArtifact is returned when an artifact cannot be decoded.
	ErrBadArtifact = errors.New("malformed artifact")
)
