package repository

import "errors"

// Sentinel kinds for snapshot store errors.
var (
	// ErrDuplicateDate is returned when an append would store a day twice.
	ErrDuplicateDate = errors.New("snapshot date already stored")
	// ErrUnknownDriver is returned by Open for an unsupported backend name.
	ErrUnknownDriver = errors.New("unknown store driver")
	// ErrCorrupt is returned when stored rows no longer form valid snapshots.
	ErrCorrupt = errors.New("stored snapshots are corrupt")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")
)
