package service

import "errors"

var (
	// ErrNoSnapshots is returned when a dataset has nothing to replay.
	ErrNoSnapshots = errors.New("no snapshots to replay")
	// ErrNoCutoff is returned when the recent dataset is requested without a
	// configured cutoff day.
	ErrNoCutoff = errors.New("recent dataset requires a cutoff day")
	// ErrNoRun is returned by readers before the first run of a dataset.
	ErrNoRun = errors.New("dataset has not been computed yet")
	// ErrPlayerNotFound is returned when a player has no rating in a run.
	ErrPlayerNotFound = errors.New("player not found")
)
