package ingest

import "errors"

var (
	// ErrNoLeaderboard is returned when the input holds no ranked rows.
	ErrNoLeaderboard = errors.New("no leaderboard found")
	// ErrNoDate is returned when a pasted leaderboard has no date header and
	// no fallback date was configured.
	ErrNoDate = errors.New("leaderboard date not found")
	// ErrBadExport is returned when a chat export cannot be decoded.
	ErrBadExport = errors.New("malformed chat export")
)
