package ppg

import "errors"

var (
	// ErrNotInitialized is returned when a Session was not created with New.
	ErrNotInitialized = errors.New("ppg: session not initialized")
	// ErrAlreadyRunning is returned by Start while a session is in progress.
	ErrAlreadyRunning = errors.New("ppg: session already running")
	// ErrCancelled is returned by Queue.Pop when the session stopped while waiting.
	ErrCancelled = errors.New("ppg: cancelled")
)
