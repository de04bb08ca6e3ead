package repository

import "errors"

// Sentinel kinds for directory store errors.
var (
	// ErrIO is fatal for a run. The file involved stays where it was, so a
	// rerun is safe.
	ErrIO = errors.New("message store i/o failure")
	// ErrEmptyIntake means there is nothing to process.
	ErrEmptyIntake = errors.New("intake directory is empty")
)
