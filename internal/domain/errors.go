package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz definition could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound is returned when acting on an attempt that was never started.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrMinAttemptNotMet rejects a manual submission below the configured
	// minimum attempted fraction. The attempt stays open; forced submissions
	// bypass this check.
	ErrMinAttemptNotMet = errors.New("minimum attempt requirement not met")
	// ErrAttemptNotActive rejects a submission before any section has started.
	ErrAttemptNotActive = errors.New("attempt has no active section")
)
