package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, automation.ErrTickInProgress) {
//	    // another sweep is still running
//	}
var (
	// ErrTickInProgress is returned when a tick is requested while one is running.
	ErrTickInProgress = errors.New("scheduler: tick already in progress")

	// ErrUnknownCommand is returned for camera commands other than start and stop.
	ErrUnknownCommand = errors.New("scheduler: unknown camera command")

	// ErrListenerClosed is returned for commands that arrive after Close.
	ErrListenerClosed = errors.New("scheduler: command listener closed")
)
