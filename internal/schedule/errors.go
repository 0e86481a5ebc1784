package schedule

import "errors"

var (
	// ErrInvalidSchedule is returned when a schedule cannot be evaluated.
	ErrInvalidSchedule = errors.New("schedule: invalid")

	// ErrScheduleNotFound is returned when a schedule ID does not exist.
	ErrScheduleNotFound = errors.New("schedule: not found")
)
