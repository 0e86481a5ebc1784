package schedule

import (
	"errors"
	"fmt"
	"time"
)

const (
	maxRollMinutes = 24 * 60
	daysPerWeek    = 7
)

// Validate checks that s can be evaluated. All problems are reported
// together, each wrapping ErrInvalidSchedule.
func Validate(s *Schedule) error {
	if s == nil {
		return ErrInvalidSchedule
	}

	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidSchedule}, args...)...))
	}

	if s.ID == "" {
		add("id is required")
	}
	if s.RoomID == "" {
		add("room_id is required")
	}
	if s.PreRollMinutes < 0 || s.PreRollMinutes > maxRollMinutes {
		add("pre_roll_minutes must be 0-%d", maxRollMinutes)
	}
	if s.PostRollMinutes < 0 || s.PostRollMinutes > maxRollMinutes {
		add("post_roll_minutes must be 0-%d", maxRollMinutes)
	}

	if s.IsRecurring {
		validateRecurring(s, add)
	} else {
		validateOneTime(s, add)
	}

	return errors.Join(errs...)
}

func validateOneTime(s *Schedule, add func(string, ...any)) {
	if s.StartTime == nil || s.EndTime == nil {
		add("one-time schedule requires start_time and end_time")
		return
	}
	if !s.EndTime.After(*s.StartTime) {
		add("end_time must be after start_time")
	}
	if s.RecurStartDate != nil || len(s.RecurWeekdays) > 0 || s.RecurTimeStart != nil {
		add("one-time schedule must not set recurring fields")
	}
}

func validateRecurring(s *Schedule, add func(string, ...any)) {
	if s.StartTime != nil || s.EndTime != nil {
		add("recurring schedule must not set start_time or end_time")
	}
	if s.RecurStartDate == nil {
		add("recur_start_date is required")
	}
	if s.RecurStartDate != nil && s.RecurEndDate != nil && s.RecurEndDate.Before(*s.RecurStartDate) {
		add("recur_end_date must not be before recur_start_date")
	}

	if len(s.RecurWeekdays) == 0 {
		add("recur_weekdays must not be empty")
	}
	for _, wd := range s.RecurWeekdays {
		if wd < time.Sunday || wd >= daysPerWeek {
			add("invalid weekday %d", wd)
		}
	}

	if s.RecurTimeStart == nil || s.RecurTimeEnd == nil {
		add("recur_time_start and recur_time_end are required")
	} else if *s.RecurTimeEnd <= *s.RecurTimeStart {
		add("recur_time_end must be after recur_time_start")
	}

	if s.RecurTimezone == "" {
		add("recur_timezone is required")
	} else if _, err := time.LoadLocation(s.RecurTimezone); err != nil {
		add("unknown timezone %q", s.RecurTimezone)
	}
}
