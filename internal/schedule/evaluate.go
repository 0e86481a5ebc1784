package schedule

import (
	"fmt"
	"slices"
	"time"
)

// Evaluate classifies s at now. It has no side effects.
//
// One-time: live when now is within [start, end], past after end, upcoming
// when start is at most an hour away, otherwise idle.
//
// Recurring: now is converted to the schedule's timezone. Past once the local
// date is after the end date. Idle on other weekdays, before the start date,
// and outside the window and its preceding hour. An already-finished window
// on a matching day is also idle. A recurring schedule past its end date is
// never idle, because it can no longer fire.
func Evaluate(s *Schedule, now time.Time) (Evaluation, error) {
	if err := Validate(s); err != nil {
		return Evaluation{}, err
	}

	if !s.IsRecurring {
		return classify(Window{Start: *s.StartTime, End: *s.EndTime}, now, true), nil
	}

	loc, err := time.LoadLocation(s.RecurTimezone)
	if err != nil {
		return Evaluation{}, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}

	today := DateOf(now.In(loc))
	if s.RecurEndDate != nil && today.After(*s.RecurEndDate) {
		return Evaluation{Status: StatusPast}, nil
	}
	if !s.occursOn(today) {
		return Evaluation{Status: StatusIdle}, nil
	}

	window := Window{Start: s.RecurTimeStart.On(today, loc), End: s.RecurTimeEnd.On(today, loc)}
	return classify(window, now, false), nil
}

// classify places now relative to w. terminal selects whether time after the
// window is past (one-time) or idle (recurring, which repeats).
func classify(w Window, now time.Time, terminal bool) Evaluation {
	switch {
	case w.Contains(now):
		return Evaluation{Status: StatusLive}
	case now.After(w.End):
		if terminal {
			return Evaluation{Status: StatusPast}
		}
		return Evaluation{Status: StatusIdle}
	}

	until := w.Start.Sub(now)
	if until <= UpcomingThreshold {
		return Evaluation{Status: StatusUpcoming, MinutesUntil: ceilMinutes(until)}
	}
	return Evaluation{Status: StatusIdle}
}

func ceilMinutes(d time.Duration) int {
	m := d / time.Minute
	if d%time.Minute != 0 {
		m++
	}
	return int(m)
}

// occursOn reports whether a recurring schedule has a class on local date d.
func (s *Schedule) occursOn(d Date) bool {
	if s.RecurStartDate != nil && d.Before(*s.RecurStartDate) {
		return false
	}
	if s.RecurEndDate != nil && d.After(*s.RecurEndDate) {
		return false
	}
	return slices.Contains(s.RecurWeekdays, d.Weekday())
}

// DesiredWindows returns the intervals, pre-roll and post-roll included,
// during which the room's camera should run around now.
//
// A one-time schedule has a single window. For a recurring schedule the
// windows of the previous, current and next local day are returned (for the
// days the class occurs), so that roll buffers crossing midnight are honoured.
// Windows are recomputed on every call.
func DesiredWindows(s *Schedule, now time.Time) ([]Window, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}

	if !s.IsRecurring {
		return []Window{{
			Start: s.StartTime.Add(-s.preRoll()),
			End:   s.EndTime.Add(s.postRoll()),
		}}, nil
	}

	loc, err := time.LoadLocation(s.RecurTimezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}

	today := DateOf(now.In(loc))
	var windows []Window
	for offset := -1; offset <= 1; offset++ {
		day := today.AddDays(offset)
		if !s.occursOn(day) {
			continue
		}
		windows = append(windows, Window{
			Start: s.RecurTimeStart.On(day, loc).Add(-s.preRoll()),
			End:   s.RecurTimeEnd.On(day, loc).Add(s.postRoll()),
		})
	}
	return windows, nil
}

// ShouldRun reports whether now falls within any desired window of s.
func ShouldRun(s *Schedule, now time.Time) (bool, error) {
	windows, err := DesiredWindows(s, now)
	if err != nil {
		return false, err
	}
	for _, w := range windows {
		if w.Contains(now) {
			return true, nil
		}
	}
	return false, nil
}
