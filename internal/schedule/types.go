package schedule

import (
	"fmt"
	"time"
)

// Status is the logical state of a schedule at an instant. It is never persisted.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusUpcoming Status = "upcoming"
	StatusLive     Status = "live"
	StatusPast     Status = "past"
)

// UpcomingThreshold is how far ahead of its start a class counts as upcoming.
const UpcomingThreshold = 60 * time.Minute

// Schedule is a class schedule for one room.
//
// Exactly one of the two field groups is set: StartTime/EndTime for a
// one-time class, or the Recur* fields for a weekly recurring class.
type Schedule struct {
	ID          string `json:"id"`
	RoomID      string `json:"room_id"`
	Name        string `json:"name"`
	IsRecurring bool   `json:"is_recurring"`

	// One-time.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Recurring. Dates and times are in RecurTimezone.
	RecurStartDate *Date          `json:"recur_start_date,omitempty"`
	RecurEndDate   *Date          `json:"recur_end_date,omitempty"`
	RecurWeekdays  []time.Weekday `json:"recur_weekdays,omitempty"`
	RecurTimeStart *TimeOfDay     `json:"recur_time_start,omitempty"`
	RecurTimeEnd   *TimeOfDay     `json:"recur_time_end,omitempty"`
	RecurTimezone  string         `json:"recur_timezone,omitempty"`

	PreRollMinutes  int  `json:"pre_roll_minutes"`
	PostRollMinutes int  `json:"post_roll_minutes"`
	AutoStartCamera bool `json:"auto_start_camera"`
	AutoStopCamera  bool `json:"auto_stop_camera"`
}

// Automated reports whether the scheduler acts on this schedule at all.
func (s *Schedule) Automated() bool {
	return s.AutoStartCamera || s.AutoStopCamera
}

func (s *Schedule) preRoll() time.Duration {
	return time.Duration(s.PreRollMinutes) * time.Minute
}

func (s *Schedule) postRoll() time.Duration {
	return time.Duration(s.PostRollMinutes) * time.Minute
}

// Evaluation is the result of Evaluate.
type Evaluation struct {
	Status Status `json:"status"`

	// MinutesUntil is set for StatusUpcoming, rounded up.
	MinutesUntil int `json:"minutes_until,omitempty"`
}

// Window is a closed time interval; both ends are inclusive.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the window, ends included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Date is a calendar date without a time or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidSchedule, s)
	}
	return DateOf(t), nil
}

// DateOf returns the date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// AddDays returns the date n days later; n may be negative.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// MarshalText encodes d as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a YYYY-MM-DD date.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a wall-clock time in minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" 24-hour time.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidSchedule, s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// On returns the instant of this time of day on date d in loc.
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, int(t)/60, int(t)%60, 0, 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalText encodes t as HH:MM.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes an HH:MM time.
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
