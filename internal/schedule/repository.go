package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Source provides the schedules the scheduler acts on.
// The core never writes schedules; the schedule service owns them.
type Source interface {
	ListActive(ctx context.Context) ([]Schedule, error)
	GetByID(ctx context.Context, id string) (*Schedule, error)
}

const scheduleColumns = `id, room_id, name, is_recurring, start_time, end_time,
			recur_start_date, recur_end_date, recur_weekdays, recur_time_start, recur_time_end,
			recur_timezone, pre_roll_minutes, post_roll_minutes, auto_start_camera, auto_stop_camera`

// SQLiteRepository reads class_schedules from the shared database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed schedule source.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ListActive returns active schedules with camera automation enabled, ordered by ID.
//
// Malformed column values are left unset rather than failing the whole list;
// such schedules fail Validate and are skipped by the caller.
func (r *SQLiteRepository) ListActive(ctx context.Context) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM class_schedules
		WHERE is_active = 1 AND (auto_start_camera = 1 OR auto_stop_camera = 1)
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying active schedules: %w", err)
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		schedules = append(schedules, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schedules: %w", err)
	}
	return schedules, nil
}

// GetByID returns one schedule regardless of its active flag.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM class_schedules WHERE id = ?`

	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("querying schedule by id: %w", err)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*Schedule, error) {
	var s Schedule
	var isRecurring, autoStart, autoStop int
	var startTime, endTime, recurStart, recurEnd, weekdays, timeStart, timeEnd, tz sql.NullString

	if err := row.Scan(
		&s.ID,
		&s.RoomID,
		&s.Name,
		&isRecurring,
		&startTime,
		&endTime,
		&recurStart,
		&recurEnd,
		&weekdays,
		&timeStart,
		&timeEnd,
		&tz,
		&s.PreRollMinutes,
		&s.PostRollMinutes,
		&autoStart,
		&autoStop,
	); err != nil {
		return nil, err
	}

	s.IsRecurring = isRecurring != 0
	s.AutoStartCamera = autoStart != 0
	s.AutoStopCamera = autoStop != 0
	s.RecurTimezone = tz.String

	s.StartTime = parseTimestamp(startTime)
	s.EndTime = parseTimestamp(endTime)

	if recurStart.Valid {
		if d, err := ParseDate(recurStart.String); err == nil {
			s.RecurStartDate = &d
		}
	}
	if recurEnd.Valid && recurEnd.String != "" {
		if d, err := ParseDate(recurEnd.String); err == nil {
			s.RecurEndDate = &d
		}
	}
	if timeStart.Valid {
		if t, err := ParseTimeOfDay(timeStart.String); err == nil {
			s.RecurTimeStart = &t
		}
	}
	if timeEnd.Valid {
		if t, err := ParseTimeOfDay(timeEnd.String); err == nil {
			s.RecurTimeEnd = &t
		}
	}
	if weekdays.Valid && weekdays.String != "" {
		var days []int
		if err := json.Unmarshal([]byte(weekdays.String), &days); err == nil {
			for _, d := range days {
				s.RecurWeekdays = append(s.RecurWeekdays, time.Weekday(d))
			}
		}
	}

	return &s, nil
}

// timestampLayouts are the formats the management services write.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses a stored instant; layouts without a zone are UTC.
func parseTimestamp(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v.String); err == nil {
			return &t
		}
	}
	return nil
}
