package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action is the decision the scheduler took.
type Action string

const (
	ActionStartCamera        Action = "start_camera"
	ActionStopCamera         Action = "stop_camera"
	ActionSkipAlreadyRunning Action = "skip_already_running"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionStartCamera, ActionStopCamera, ActionSkipAlreadyRunning:
		return true
	}
	return false
}

// Entry is one scheduler decision.
type Entry struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	ScheduleID   string    `json:"schedule_id"`
	RoomID       string    `json:"room_id"`
	Action       Action    `json:"action"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Filter selects entries. Both IDs are optional and combine with AND.
type Filter struct {
	ScheduleID string
	RoomID     string
	Limit      int // default 50, max 200
	Offset     int
}

// ListResult is one page of entries plus the total matching the filter.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

const (
	defaultLimit = 50
	maxLimit     = 200

	// timestampLayout is fixed-width so that text ordering matches time ordering.
	timestampLayout = "2006-01-02T15:04:05.000000Z"
)

// ErrInvalidEntry is returned by Append for entries missing required fields.
var ErrInvalidEntry = errors.New("audit: invalid entry")

// Repository is the execution log.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores execution log entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new execution log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts a new entry. ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Append(ctx context.Context, entry *Entry) error {
	if entry.ScheduleID == "" || entry.RoomID == "" || !entry.Action.Valid() {
		return fmt.Errorf("%w: schedule_id, room_id and a known action are required", ErrInvalidEntry)
	}
	if entry.ID == "" {
		entry.ID = "sel-" + uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO schedule_execution_logs (id, schedule_id, room_id, action, success, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ScheduleID, entry.RoomID, string(entry.Action),
		boolToInt(entry.Success), nullableString(entry.ErrorMessage),
		entry.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting execution log entry: %w", err)
	}
	return nil
}

// List returns entries matching the filter, newest first. Pages are stable
// only while nothing is appended between calls.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.ScheduleID != "" {
		conditions = append(conditions, "schedule_id = ?")
		args = append(args, filter.ScheduleID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, "room_id = ?")
		args = append(args, filter.RoomID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM schedule_execution_logs " + where //nolint:gosec // WHERE built from parameterised conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting execution log entries: %w", err)
	}

	// rowid breaks ties between entries written within the same microsecond.
	query := `SELECT id, schedule_id, room_id, action, success, error_message, created_at
		FROM schedule_execution_logs ` + where + ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?` //nolint:gosec // as above
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying execution log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var action, createdAt string
		var success int
		var errMsg sql.NullString

		if err := rows.Scan(&e.ID, &e.ScheduleID, &e.RoomID, &action, &success, &errMsg, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning execution log entry: %w", err)
		}
		e.Action = Action(action)
		e.Success = success != 0
		e.ErrorMessage = errMsg.String

		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing execution log timestamp %q: %w", createdAt, err)
		}
		e.CreatedAt = t

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating execution log: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
