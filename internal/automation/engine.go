package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/studiocast-core/internal/audit"
	"github.com/nerrad567/studiocast-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/studiocast-core/internal/room"
	"github.com/nerrad567/studiocast-core/internal/schedule"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Supervisor is the relay control surface the engine drives.
type Supervisor interface {
	Start(roomID, sourceURL, destURL string) error
	Stop(roomID string) error
	IsRunning(roomID string) bool
}

// Publisher fans camera state and decisions out over MQTT.
type Publisher interface {
	PublishCameraState(roomID string, state any) error
	PublishDecision(roomID string, decision any) error
}

// MetricsWriter records tick summaries.
type MetricsWriter interface {
	WriteTick(sample influxdb.TickSample)
}

// TickResult summarises one sweep.
type TickResult struct {
	At        time.Time     `json:"at"`
	Duration  time.Duration `json:"duration"`
	Evaluated int           `json:"evaluated"`
	Invalid   int           `json:"invalid"`
	Started   int           `json:"started"`
	Stopped   int           `json:"stopped"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`

	// Entries are the decisions taken, in processing order.
	Entries []audit.Entry `json:"entries"`
}

// Engine reconciles relays with class schedules.
//
// Each tick evaluates every active schedule against the supervisor's view of
// the room and records one execution log entry per decision. Schedules are
// processed one after another. A failure on one schedule is logged and the
// sweep moves on; nothing is retried until the next tick.
//
// Thread Safety: Tick is safe for concurrent use. Overlapping calls return
// ErrTickInProgress instead of running concurrently.
type Engine struct {
	supervisor Supervisor
	schedules  schedule.Source
	rooms      room.Directory
	log        audit.Repository
	logger     Logger

	publisher Publisher
	metrics   MetricsWriter

	tickMu sync.Mutex
}

// NewEngine creates a schedule execution engine.
//
// Parameters:
//   - supervisor: relay supervisor that owns the camera processes
//   - schedules: source of active class schedules
//   - rooms: resolves camera endpoints for a room
//   - log: execution log receiving one entry per decision
//   - logger: Logger instance (may be nil)
func NewEngine(supervisor Supervisor, schedules schedule.Source, rooms room.Directory, log audit.Repository, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		supervisor: supervisor,
		schedules:  schedules,
		rooms:      rooms,
		log:        log,
		logger:     logger,
	}
}

// SetPublisher enables MQTT fan-out of decisions. Call before Run.
func (e *Engine) SetPublisher(p Publisher) {
	e.publisher = p
}

// SetMetrics enables tick metrics. Call before Run.
func (e *Engine) SetMetrics(m MetricsWriter) {
	e.metrics = m
}

// evaluated is one schedule's verdict for the current tick.
type evaluated struct {
	schedule *schedule.Schedule
	desired  bool
}

// Tick runs one reconciliation sweep as of now.
//
// It returns ErrTickInProgress if another tick is still running, and an
// error if the schedule list cannot be loaded. Per-schedule failures are
// reported through the result and the execution log, not the error.
func (e *Engine) Tick(ctx context.Context, now time.Time) (*TickResult, error) {
	if !e.tickMu.TryLock() {
		return nil, ErrTickInProgress
	}
	defer e.tickMu.Unlock()

	started := time.Now()
	result := &TickResult{At: now}

	list, err := e.schedules.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading schedules: %w", err)
	}

	// First pass: decide what each schedule wants and which rooms anyone
	// wants live.
	verdicts := make([]evaluated, 0, len(list))
	roomWanted := make(map[string]bool)
	for i := range list {
		s := &list[i]
		if !s.Automated() {
			continue
		}
		desired, evalErr := schedule.ShouldRun(s, now)
		if evalErr != nil {
			result.Invalid++
			e.logger.Warn("skipping invalid schedule",
				"schedule_id", s.ID,
				"room_id", s.RoomID,
				"error", evalErr,
			)
			continue
		}
		verdicts = append(verdicts, evaluated{schedule: s, desired: desired})
		if desired {
			roomWanted[s.RoomID] = true
		}
	}

	// Second pass: act.
	for _, v := range verdicts {
		if ctx.Err() != nil {
			break
		}
		result.Evaluated++
		e.reconcile(ctx, v, roomWanted[v.schedule.RoomID], now, result)
	}

	result.Duration = time.Since(started)

	e.logger.Info("scheduler tick complete",
		"evaluated", result.Evaluated,
		"started", result.Started,
		"stopped", result.Stopped,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"invalid", result.Invalid,
		"duration_ms", result.Duration.Milliseconds(),
	)

	if e.metrics != nil {
		e.metrics.WriteTick(influxdb.TickSample{
			At:        now,
			Duration:  result.Duration,
			Evaluated: result.Evaluated,
			Started:   result.Started,
			Stopped:   result.Stopped,
			Skipped:   result.Skipped,
			Failed:    result.Failed,
		})
	}

	return result, ctx.Err()
}

// reconcile applies the decision table to one schedule.
//
//	desired  running  flag       action
//	yes      no       autoStart  start, log start_camera
//	yes      yes      -          log skip_already_running
//	no       yes      autoStop   stop, log stop_camera (unless the room is wanted)
//	no       no       -          nothing
func (e *Engine) reconcile(ctx context.Context, v evaluated, roomWanted bool, now time.Time, result *TickResult) {
	s := v.schedule
	running := e.supervisor.IsRunning(s.RoomID)

	switch {
	case v.desired && running:
		result.Skipped++
		e.record(ctx, s, audit.ActionSkipAlreadyRunning, nil, now, result)

	case v.desired && s.AutoStartCamera:
		err := e.startCamera(ctx, s.RoomID)
		if err != nil {
			result.Failed++
			e.logger.Error("scheduled camera start failed",
				"schedule_id", s.ID,
				"room_id", s.RoomID,
				"error", err,
			)
		} else {
			result.Started++
			e.logger.Info("scheduled camera start",
				"schedule_id", s.ID,
				"room_id", s.RoomID,
			)
		}
		e.record(ctx, s, audit.ActionStartCamera, err, now, result)

	case !v.desired && running && s.AutoStopCamera:
		if roomWanted {
			e.logger.Debug("leaving camera running for another schedule",
				"schedule_id", s.ID,
				"room_id", s.RoomID,
			)
			return
		}
		err := e.supervisor.Stop(s.RoomID)
		if err != nil {
			result.Failed++
			e.logger.Error("scheduled camera stop failed",
				"schedule_id", s.ID,
				"room_id", s.RoomID,
				"error", err,
			)
		} else {
			result.Stopped++
			e.logger.Info("scheduled camera stop",
				"schedule_id", s.ID,
				"room_id", s.RoomID,
			)
		}
		e.record(ctx, s, audit.ActionStopCamera, err, now, result)
	}
}

func (e *Engine) startCamera(ctx context.Context, roomID string) error {
	endpoints, err := e.rooms.Endpoints(ctx, roomID)
	if err != nil {
		return err
	}
	return e.supervisor.Start(roomID, endpoints.SourceURL, endpoints.DestURL)
}

// record appends one execution log entry. A log failure never aborts the sweep.
func (e *Engine) record(ctx context.Context, s *schedule.Schedule, action audit.Action, actionErr error, now time.Time, result *TickResult) {
	entry := audit.Entry{
		CreatedAt:  now,
		ScheduleID: s.ID,
		RoomID:     s.RoomID,
		Action:     action,
		Success:    actionErr == nil,
	}
	if actionErr != nil {
		entry.ErrorMessage = actionErr.Error()
	}

	if err := e.log.Append(ctx, &entry); err != nil {
		e.logger.Error("failed to append execution log entry",
			"schedule_id", s.ID,
			"room_id", s.RoomID,
			"action", string(action),
			"error", err,
		)
	}
	result.Entries = append(result.Entries, entry)

	if e.publisher != nil {
		if err := e.publisher.PublishDecision(s.RoomID, entry); err != nil {
			e.logger.Debug("failed to publish scheduler decision",
				"room_id", s.RoomID,
				"error", err,
			)
		}
	}
}

// Run ticks immediately and then every interval until ctx is cancelled.
// A tick that overruns the interval delays the next one; ticks never queue.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	e.logger.Info("scheduler started", "tick_interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		e.runTick(ctx)

		select {
		case <-ctx.Done():
			e.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) runTick(ctx context.Context) {
	_, err := e.Tick(ctx, time.Now())
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, ErrTickInProgress):
		e.logger.Warn("scheduler tick skipped, previous tick still running")
	default:
		e.logger.Error("scheduler tick failed", "error", err)
	}
}

// ScheduleStatus is the evaluator's view of one schedule.
type ScheduleStatus struct {
	ScheduleID   string            `json:"schedule_id"`
	RoomID       string            `json:"room_id"`
	Status       schedule.Status   `json:"status"`
	MinutesUntil int               `json:"minutes_until,omitempty"`
	ShouldRun    bool              `json:"should_run"`
	CameraLive   bool              `json:"camera_live"`
	Windows      []schedule.Window `json:"windows"`
}

// ScheduleStatus evaluates a single schedule as of now.
func (e *Engine) ScheduleStatus(ctx context.Context, scheduleID string, now time.Time) (*ScheduleStatus, error) {
	s, err := e.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	eval, err := schedule.Evaluate(s, now)
	if err != nil {
		return nil, err
	}
	windows, err := schedule.DesiredWindows(s, now)
	if err != nil {
		return nil, err
	}

	status := &ScheduleStatus{
		ScheduleID:   s.ID,
		RoomID:       s.RoomID,
		Status:       eval.Status,
		MinutesUntil: eval.MinutesUntil,
		CameraLive:   e.supervisor.IsRunning(s.RoomID),
		Windows:      windows,
	}
	for _, w := range windows {
		if w.Contains(now) {
			status.ShouldRun = true
			break
		}
	}
	return status, nil
}
