package automation

import (
	"time"

	"github.com/nerrad567/studiocast-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/studiocast-core/internal/ingest"
)

// Camera states published on studiocast/camera/{room}/state.
const (
	CameraStateLive    = "live"
	CameraStateOffline = "offline"
)

// SessionWriter records finished relay sessions.
type SessionWriter interface {
	WriteCameraSession(session influxdb.CameraSession)
}

// CameraState is the retained payload describing a room's relay.
type CameraState struct {
	RoomID    string    `json:"room_id"`
	State     string    `json:"state"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	Reason    string    `json:"reason,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CameraEvents turns relay lifecycle callbacks into retained MQTT state and
// session metrics. It implements ingest.Observer. Either sink may be nil.
type CameraEvents struct {
	publisher Publisher
	sessions  SessionWriter
	logger    Logger
	now       func() time.Time
}

// NewCameraEvents creates an observer publishing to publisher and sessions.
func NewCameraEvents(publisher Publisher, sessions SessionWriter, logger Logger) *CameraEvents {
	if logger == nil {
		logger = noopLogger{}
	}
	return &CameraEvents{
		publisher: publisher,
		sessions:  sessions,
		logger:    logger,
		now:       time.Now,
	}
}

// RelayStarted publishes the live state.
func (c *CameraEvents) RelayStarted(status ingest.Status) {
	c.publish(CameraState{
		RoomID:    status.RoomID,
		State:     CameraStateLive,
		PID:       status.PID,
		StartedAt: status.StartedAt,
		Timestamp: c.now().UTC(),
	})
}

// RelayExited publishes the offline state and records the session.
func (c *CameraEvents) RelayExited(exit ingest.Exit) {
	reason := "exited"
	if exit.Requested {
		reason = "stopped"
	}
	now := c.now().UTC()

	state := CameraState{
		RoomID:    exit.RoomID,
		State:     CameraStateOffline,
		StartedAt: exit.StartedAt,
		Reason:    reason,
		Timestamp: now,
	}
	if exit.Err != nil {
		state.Error = exit.Err.Error()
	}
	c.publish(state)

	if c.sessions != nil {
		c.sessions.WriteCameraSession(influxdb.CameraSession{
			RoomID:   exit.RoomID,
			EndedAt:  now,
			Duration: exit.Duration,
			Success:  exit.Err == nil,
			Reason:   reason,
		})
	}
}

func (c *CameraEvents) publish(state CameraState) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishCameraState(state.RoomID, state); err != nil {
		c.logger.Warn("failed to publish camera state",
			"room_id", state.RoomID,
			"state", state.State,
			"error", err,
		)
	}
}
