package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementSchedulerTicks = "scheduler_ticks"
	MeasurementCameraSessions = "camera_sessions"
)

// TickSample summarises one scheduler sweep.
type TickSample struct {
	At        time.Time
	Duration  time.Duration
	Evaluated int
	Started   int
	Stopped   int
	Skipped   int
	Failed    int
}

// CameraSession describes one relay run from start to exit.
type CameraSession struct {
	RoomID  string
	EndedAt time.Time
	// Duration is how long the relay ran.
	Duration time.Duration
	// Success is false when the relay exited with an error.
	Success bool
	// Reason is "stopped" for a requested stop and "exited" otherwise.
	Reason string
}

// WriteTick records a scheduler sweep. Non-blocking.
func (c *Client) WriteTick(sample TickSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(tickPoint(c.site, sample))
}

// WriteCameraSession records a finished relay run. Non-blocking.
func (c *Client) WriteCameraSession(session CameraSession) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(sessionPoint(c.site, session))
}

func tickPoint(site string, s TickSample) *write.Point {
	return write.NewPoint(
		MeasurementSchedulerTicks,
		map[string]string{"site": site},
		map[string]interface{}{
			"duration_ms": s.Duration.Milliseconds(),
			"evaluated":   s.Evaluated,
			"started":     s.Started,
			"stopped":     s.Stopped,
			"skipped":     s.Skipped,
			"failed":      s.Failed,
		},
		s.At,
	)
}

func sessionPoint(site string, s CameraSession) *write.Point {
	return write.NewPoint(
		MeasurementCameraSessions,
		map[string]string{
			"site":    site,
			"room_id": s.RoomID,
			"reason":  s.Reason,
		},
		map[string]interface{}{
			"duration_s": s.Duration.Seconds(),
			"success":    s.Success,
		},
		s.EndedAt,
	)
}
