package automation

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/studiocast-core/internal/ingest"
)

func newTestCameraEvents() (*CameraEvents, *mockMQTT, *mockMetrics) {
	pub := &mockMQTT{}
	metrics := &mockMetrics{}
	events := NewCameraEvents(pub, metrics, nil)
	events.now = func() time.Time { return classStart }
	return events, pub, metrics
}

func TestCameraEvents_RelayStarted(t *testing.T) {
	events, pub, metrics := newTestCameraEvents()

	events.RelayStarted(ingest.Status{
		RoomID:    "room-a",
		Running:   true,
		PID:       4242,
		StartedAt: classStart.Add(-time.Second),
	})

	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Topic != "studiocast/camera/room-a/state" {
		t.Errorf("topic = %q", msg.Topic)
	}
	if !msg.Retained {
		t.Error("camera state should be retained")
	}
	state, ok := msg.Value.(CameraState)
	if !ok {
		t.Fatalf("payload type = %T, want CameraState", msg.Value)
	}
	if state.State != CameraStateLive || state.PID != 4242 {
		t.Errorf("state = %+v, want live with pid 4242", state)
	}
	if len(metrics.sessions) != 0 {
		t.Error("no session should be written on start")
	}
}

func TestCameraEvents_RelayExited(t *testing.T) {
	tests := []struct {
		name        string
		exit        ingest.Exit
		wantReason  string
		wantSuccess bool
		wantError   bool
	}{
		{
			name:        "requested stop",
			exit:        ingest.Exit{RoomID: "room-a", Duration: time.Hour, Requested: true},
			wantReason:  "stopped",
			wantSuccess: true,
		},
		{
			name:        "crash",
			exit:        ingest.Exit{RoomID: "room-a", Duration: time.Minute, Err: errors.New("exit status 1")},
			wantReason:  "exited",
			wantSuccess: false,
			wantError:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, pub, metrics := newTestCameraEvents()

			events.RelayExited(tt.exit)

			if len(pub.messages) != 1 {
				t.Fatalf("published %d messages, want 1", len(pub.messages))
			}
			state := pub.messages[0].Value.(CameraState)
			if state.State != CameraStateOffline || state.Reason != tt.wantReason {
				t.Errorf("state = %+v, want offline/%s", state, tt.wantReason)
			}
			if (state.Error != "") != tt.wantError {
				t.Errorf("Error = %q, wantError %v", state.Error, tt.wantError)
			}

			if len(metrics.sessions) != 1 {
				t.Fatalf("sessions = %d, want 1", len(metrics.sessions))
			}
			session := metrics.sessions[0]
			if session.Success != tt.wantSuccess || session.Reason != tt.wantReason {
				t.Errorf("session = %+v", session)
			}
			if session.Duration != tt.exit.Duration || !session.EndedAt.Equal(classStart) {
				t.Errorf("session timing = %v ending %v", session.Duration, session.EndedAt)
			}
		})
	}
}

func TestCameraEvents_NilSinks(t *testing.T) {
	events := NewCameraEvents(nil, nil, nil)

	// Must not panic without MQTT or InfluxDB.
	events.RelayStarted(ingest.Status{RoomID: "room-a"})
	events.RelayExited(ingest.Exit{RoomID: "room-a"})
}

func TestCameraEvents_PublishFailureLogged(t *testing.T) {
	logger := &recordingLogger{}
	events := NewCameraEvents(&mockMQTT{failOn: "studiocast/camera/room-a/state"}, nil, logger)

	events.RelayStarted(ingest.Status{RoomID: "room-a"})

	if !logger.contains("failed to publish camera state room_id=room-a") {
		t.Error("expected publish failure to be logged")
	}
}
