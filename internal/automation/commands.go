package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/studiocast-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/studiocast-core/internal/ingest"
	"github.com/nerrad567/studiocast-core/internal/room"
)

// Camera command actions accepted on studiocast/camera/{room}/command.
const (
	CommandStart = "start"
	CommandStop  = "stop"
)

// commandTimeout bounds the endpoint lookup for one command.
const commandTimeout = 10 * time.Second

// CommandSource delivers camera commands per room. *mqtt.Client implements it.
type CommandSource interface {
	OnCameraCommand(handler mqtt.CommandHandler) error
	StopCameraCommands() error
}

// CameraCommand is the payload of a camera command message.
type CameraCommand struct {
	Action string `json:"action"`
}

// CommandListener executes operator start/stop requests arriving over MQTT.
//
// Messages are validated on the MQTT goroutine and executed on their own
// goroutine, since a stop can block for the relay's grace period.
type CommandListener struct {
	supervisor Supervisor
	rooms      room.Directory
	logger     Logger

	mu     sync.Mutex
	source CommandSource
	closed bool
	wg     sync.WaitGroup
}

// NewCommandListener creates a listener that drives supervisor.
func NewCommandListener(supervisor Supervisor, rooms room.Directory, logger Logger) *CommandListener {
	if logger == nil {
		logger = noopLogger{}
	}
	return &CommandListener{
		supervisor: supervisor,
		rooms:      rooms,
		logger:     logger,
	}
}

// Listen attaches the listener to src.
func (l *CommandListener) Listen(src CommandSource) error {
	if err := src.OnCameraCommand(l.HandleCommand); err != nil {
		return fmt.Errorf("subscribing to camera commands: %w", err)
	}
	l.mu.Lock()
	l.source = src
	l.mu.Unlock()
	return nil
}

// HandleCommand parses a command for roomID and dispatches it.
func (l *CommandListener) HandleCommand(roomID string, payload []byte) error {
	var cmd CameraCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decoding camera command: %w", err)
	}
	if cmd.Action != CommandStart && cmd.Action != CommandStop {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Action)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return fmt.Errorf("%w: dropping %s for room %s", ErrListenerClosed, cmd.Action, roomID)
	}
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		l.execute(roomID, cmd.Action)
	}()
	return nil
}

// Close detaches from the command source, refuses further commands and waits
// for the ones already dispatched. Call it before stopping the relays so no
// command can start one afterwards.
func (l *CommandListener) Close() error {
	l.mu.Lock()
	src := l.source
	l.source = nil
	l.closed = true
	l.mu.Unlock()

	var err error
	if src != nil {
		err = src.StopCameraCommands()
	}
	l.wg.Wait()
	return err
}

func (l *CommandListener) execute(roomID, action string) {
	var err error
	switch action {
	case CommandStart:
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		var endpoints room.Endpoints
		endpoints, err = l.rooms.Endpoints(ctx, roomID)
		if err == nil {
			err = l.supervisor.Start(roomID, endpoints.SourceURL, endpoints.DestURL)
		}
	case CommandStop:
		err = l.supervisor.Stop(roomID)
	}

	if err != nil {
		level := l.logger.Error
		if errors.Is(err, ingest.ErrStateConflict) || errors.Is(err, room.ErrRoomNotFound) || errors.Is(err, room.ErrNoCamera) {
			level = l.logger.Warn
		}
		level("camera command failed", "room_id", roomID, "action", action, "error", err)
		return
	}
	l.logger.Info("camera command executed", "room_id", roomID, "action", action)
}
