package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes. Everything the core publishes lives under "studiocast/".
const (
	TopicPrefix = "studiocast"

	TopicPrefixCamera    = TopicPrefix + "/camera"
	TopicPrefixScheduler = TopicPrefix + "/scheduler"
	TopicPrefixSystem    = TopicPrefix + "/system"
)

// Topics provides builders for Studiocast MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.CameraState("room-a") // "studiocast/camera/room-a/state"
type Topics struct{}

// CameraState is the retained live/offline state of a room's relay.
//
// Example: studiocast/camera/room-a/state
func (Topics) CameraState(roomID string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixCamera, roomID)
}

// CameraCommand carries operator start/stop requests for a room.
//
// Example: studiocast/camera/room-a/command
func (Topics) CameraCommand(roomID string) string {
	return fmt.Sprintf("%s/%s/command", TopicPrefixCamera, roomID)
}

// SchedulerDecision carries each audited scheduler decision for a room.
//
// Example: studiocast/scheduler/decision/room-a
func (Topics) SchedulerDecision(roomID string) string {
	return fmt.Sprintf("%s/decision/%s", TopicPrefixScheduler, roomID)
}

// SystemStatus returns the core's online/offline status topic.
//
// Example: studiocast/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllCameraStates matches every room's camera state.
//
// Pattern: studiocast/camera/+/state
func (Topics) AllCameraStates() string {
	return TopicPrefixCamera + "/+/state"
}

// AllCameraCommands matches every room's command topic.
//
// Pattern: studiocast/camera/+/command
func (Topics) AllCameraCommands() string {
	return TopicPrefixCamera + "/+/command"
}

// AllSchedulerDecisions matches every room's decision topic.
//
// Pattern: studiocast/scheduler/decision/+
func (Topics) AllSchedulerDecisions() string {
	return TopicPrefixScheduler + "/decision/+"
}

// RoomFromCameraTopic extracts the room ID from a studiocast/camera/{room}/...
// topic. It returns false for topics outside the camera hierarchy.
func RoomFromCameraTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixCamera+"/")
	if !ok {
		return "", false
	}
	roomID, leaf, found := strings.Cut(rest, "/")
	if !found || roomID == "" || leaf == "" {
		return "", false
	}
	return roomID, true
}
