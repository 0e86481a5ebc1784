package mqtt

import (
	"encoding/json"
	"fmt"
)

// maxPayloadSize caps a single published message (1MB).
const maxPayloadSize = 1 << 20

// PublishCameraState publishes a room's relay state, retained so the
// analytics layer sees the current value as soon as it subscribes.
func (c *Client) PublishCameraState(roomID string, state any) error {
	if roomID == "" {
		return ErrInvalidRoom
	}
	return c.publishJSON(c.topics.CameraState(roomID), state, true)
}

// PublishDecision publishes one audited scheduler decision for a room.
// Decisions are events, never retained.
func (c *Client) PublishDecision(roomID string, decision any) error {
	if roomID == "" {
		return ErrInvalidRoom
	}
	return c.publishJSON(c.topics.SchedulerDecision(roomID), decision, false)
}

func (c *Client) publishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", ErrPublishFailed, topic, err)
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %s payload is %d bytes, limit %d", ErrPublishFailed, topic, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := await(c.paho.Publish(topic, c.qos, retained, payload), defaultPublishTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}
