package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// CommandHandler receives the payload of a camera command addressed to
// roomID. It runs on paho's delivery goroutine and must not block. A returned
// error is logged; the message is acknowledged either way.
type CommandHandler func(roomID string, payload []byte) error

// OnCameraCommand subscribes handler to studiocast/camera/+/command. The
// subscription is restored after a reconnect until StopCameraCommands.
func (c *Client) OnCameraCommand(handler CommandHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: nil handler", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.onCommand = handler
	c.mu.Unlock()

	topic := c.topics.AllCameraCommands()
	if err := await(c.paho.Subscribe(topic, c.qos, c.dispatchCommand), defaultPublishTimeout); err != nil {
		c.mu.Lock()
		c.onCommand = nil
		c.mu.Unlock()
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}
	return nil
}

// StopCameraCommands detaches the command handler and unsubscribes. Once it
// returns no further command reaches the handler, even one already in flight.
func (c *Client) StopCameraCommands() error {
	c.mu.Lock()
	listening := c.onCommand != nil
	c.onCommand = nil
	c.mu.Unlock()

	if !listening || !c.IsConnected() {
		return nil
	}
	if err := await(c.paho.Unsubscribe(c.topics.AllCameraCommands()), defaultPublishTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}
	return nil
}

// dispatchCommand routes one command message to the active handler.
func (c *Client) dispatchCommand(_ pahomqtt.Client, msg pahomqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.log().Error("camera command handler panic recovered",
				"topic", msg.Topic(),
				"panic", r,
			)
		}
	}()

	c.mu.RLock()
	handler := c.onCommand
	c.mu.RUnlock()
	if handler == nil {
		return
	}

	roomID, ok := RoomFromCameraTopic(msg.Topic())
	if !ok {
		c.log().Warn("dropping command on unexpected topic", "topic", msg.Topic())
		return
	}

	if err := handler(roomID, msg.Payload()); err != nil {
		c.log().Warn("camera command rejected",
			"room_id", roomID,
			"error", err,
		)
	}
}
