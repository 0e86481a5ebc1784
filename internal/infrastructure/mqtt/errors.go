package mqtt

import "errors"

// Errors returned by the MQTT client. Check with errors.Is.
var (
	ErrNotConnected      = errors.New("mqtt: broker link down")
	ErrConnectionFailed  = errors.New("mqtt: cannot reach broker")
	ErrPublishFailed     = errors.New("mqtt: publish not acknowledged")
	ErrSubscribeFailed   = errors.New("mqtt: command subscription failed")
	ErrUnsubscribeFailed = errors.New("mqtt: command unsubscribe failed")

	// ErrInvalidQoS is returned by Connect for QoS levels other than 0, 1 or 2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidRoom is returned when a camera topic would have an empty room segment.
	ErrInvalidRoom = errors.New("mqtt: room id required")
)
