// Package mqtt provides MQTT connectivity for Studiocast Capture Core.
//
// The broker is how the core's state reaches the rest of the platform:
//
//	studiocast/camera/{room}/state          retained live/offline state per room
//	studiocast/camera/{room}/command        operator start/stop requests
//	studiocast/scheduler/decision/{room}    audited scheduler decisions
//	studiocast/system/status                retained online/offline (LWT)
//
// The access/analytics layer subscribes to camera state instead of polling
// the core's HTTP API.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishCameraState("room-a", state)
//	err = client.OnCameraCommand(func(roomID string, payload []byte) error { ... })
//
// Publishing requires a connected client; callers that treat MQTT as
// optional check IsConnected or log the returned ErrNotConnected.
package mqtt
