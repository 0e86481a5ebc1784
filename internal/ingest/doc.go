// Package ingest supervises the per-room camera relay subprocesses.
//
// A relay pulls a room's camera feed over RTSP and republishes it to the
// local streaming server without re-encoding video. At most one relay runs
// per room; the Supervisor owns the registry and is the only code that
// starts, signals or reaps relay processes.
//
// Lifecycle of one relay:
//
//	Start ─► running ─┬─► natural exit ─► reaped by watcher
//	                  └─► Stop ─► SIGINT ─┬─► exit within grace period
//	                                      └─► SIGKILL (once)
//
// Each relay runs in its own process group so that signals reach any helper
// processes it spawns. On construction the Supervisor kills relays left
// behind by a previous instance that are still publishing to the local
// endpoint.
//
// Usage:
//
//	sup := ingest.NewSupervisor(ingest.Config{
//	    Binary:        cfg.Relay.Binary,
//	    LocalEndpoint: cfg.Relay.LocalEndpoint,
//	    GracePeriod:   cfg.Relay.GracePeriod,
//	}, logger)
//	defer sup.StopAll()
//
//	err := sup.Start("room-a", "rtsp://10.0.0.21/stream1", "rtmp://127.0.0.1:1935/live/abc123")
package ingest
