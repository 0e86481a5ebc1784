// Package automation drives room cameras from class schedules.
//
// The Engine sweeps all active schedules on a fixed interval and reconciles
// each room's relay with what its schedules want. Every decision is written
// to the execution log.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────┐
//	│                  Engine (engine.go)                   │
//	│  ┌──────────────┐    ┌──────────────┐                 │
//	│  │  schedule.   │    │    room.     │                 │
//	│  │   Source     │    │  Directory   │                 │
//	│  └──────┬───────┘    └──────┬───────┘                 │
//	│         ▼                   ▼                         │
//	│  ┌──────────────────────────────────────────────┐     │
//	│  │  Tick                                        │     │
//	│  │  1. Load active schedules                    │     │
//	│  │  2. Evaluate desired windows per schedule    │     │
//	│  │  3. Aggregate desired state per room         │     │
//	│  │  4. Start / skip / stop via Supervisor       │     │
//	│  │  5. Append audit entry, publish decision     │     │
//	│  └──────────────────────────────────────────────┘     │
//	└───────────────────────────────────────────────────────┘
//
//	CameraEvents (events.go)     relay lifecycle → MQTT state + InfluxDB
//	CommandListener (commands.go) MQTT start/stop → Supervisor
//
// # Thread Safety
//
// Engine.Tick may be called from the Run loop and the API at the same time.
// Only one sweep runs at once; the other caller gets ErrTickInProgress.
//
// # Usage
//
//	engine := automation.NewEngine(supervisor, schedules, rooms, execLog, log)
//	engine.SetPublisher(mqttClient)
//	engine.SetMetrics(influxClient)
//	go engine.Run(ctx, cfg.Scheduler.TickInterval)
package automation
