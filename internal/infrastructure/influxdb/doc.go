// Package influxdb writes operational metrics for Studiocast Capture Core.
//
// Two measurements are recorded:
//   - scheduler_ticks: one point per scheduler sweep with decision counts
//   - camera_sessions: one point per relay run with its duration and outcome
//
// InfluxDB is optional. When disabled, Connect returns ErrDisabled and
// callers run without metrics; every write method is a no-op on a nil or
// closed client.
package influxdb
