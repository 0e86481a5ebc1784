// Package api implements the HTTP REST API for Studiocast Capture Core.
//
// This package provides:
//   - Camera status and manual start/stop per room
//   - Schedule status evaluation and manual scheduler ticks
//   - Paginated access to the schedule execution log
//   - JWT bearer authentication with role-based permissions
//   - Middleware stack (request ID, logging, recovery, body size limit)
//   - TLS support for production deployments
//
// # Architecture
//
// The API sits between the platform's other services (studio management,
// dashboard backend) and the relay supervisor. It owns no records: rooms and
// schedules are read from the shared store, camera state comes from the
// supervisor, and decisions come from the execution log.
//
// # Security
//
// Every route except /api/v1/health requires an HS256 bearer token issued by
// the platform's auth service. See package auth for the role model.
package api
