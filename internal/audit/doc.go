// Package audit records scheduler decisions in the schedule_execution_logs table.
//
// The log is append-only: the core inserts one entry per camera decision
// and never updates or deletes entries. Operators and the dashboard query it
// by schedule or room, newest first.
package audit
