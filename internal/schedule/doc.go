// Package schedule classifies class schedules against the clock.
//
// Schedules are owned by the platform's schedule service; this package reads
// them and answers two questions for a given instant:
//
//   - Evaluate: is the class idle, upcoming (within the hour), live or past?
//   - ShouldRun: should the room's camera be running, once pre-roll and
//     post-roll buffers are applied?
//
// Both are pure functions of the schedule and the instant. Recurring
// schedules are interpreted in their own IANA timezone, so a 09:00 class
// stays at 09:00 local time across DST changes.
package schedule
