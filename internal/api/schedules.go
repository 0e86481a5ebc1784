package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/studiocast-core/internal/audit"
)

// handleScheduleStatus evaluates one schedule as of now.
func (s *Server) handleScheduleStatus(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "scheduler not available")
		return
	}

	status, err := s.scheduler.ScheduleStatus(r.Context(), chi.URLParam(r, "id"), s.now())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleSchedulerTick runs a sweep immediately. It returns 409 if one is
// already running. An accepted sweep runs to completion even if the client
// goes away.
func (s *Server) handleSchedulerTick(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "scheduler not available")
		return
	}

	result, err := s.scheduler.Tick(context.WithoutCancel(r.Context()), s.now())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.Info("scheduler tick triggered via API", "subject", subjectOf(r))
	writeJSON(w, http.StatusOK, result)
}

// handleListExecutions returns a page of the execution log, newest first.
//
// Query parameters: schedule_id, room_id, limit, offset.
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		ScheduleID: q.Get("schedule_id"),
		RoomID:     q.Get("room_id"),
	}

	var ok bool
	if filter.Limit, ok = parseNonNegative(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = parseNonNegative(w, q.Get("offset"), "offset"); !ok {
		return
	}

	result, err := s.execLog.List(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseNonNegative parses an optional integer query parameter, writing a 400
// and returning false when it is malformed.
func parseNonNegative(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeBadRequest(w, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
