package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListCameras returns every running relay.
func (s *Server) handleListCameras(w http.ResponseWriter, _ *http.Request) {
	cameras := s.supervisor.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"cameras": cameras,
		"count":   len(cameras),
	})
}

// handleGetCamera returns one room's relay status.
func (s *Server) handleGetCamera(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, s.supervisor.GetStatus(roomID))
}

// handleStartCamera starts the room's relay using its configured endpoints.
func (s *Server) handleStartCamera(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	endpoints, err := s.rooms.Endpoints(r.Context(), roomID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.supervisor.Start(roomID, endpoints.SourceURL, endpoints.DestURL); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.Info("camera started via API",
		"room_id", roomID,
		"subject", subjectOf(r),
	)
	writeJSON(w, http.StatusOK, s.supervisor.GetStatus(roomID))
}

// handleStopCamera stops the room's relay. It blocks until the relay has exited.
func (s *Server) handleStopCamera(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	if err := s.supervisor.Stop(roomID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.Info("camera stopped via API",
		"room_id", roomID,
		"subject", subjectOf(r),
	)
	writeJSON(w, http.StatusOK, s.supervisor.GetStatus(roomID))
}

func subjectOf(r *http.Request) string {
	if claims := claimsFromContext(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}
