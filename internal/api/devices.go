package api

import (
	"net/http"
)

// handleDevices returns the status of every registered device.
//
// The poller serves a cached sweep when one is fresh, otherwise it fans out
// to the fleet. Unreachable devices appear as offline entries rather than
// failing the request, so this endpoint never 5xxs on device trouble.
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	sweep := s.poller.PollAll(r.Context())
	writeJSON(w, http.StatusOK, sweep)
}
