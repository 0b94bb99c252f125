package api

import (
	"net/http"
)

// FarmInfo is the static farm metadata shown on the dashboard header.
type FarmInfo struct {
	Name        string   `json:"name"`
	Domain      string   `json:"domain"`
	DeviceCount int      `json:"device_count"`
	Features    []string `json:"features"`
}

// handleFarm returns farm identity and registry shape. Pure projection of
// configuration, so no caching.
func (s *Server) handleFarm(w http.ResponseWriter, _ *http.Request) {
	features := s.farm.Features
	if features == nil {
		features = []string{}
	}

	writeJSON(w, http.StatusOK, FarmInfo{
		Name:        s.farm.Name,
		Domain:      s.farm.Domain,
		DeviceCount: s.registry.Count(),
		Features:    features,
	})
}
