package api

import (
	"net/http"
)

// handleWeather proxies a cached forecast query.
//
// Request coordinates take precedence over the configured farm location.
// With neither present the request is rejected before any network call.
// Upstream failures surface as 502 so the dashboard can tell a dead
// forecast service from a dead gateway.
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	lat := r.URL.Query().Get("lat")
	lon := r.URL.Query().Get("lon")

	if lat == "" {
		lat = s.farm.Location.Latitude
	}
	if lon == "" {
		lon = s.farm.Location.Longitude
	}

	if lat == "" || lon == "" {
		writeBadRequest(w, "lat and lon are required (no farm location configured)")
		return
	}

	forecast, err := s.weather.Fetch(r.Context(), lat, lon)
	if err != nil {
		s.logger.Warn("weather fetch failed", "lat", lat, "lon", lon, "error", err)
		writeBadGateway(w, "weather service unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(forecast)
}
