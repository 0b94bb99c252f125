package weather

import "errors"

// Sentinel errors for weather operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, weather.ErrUpstream) {
//	    // surface as a gateway-level failure
//	}
var (
	// ErrUpstream indicates the forecast request could not be completed
	// (transport failure or timeout).
	ErrUpstream = errors.New("weather: upstream request failed")

	// ErrUpstreamStatus indicates the forecast service answered with a
	// non-2xx status.
	ErrUpstreamStatus = errors.New("weather: unexpected upstream status")
)
