package proxy

import "errors"

// Sentinel errors for configuration apply operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, proxy.ErrValidationFailed) {
//	    // previous configuration is still active
//	}
var (
	// ErrValidationFailed indicates the external validator rejected the
	// generated configuration. The previous configuration has been
	// restored and remains active.
	ErrValidationFailed = errors.New("proxy: generated config rejected by validator")

	// ErrReloadFailed indicates the reverse proxy failed to reload after
	// a successfully validated configuration was installed.
	ErrReloadFailed = errors.New("proxy: reload failed")

	// ErrWriteFailed indicates the configuration file could not be written.
	ErrWriteFailed = errors.New("proxy: writing config failed")
)
