// Package logging wraps log/slog with the gateway's conventions: JSON
// or text output selected by config.yaml, level filtering, and default
// service/version fields on every record.
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting gateway", "port", 3000)
//	logger.Error("weather fetch failed", "error", err)
//
// Never log secrets or credentials (MQTT passwords in particular).
package logging
