// Package logging provides structured logging for Hood Bridge.
//
// It wraps log/slog with JSON or text output, level filtering, and the
// default attributes service=hoodbridge and version.
//
// Configuration (config.yaml):
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("discovery pass complete", "created", 1, "reused", 2)
//
// Never log the Miele bearer token. Log config.MieleConfig through its
// String method, which masks it.
package logging
