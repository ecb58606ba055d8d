// Package logging builds the log/slog loggers used across metricsd.
//
// Components accept a *slog.Logger at construction. When none is given they
// fall back to Nop, and they tag their records with Component:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.ParseLevel(cfg.LogLevel),
//	    Format: logging.ParseFormat(cfg.LogFormat),
//	})
//	srvLog := logging.Component(logger, "server")
//	srvLog.Info("listening", "addr", addr)
//
// Text output suits terminals; JSON suits log aggregation. Config.Mirror
// duplicates every record as JSON to a second writer such as a log file.
package logging
