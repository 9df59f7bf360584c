// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: coloured console output
//
// Components receive a named *zap.Logger from Logger.Component, e.g.
// "store", "reaper", "orchestrator", "http".
//
//	logger, err := logging.New(logging.Config{Level: "debug"})
//	logger.Component("store").Info("session created", zap.String("session_id", id))
package logging
