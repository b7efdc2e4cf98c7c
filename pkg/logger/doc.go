// Package logger provides a configured slog.Logger factory and attribute
// helpers shared across the overlay engine.
//
// The engine only ever emits advisory diagnostics (misuse warnings, lifecycle
// debug traces), so the factory stays small: level, format and output are
// configurable, everything else is slog.
//
//	log := logger.New(
//	    logger.WithLevel(slog.LevelDebug),
//	    logger.WithTextFormatter(),
//	)
//	engine := overlay.New(overlay.WithLogger(log))
//
// The attribute helpers keep log keys consistent:
//
//	log.Warn("persistent notification without explicit id",
//	    logger.Component("notifications"),
//	    logger.NotificationID(internalID),
//	)
package logger
