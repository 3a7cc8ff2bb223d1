// Package logging provides structured logging for the agora-math service.
//
// This package wraps Go's log/slog with a JSON handler so every request can
// be traced through the controller: which constraint the engine was called
// with, what the scaling policy decided, and which attempt was kept.
//
// # Basic Usage
//
//	logger, err := logging.New(logging.Options{
//	    Dir:      "/var/log/agora-math",
//	    Level:    "info",
//	    Rotation: logging.DefaultRotationConfig(),
//	})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	reqLogger := logger.WithRequest(requestID).WithConversation("3Fx9a", 42)
//	reqLogger.Info("solve completed", "engine_calls", 2, "groups", 3)
//
// An empty Dir writes to stderr. [NopLogger] discards everything and is
// meant for tests.
//
// # Log Rotation
//
// When Dir is set, entries go to {Dir}/agora-math.log through a
// [RotatingFile]. Once the file would exceed MaxSizeMB it is renamed to
// agora-math.log.1 (older backups shift up, the oldest beyond MaxBackups is
// removed) and, with Compress, gzipped to agora-math.log.1.gz.
//
// # Reading Logs Back
//
// [ReadEntries] parses the active file and every rotated backup (gzipped or
// not) into [Entry] values sorted by time. A [Filter] narrows them by level,
// time window, request id, conversation or message text, and [WriteEntries]
// prints them as text, JSON or CSV.
//
// # Thread Safety
//
// [Logger] and [RotatingFile] are safe for concurrent use.
package logging
