package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide SugaredLogger.
// It is a no-op until Initialize is called, so packages can log safely in tests.
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// Initialize builds the production logger at the given level.
func Initialize(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = logger.Sugar()
	return nil
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	_ = Log.Sync()
}
