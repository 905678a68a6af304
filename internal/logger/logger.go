// Package logger wraps zap construction so main can configure the
// level from one string.
package logger

import "go.uber.org/zap"

// Logger carries the shared zap instance.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger with a no-op zap until Init is called.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init builds a production zap logger at the given level.
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	log, err := cfg.Build()
	if err != nil {
		return err
	}
	l.Log = log
	return nil
}
