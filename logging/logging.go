// Package logging provides the structured logger used throughout the
// mapping pipeline, a thin wrapper over zap's SugaredLogger.
package logging

import "go.uber.org/zap"

// Logger is the structured logger handed to every component.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a production logger (JSON encoding, info level).
func New() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// NewDevelopment builds a console-friendly logger for local runs.
func NewDevelopment() (*Logger, error) {
	z, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// Named returns a child logger carrying an additional name component,
// scoping log lines to a subsystem.
func (l *Logger) Named(name string) *Logger {
	return &Logger{sugar: l.sugar.Named(name)}
}

func (l *Logger) Infow(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *Logger) Debugw(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *Logger) Warnw(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *Logger) Errorw(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }
func (l *Logger) Fatalw(msg string, kv ...interface{}) { l.sugar.Fatalw(msg, kv...) }

// Sync flushes any buffered log entries; call before process exit.
func (l *Logger) Sync() error { return l.sugar.Sync() }
