// Package logger wraps zap behind a small interface so components can
// be handed a logger through their constructors.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Interface is the logging surface the components depend on.
type Interface interface {
	Debug(message string, fields ...zap.Field)
	Info(message string, fields ...zap.Field)
	Warn(message string, fields ...zap.Field)
	Error(message string, fields ...zap.Field)
	Fatal(message string, fields ...zap.Field)
	Named(name string) Interface
	Sync() error
}

// Logger is a thin wrapper around zap.Logger.
type Logger struct {
	z *zap.Logger
}

// New builds a production logger at the given level ("debug", "info",
// "warn", "error"). Unknown levels fall back to info.
func New(level string) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) Debug(message string, fields ...zap.Field) { l.z.Debug(message, fields...) }
func (l *Logger) Info(message string, fields ...zap.Field)  { l.z.Info(message, fields...) }
func (l *Logger) Warn(message string, fields ...zap.Field)  { l.z.Warn(message, fields...) }
func (l *Logger) Error(message string, fields ...zap.Field) { l.z.Error(message, fields...) }
func (l *Logger) Fatal(message string, fields ...zap.Field) { l.z.Fatal(message, fields...) }

// Named returns a child logger tagged with the component name.
func (l *Logger) Named(name string) Interface { return &Logger{z: l.z.Named(name)} }

func (l *Logger) Sync() error { return l.z.Sync() }
