// Package log provides structured logging with invocation context.
//
// Two logger variants are available:
//   - Logger: Non-sugared zap.Logger for workflow and wire code (structured fields)
//   - SugaredLogger: Printf-style lines for long-running binaries (fpgaload-agent-mock)
//
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
package log

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Meta identifies one CLI invocation. All fields are optional.
type Meta struct {
	// Command is the CLI command being run (e.g. "overlay").
	Command string
	// Target is the agent address.
	Target string
	// InvocationID correlates all entries of one invocation.
	InvocationID string
}

// NewInvocationID returns a random 8-byte hex identifier.
func NewInvocationID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "0000000000000000"
	}
	return hex.EncodeToString(b[:])
}

// Logger provides structured logging with invocation context.
type Logger struct {
	zap *zap.Logger
}

// SugaredLogger provides printf-style logging for CLI surfaces.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// ParseLevel parses a level name ("debug", "info", "warn", "error").
// An empty name selects warn.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.WarnLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zapcore.WarnLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// NewLogger creates a logger with invocation context writing to os.Stderr.
func NewLogger(meta Meta, level zapcore.Level) *Logger {
	return NewLoggerWithWriter(meta, level, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(meta Meta, level zapcore.Level, w io.Writer) *Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	var contextFields []zap.Field
	if meta.Command != "" {
		contextFields = append(contextFields, zap.String("command", meta.Command))
	}
	if meta.Target != "" {
		contextFields = append(contextFields, zap.String("target", meta.Target))
	}
	if meta.InvocationID != "" {
		contextFields = append(contextFields, zap.String("invocation_id", meta.InvocationID))
	}

	return &Logger{zap: zap.New(core).With(contextFields...)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// With returns a logger carrying additional fields on every entry.
func (l *Logger) With(fields map[string]any) *Logger {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return &Logger{zap: l.zap.With(zf...)}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) {
	s.sugar.Errorf(template, args...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
