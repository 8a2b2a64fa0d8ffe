// Package logger provides structured logging for the launcher.
//
// User-facing status lines go to stdout; the log file is the debugging
// channel and records every decision the update orchestration makes.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Logger is the structured logging interface used across the launcher.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...any)

	// With returns a new logger with additional key-value pairs.
	With(keysAndValues ...any) Logger
}

// Level represents the log level.
type Level int

const (
	// LevelDebug enables all messages.
	LevelDebug Level = iota

	// LevelInfo enables info and error messages.
	LevelInfo

	// LevelError enables only error messages.
	LevelError
)

// String returns the level name as written to the log file.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	default:
		return "ERROR"
	}
}

// LogFilePermissions is the file mode for log files (owner read/write only).
const LogFilePermissions = 0o600

// LogDirPermissions is the directory mode for the log file's parent
// directory (owner only).
const LogDirPermissions = 0o700

// FileLogger implements Logger with file output only.
type FileLogger struct {
	file     io.Writer
	baseKVs  []any
	minLevel Level
}

// NewFileLogger creates a FileLogger appending to the log file at path,
// creating the parent directory when it does not exist yet. On a fresh
// machine the state directory only appears on the first run.
func NewFileLogger(path string, minLevel Level) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), LogDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	//nolint:gosec // G304: path is the launcher's own state-dir log file
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &FileLogger{file: file, minLevel: minLevel}, nil
}

// NewFileLoggerWithWriter creates a FileLogger with a custom writer.
func NewFileLoggerWithWriter(file io.Writer, minLevel Level) *FileLogger {
	return &FileLogger{file: file, minLevel: minLevel}
}

// Debug logs debug-level messages.
func (l *FileLogger) Debug(msg string, keysAndValues ...any) {
	l.log(LevelDebug, msg, keysAndValues...)
}

// Info logs info-level messages.
func (l *FileLogger) Info(msg string, keysAndValues ...any) {
	l.log(LevelInfo, msg, keysAndValues...)
}

// Error logs error-level messages.
func (l *FileLogger) Error(msg string, keysAndValues ...any) {
	l.log(LevelError, msg, keysAndValues...)
}

// With returns a new logger with additional base key-value pairs.
//
//nolint:ireturn // With is intended to return an interface for chaining
func (l *FileLogger) With(keysAndValues ...any) Logger {
	newKVs := make([]any, len(l.baseKVs)+len(keysAndValues))
	copy(newKVs, l.baseKVs)
	copy(newKVs[len(l.baseKVs):], keysAndValues)

	return &FileLogger{
		file:     l.file,
		baseKVs:  newKVs,
		minLevel: l.minLevel,
	}
}

func (l *FileLogger) log(level Level, msg string, keysAndValues ...any) {
	if level < l.minLevel {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05Z")

	var builder strings.Builder

	builder.WriteString(timestamp)
	builder.WriteString(" ")
	builder.WriteString(level.String())
	builder.WriteString(" ")
	builder.WriteString(msg)

	if len(l.baseKVs) > 0 {
		writeKeyValues(&builder, l.baseKVs)
	}

	if len(keysAndValues) > 0 {
		writeKeyValues(&builder, keysAndValues)
	}

	builder.WriteString("\n")

	if l.file != nil {
		_, _ = l.file.Write([]byte(builder.String()))
	}
}

// writeKeyValues formats key-value pairs and appends them to builder.
func writeKeyValues(builder *strings.Builder, kvs []any) {
	for i := 0; i < len(kvs); i += 2 {
		if i+1 >= len(kvs) {
			// Odd number of arguments, skip the last one
			break
		}

		key := fmt.Sprintf("%v", kvs[i])
		value := fmt.Sprintf("%v", kvs[i+1])

		builder.WriteString(" ")
		builder.WriteString(key)
		builder.WriteString("=")

		if strings.ContainsAny(value, " \t\n\"") {
			builder.WriteString(quote(value))
		} else {
			builder.WriteString(value)
		}
	}
}

// quote escapes and quotes a string value.
func quote(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")

	return "\"" + s + "\""
}

// NoOpLogger is a logger that does nothing.
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// Debug does nothing.
func (*NoOpLogger) Debug(string, ...any) {}

// Info does nothing.
func (*NoOpLogger) Info(string, ...any) {}

// Error does nothing.
func (*NoOpLogger) Error(string, ...any) {}

// With returns the same NoOpLogger.
//
//nolint:ireturn // With is intended to return an interface for chaining
func (n *NoOpLogger) With(...any) Logger {
	return n
}
