package logging

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Level represents the severity level of a log message
type Level int

const (
	// Debug level for detailed troubleshooting information
	Debug Level = iota
	// Info level for general operational information
	Info
	// Warn level for non-critical issues
	Warn
	// Error level for errors that should be investigated
	Error
)

// String returns the string representation of a log level
func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", l)
	}
}

// ParseLevel converts a configured level name to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "", "info":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	default:
		return Info, fmt.Errorf("invalid log level %q", s)
	}
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new log field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// sanitizeMessage normalizes a log message to a single line and removes
// control characters that could be used for log injection.
func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")

	var b strings.Builder
	for _, r := range msg {
		if r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}

var sensitiveFieldKeys = []string{
	"password",
	"pass",
	"token",
	"secret",
	"dsn",
}

// sanitizeFields returns a copy of fields with sensitive values redacted and
// string values normalized.
func sanitizeFields(fields []Field) []Field {
	if len(fields) == 0 {
		return nil
	}

	sanitized := make([]Field, len(fields))
	copy(sanitized, fields)

	for i, f := range sanitized {
		if isSensitiveKey(f.Key) {
			sanitized[i].Value = "***REDACTED***"
			continue
		}
		if v, ok := f.Value.(string); ok {
			sanitized[i].Value = sanitizeMessage(v)
		}
	}

	return sanitized
}

func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, sk := range sensitiveFieldKeys {
		if strings.Contains(keyLower, sk) {
			return true
		}
	}
	return false
}

// Logger is the sink every collaborator logs through. Callers pick the
// implementation; collaborators never replace it.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithFields returns a new logger with the given fields added to each log entry
	WithFields(fields ...Field) Logger

	// WithField returns a new logger with the given field added to each log entry
	WithField(key string, value interface{}) Logger

	// Close flushes any buffered log entries
	Close() error
}

// Config represents the configuration for a logger
type Config struct {
	Type      string    // console, discard
	Name      string    // Name of this logger instance
	Level     Level     // Minimum log level
	Formatter string    // text or json
	Output    io.Writer // Defaults to stderr
}

// Factory creates logger instances based on configuration
func Factory(config Config) (Logger, error) {
	switch config.Type {
	case "", "console":
		return NewConsoleLogger(config), nil
	case "discard", "none":
		return Discard(), nil
	default:
		return nil, errors.New("unsupported logger type: " + config.Type)
	}
}
