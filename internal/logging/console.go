package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const textTimeFormat = "2006-01-02 15:04:05.000"

// ConsoleLogger writes one line per entry, as text or JSON, to a single
// writer. Loggers derived through WithFields share the writer and its lock.
type ConsoleLogger struct {
	level  Level
	json   bool
	out    io.Writer
	fields []Field
	mu     *sync.Mutex
	now    func() time.Time
}

// NewConsoleLogger creates a console logger. Output defaults to stderr so
// that reports on stdout are never interleaved with log lines.
func NewConsoleLogger(config Config) *ConsoleLogger {
	level := config.Level
	if level < Debug || level > Error {
		level = Info
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	return &ConsoleLogger{
		level: level,
		json:  config.Formatter == "json",
		out:   out,
		mu:    &sync.Mutex{},
		now:   time.Now,
	}
}

func (l *ConsoleLogger) Debug(msg string, fields ...Field) { l.log(Debug, msg, fields) }
func (l *ConsoleLogger) Info(msg string, fields ...Field)  { l.log(Info, msg, fields) }
func (l *ConsoleLogger) Warn(msg string, fields ...Field)  { l.log(Warn, msg, fields) }
func (l *ConsoleLogger) Error(msg string, fields ...Field) { l.log(Error, msg, fields) }

// WithFields returns a logger that prefixes every entry with fields.
func (l *ConsoleLogger) WithFields(fields ...Field) Logger {
	child := *l
	child.fields = append(append(make([]Field, 0, len(l.fields)+len(fields)), l.fields...), fields...)
	return &child
}

// WithField is WithFields for a single pair.
func (l *ConsoleLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(F(key, value))
}

// Close is a no-op; console output is unbuffered.
func (l *ConsoleLogger) Close() error {
	return nil
}

func (l *ConsoleLogger) log(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, sanitizeFields(fields)...)
	for i := range all {
		all[i].Value = fieldValue(all[i].Value)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now()
	msg = sanitizeMessage(msg)

	var line []byte
	if l.json {
		line = jsonLine(ts, level, msg, all)
	} else {
		line = textLine(ts, level, msg, all)
	}
	_, _ = l.out.Write(line)
}

// fieldValue renders values that encoding/json would otherwise flatten to {}.
func fieldValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case error:
		return sanitizeMessage(val.Error())
	case fmt.Stringer:
		return sanitizeMessage(val.String())
	default:
		return v
	}
}

func textLine(ts time.Time, level Level, msg string, fields []Field) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", ts.Format(textTimeFormat), level, msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func jsonLine(ts time.Time, level Level, msg string, fields []Field) []byte {
	entry := make(map[string]interface{}, len(fields)+3)
	for _, f := range fields {
		entry[f.Key] = f.Value
	}
	entry["time"] = ts.Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["message"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		return textLine(ts, level, msg, []Field{F("encode_error", err.Error())})
	}
	return append(data, '\n')
}
