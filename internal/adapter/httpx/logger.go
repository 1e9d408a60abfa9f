package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger provides leveled logging for the pipeline and its HTTP collaborators.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// LogLevel defines the logging verbosity level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ParseLevel maps a config string to a LogLevel. Unknown values fall back
// to info.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// LogFormat defines the output format for logs.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// ParseFormat maps a config string to a LogFormat. Unknown values fall
// back to human.
func ParseFormat(s string) LogFormat {
	if s == "json" {
		return LogFormatJSON
	}
	return LogFormatHuman
}

// DefaultLogger writes leveled logs in human or JSON-line format.
type DefaultLogger struct {
	level  LogLevel
	format LogFormat
	out    io.Writer
	now    func() time.Time

	mu sync.Mutex
}

// NewDefaultLogger creates a logger with the specified level and format,
// writing to stderr.
func NewDefaultLogger(level LogLevel, format LogFormat) *DefaultLogger {
	return NewLoggerTo(level, format, os.Stderr)
}

// NewLoggerTo creates a logger writing to the supplied writer.
func NewLoggerTo(level LogLevel, format LogFormat, out io.Writer) *DefaultLogger {
	return &DefaultLogger{
		level:  level,
		format: format,
		out:    out,
		now:    time.Now,
	}
}

// Debugf logs at debug level.
func (l *DefaultLogger) Debugf(format string, args ...any) {
	l.write(LogLevelDebug, "debug", format, args...)
}

// Infof logs at info level.
func (l *DefaultLogger) Infof(format string, args ...any) {
	l.write(LogLevelInfo, "info", format, args...)
}

// Warnf logs at warn level.
func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.write(LogLevelWarn, "warn", format, args...)
}

// Errorf logs at error level.
func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.write(LogLevelError, "error", format, args...)
}

func (l *DefaultLogger) write(level LogLevel, label, format string, args ...any) {
	if level < l.level {
		return
	}

	msg := fmt.Sprintf(format, args...)
	ts := l.now().UTC().Format(time.RFC3339)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == LogFormatJSON {
		line, err := json.Marshal(map[string]string{
			"level": label,
			"ts":    ts,
			"msg":   msg,
		})
		if err != nil {
			return
		}
		fmt.Fprintln(l.out, string(line))
		return
	}

	fmt.Fprintf(l.out, "%s [%s] %s\n", ts, levelTag(label), msg)
}

func levelTag(label string) string {
	switch label {
	case "debug":
		return "DEBUG"
	case "info":
		return "INFO"
	case "warn":
		return "WARN"
	default:
		return "ERROR"
	}
}

// RedactToken reduces an access token to its last 4 characters for safe
// logging. Short or empty tokens are fully redacted.
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "[REDACTED]"
	}
	return "..." + token[len(token)-4:]
}

// NopLogger discards all log output.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
