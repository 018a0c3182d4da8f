// Package logging provides the leveled, structured logger shared by the
// decoder tooling. Entries render either as key=value text or as one JSON
// object per line.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Level represents a logging severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = [...]string{Debug: "DEBUG", Info: "INFO", Warn: "WARN", Error: "ERROR"}

func (l Level) String() string {
	if l < Debug || l > Error {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a string to a Level. An empty string selects Info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "info", "":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	default:
		return Info, fmt.Errorf("unsupported log level %q", s)
	}
}

// Format controls how entries are rendered.
type Format int

const (
	Text Format = iota
	JSON
)

func (f Format) String() string {
	switch f {
	case Text:
		return "text"
	case JSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat converts a string to a Format. An empty string selects Text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return Text, nil
	case "json":
		return JSON, nil
	default:
		return Text, fmt.Errorf("unsupported log format %q", s)
	}
}

// Field is a structured key/value attached to an entry.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logger defines leveled structured logging operations.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = New(Info, Text, io.Discard)
)

// Default returns the process-wide logger. It discards output until
// SetDefault is called.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger. A nil logger is ignored.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// sink serializes writes from a logger and all loggers derived from it.
type sink struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

type logger struct {
	level  Level
	format Format
	fields []Field
	sink   *sink
}

// New constructs a Logger that writes entries at or above level to out.
func New(level Level, format Format, out io.Writer) Logger {
	return &logger{
		level:  level,
		format: format,
		sink:   &sink{out: out, now: time.Now},
	}
}

func (l *logger) With(fields ...Field) Logger {
	bound := make([]Field, 0, len(l.fields)+len(fields))
	bound = append(bound, l.fields...)
	bound = append(bound, fields...)
	return &logger{level: l.level, format: l.format, fields: bound, sink: l.sink}
}

func (l *logger) Debug(msg string, fields ...Field) { l.log(Debug, msg, fields) }
func (l *logger) Info(msg string, fields ...Field)  { l.log(Info, msg, fields) }
func (l *logger) Warn(msg string, fields ...Field)  { l.log(Warn, msg, fields) }
func (l *logger) Error(msg string, fields ...Field) { l.log(Error, msg, fields) }

func (l *logger) log(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}
	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	ts := l.sink.now()
	var line string
	if l.format == JSON {
		line = renderJSON(ts, level, msg, all)
	} else {
		line = renderText(ts, level, msg, all)
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	io.WriteString(l.sink.out, line)
}

func renderText(ts time.Time, level Level, msg string, fields []Field) string {
	var b strings.Builder
	b.WriteString(ts.Format("2006/01/02 15:04:05"))
	fmt.Fprintf(&b, " [%s] %s", level, msg)
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	b.WriteByte('\n')
	return b.String()
}

func renderJSON(ts time.Time, level Level, msg string, fields []Field) string {
	payload := make(map[string]any, len(fields)+3)
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		if err, ok := f.Value.(error); ok {
			payload[f.Key] = err.Error()
			continue
		}
		payload[f.Key] = f.Value
	}
	payload["time"] = ts.Format(time.RFC3339Nano)
	payload["level"] = level.String()
	payload["msg"] = msg

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"level":"ERROR","msg":"marshal log entry failed","error":%q}`+"\n", err.Error())
	}
	return string(data) + "\n"
}
