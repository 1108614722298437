// Package logger is the structured JSON logger used across the service.
// One line per event, fields flattened at the top level, safe for
// concurrent use. Context carrying and request-ID tagging live here so
// handlers and repositories share one tracing vocabulary.
package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVELS
// ══════════════════════════════════════════════════════════════════════════════

// Level is the severity of a log event.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelFatal {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a config string to a Level. Unknown values fall back to
// info so a typo in LOG_LEVEL never silences the service.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// FIELDS
// ══════════════════════════════════════════════════════════════════════════════

// Field is one key-value pair attached to a log event.
type Field struct {
	Key   string
	Value any
}

// F builds an arbitrary field.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field     { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }
func Any(key string, value any) Field         { return Field{Key: key, Value: value} }

// Err attaches an error under the "error" key. Nil stays nil so the field
// can be passed unconditionally.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Field helpers for the identifiers this service traces everywhere.
func UserID(id string) Field        { return String("user_id", id) }
func StudentID(id string) Field     { return String("student_id", id) }
func TeacherID(id string) Field     { return String("teacher_id", id) }
func CourseID(id string) Field      { return String("course_id", id) }
func LessonID(id string) Field      { return String("lesson_id", id) }
func RoomID(id string) Field        { return String("room_id", id) }
func ShiftID(id string) Field       { return String("shift_id", id) }
func LessonDate(d time.Time) Field  { return String("lesson_date", d.Format("2006-01-02")) }
func Percentage(p float64) Field    { return Float64("attendance_percentage", p) }
func Component(name string) Field   { return String("component", name) }
func Operation(name string) Field   { return String("operation", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }

// ══════════════════════════════════════════════════════════════════════════════
// LOGGER
// ══════════════════════════════════════════════════════════════════════════════

// Logger writes one JSON object per event. Derived loggers created by With
// share the writer and carry their bound fields immutably.
type Logger struct {
	mu         *sync.Mutex
	output     io.Writer
	level      Level
	bound      []Field
	addCaller  bool
	callerSkip int
}

// Options configures a Logger.
type Options struct {
	Output     io.Writer
	Level      Level
	AddCaller  bool
	CallerSkip int
}

// DefaultOptions logs info and above to stdout with caller annotation.
func DefaultOptions() Options {
	return Options{
		Output:    os.Stdout,
		Level:     LevelInfo,
		AddCaller: true,
	}
}

// New creates a Logger. A nil Output falls back to stdout.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Logger{
		mu:         &sync.Mutex{},
		output:     opts.Output,
		level:      opts.Level,
		addCaller:  opts.AddCaller,
		callerSkip: opts.CallerSkip,
	}
}

// Default creates a Logger with DefaultOptions.
func Default() *Logger {
	return New(DefaultOptions())
}

// With returns a Logger that carries the given fields on every event.
func (l *Logger) With(fields ...Field) *Logger {
	clone := *l
	clone.bound = append(append([]Field(nil), l.bound...), fields...)
	return &clone
}

// WithLevel returns a Logger with a different minimum level.
func (l *Logger) WithLevel(level Level) *Logger {
	clone := *l
	clone.level = level
	return &clone
}

// WithRequestID tags every event with the request being served.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(String(RequestIDKey, requestID))
}

// RequestIDKey is the field key used for request tracing.
const RequestIDKey = "request_id"

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.emit(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.emit(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(LevelError, msg, fields) }

// Fatal logs the event and terminates the process.
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.emit(LevelFatal, msg, fields)
	os.Exit(1)
}

func (l *Logger) Debugf(format string, args ...any) { l.emit(LevelDebug, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Infof(format string, args ...any)  { l.emit(LevelInfo, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Warnf(format string, args ...any)  { l.emit(LevelWarn, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Errorf(format string, args ...any) { l.emit(LevelError, fmt.Sprintf(format, args...), nil) }

func (l *Logger) Fatalf(format string, args ...any) {
	l.emit(LevelFatal, fmt.Sprintf(format, args...), nil)
	os.Exit(1)
}

var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// emit renders the event into a pooled buffer and writes it in one call so
// concurrent events never interleave.
func (l *Logger) emit(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	buf.WriteByte('{')
	writePair(buf, "ts", time.Now().UTC().Format(time.RFC3339Nano))
	buf.WriteByte(',')
	writePair(buf, "level", level.String())
	buf.WriteByte(',')
	writePair(buf, "msg", msg)

	if l.addCaller {
		if caller := callerRef(3 + l.callerSkip); caller != "" {
			buf.WriteByte(',')
			writePair(buf, "caller", caller)
		}
	}

	for _, f := range l.bound {
		buf.WriteByte(',')
		writePair(buf, f.Key, f.Value)
	}
	for _, f := range fields {
		buf.WriteByte(',')
		writePair(buf, f.Key, f.Value)
	}

	buf.WriteString("}\n")

	l.mu.Lock()
	l.output.Write(buf.Bytes())
	l.mu.Unlock()
}

// writePair appends `"key":value` with JSON escaping. Values that fail to
// marshal are degraded to their fmt representation rather than dropping
// the whole event.
func writePair(buf *bytes.Buffer, key string, value any) {
	keyData, _ := json.Marshal(key)
	buf.Write(keyData)
	buf.WriteByte(':')

	data, err := json.Marshal(value)
	if err != nil {
		data, _ = json.Marshal(fmt.Sprint(value))
	}
	buf.Write(data)
}

func callerRef(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[idx+1:]
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

type ctxKey struct{}

// WithContext attaches the logger to a context.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the attached logger, or a default one.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Default()
}
