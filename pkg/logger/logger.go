package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a zerolog logger with typed fields. Warn and error entries are
// also fed to the attached LogCollector, if any.
type Logger struct {
	zl zerolog.Logger
	// shared by every child made with With
	collector *atomic.Pointer[LogCollector]
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		out = f
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}
	return newLogger(out, level), nil
}

func newLogger(w io.Writer, level zerolog.Level) *Logger {
	zl := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()
	return &Logger{zl: zl, collector: new(atomic.Pointer[LogCollector])}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop(), collector: new(atomic.Pointer[LogCollector])}
}

// With returns a child logger carrying the given fields on every entry.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.value())
	}
	return &Logger{zl: ctx.Logger(), collector: l.collector}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(zerolog.DebugLevel, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(zerolog.InfoLevel, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(zerolog.WarnLevel, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(zerolog.ErrorLevel, msg, fields) }

func (l *Logger) log(level zerolog.Level, msg string, fields []Field) {
	if e := l.zl.WithLevel(level); e != nil {
		for _, f := range fields {
			f.apply(e)
		}
		e.Msg(msg)
	}
	if level >= zerolog.WarnLevel {
		l.collect(level, msg, fields)
	}
}

func (l *Logger) collect(level zerolog.Level, msg string, fields []Field) {
	c := l.collector.Load()
	if c == nil {
		return
	}
	caller := "unknown"
	// log -> Warn/Error -> caller
	if _, file, line, ok := runtime.Caller(3); ok {
		caller = filepath.Base(filepath.Dir(file)) + "/" + filepath.Base(file) + ":" + strconv.Itoa(line)
	}
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.value()
	}
	c.AddLog(level.String(), msg, m, caller)
}

// AddCollector starts aggregating warn and error logs from this logger and
// all of its children. A previous collector is flushed and replaced.
func (l *Logger) AddCollector(config *CollectionConfig) {
	if old := l.collector.Swap(NewLogCollector(config)); old != nil {
		old.Close()
	}
}

// RemoveCollector flushes and detaches the collector.
func (l *Logger) RemoveCollector() {
	if old := l.collector.Swap(nil); old != nil {
		old.Close()
	}
}

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindInt
	kindFloat
	kindBool
	kindTime
	kindDuration
	kindError
	kindAny
	kindStrings
)

// Field is one typed key/value pair.
type Field struct {
	Key  string
	kind fieldKind
	str  string
	num  int64
	flt  float64
	tm   time.Time
	val  interface{}
}

func (f Field) apply(e *zerolog.Event) {
	switch f.kind {
	case kindString:
		e.Str(f.Key, f.str)
	case kindInt:
		e.Int64(f.Key, f.num)
	case kindFloat:
		e.Float64(f.Key, f.flt)
	case kindBool:
		e.Bool(f.Key, f.num != 0)
	case kindTime:
		e.Time(f.Key, f.tm)
	case kindDuration:
		e.Dur(f.Key, time.Duration(f.num))
	case kindError:
		if err, _ := f.val.(error); err != nil {
			e.Err(err)
		}
	case kindStrings:
		e.Strs(f.Key, f.val.([]string))
	default:
		e.Interface(f.Key, f.val)
	}
}

// value is the plain form used for child context and collector payloads.
func (f Field) value() interface{} {
	switch f.kind {
	case kindString:
		return f.str
	case kindInt:
		return f.num
	case kindFloat:
		return f.flt
	case kindBool:
		return f.num != 0
	case kindTime:
		return f.tm
	case kindDuration:
		return time.Duration(f.num).Milliseconds()
	case kindError:
		if err, _ := f.val.(error); err != nil {
			return err.Error()
		}
		return nil
	default:
		return f.val
	}
}

func String(key, value string) Field {
	return Field{Key: key, kind: kindString, str: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, kind: kindInt, num: int64(value)}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, kind: kindInt, num: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, kind: kindFloat, flt: value}
}

func Bool(key string, value bool) Field {
	f := Field{Key: key, kind: kindBool}
	if value {
		f.num = 1
	}
	return f
}

func Time(key string, value time.Time) Field {
	return Field{Key: key, kind: kindTime, tm: value}
}

// Duration is rendered in milliseconds.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, kind: kindDuration, num: int64(value)}
}

func Error(err error) Field {
	return Field{Key: "error", kind: kindError, val: err}
}

func Strings(key string, value []string) Field {
	return Field{Key: key, kind: kindStrings, val: value}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, kind: kindAny, val: value}
}
