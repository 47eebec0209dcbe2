// Package log provides structured logging for tasador on top of zerolog.
//
// Components obtain a named logger once and log with key-value pairs:
//
//	logger := log.GetLoggerWithName("trainer")
//	logger.Info("Training completed",
//		log.SamplesKey, rows,
//		log.DurationMsKey, elapsed.Milliseconds(),
//	)
//
// The process-wide sink is configured with Setup (or SetupLogger for the
// common case of console output at a given level).
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Standard field keys.
const (
	ComponentKey  = "component"
	ModelNameKey  = "model"
	OperationKey  = "operation"
	PhaseKey      = "phase"
	SamplesKey    = "samples"
	FeaturesKey   = "features"
	DurationMsKey = "duration_ms"
	PredsKey      = "predictions"
	RequestIDKey  = "request_id"
	PathKey       = "path"
)

// Standard operation and phase values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationLoad      = "load"
	OperationSave      = "save"

	PhaseTraining      = "training"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)

// Logger is the structured logger used by all packages.
// Fields are passed as alternating key and value arguments.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

// LoggerProvider hands out loggers sharing one sink.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
}

// Options configures the process-wide sink.
type Options struct {
	Level  string
	Format string // "console" or "json"
	File   string // optional; rotated with lumberjack
}

var (
	mu   sync.RWMutex
	base = newBase(os.Stderr, "console", zerolog.InfoLevel)
)

// ToLogLevel parses a level name, defaulting to info.
func ToLogLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// SetupLogger configures console output at the given level.
func SetupLogger(level string) {
	Setup(Options{Level: level, Format: "console"})
}

// Setup configures the process-wide sink. When File is set, output goes both
// to stderr and to the rotated file.
func Setup(opts Options) {
	var w io.Writer = os.Stderr
	if opts.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stderr, rotated)
	}
	l := newBase(w, opts.Format, ToLogLevel(opts.Level))

	mu.Lock()
	base = l
	mu.Unlock()
}

// SetOutput replaces the sink writer, keeping the current level. Used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	base = base.Output(w)
	mu.Unlock()
}

func newBase(w io.Writer, format string, level zerolog.Level) zerolog.Logger {
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// GetLogger returns the raw zerolog logger for call sites that want the
// zerolog event API.
func GetLogger() *zerolog.Logger {
	mu.RLock()
	l := base
	mu.RUnlock()
	return &l
}

// GetLoggerWithName returns a Logger tagged with the component name.
func GetLoggerWithName(name string) Logger {
	return defaultProvider{}.GetLoggerWithName(name)
}

// LogError logs err at error level with msg.
func LogError(err error, msg string, fields ...interface{}) {
	ev := GetLogger().Error().Err(err)
	addFields(ev, fields).Msg(msg)
}

// NewZerologProvider creates a provider with its own level, writing to the
// process-wide sink.
func NewZerologProvider(level zerolog.Level) LoggerProvider {
	return zerologProvider{level: level}
}

type zerologProvider struct {
	level zerolog.Level
}

func (p zerologProvider) GetLogger() Logger {
	return &zerologLogger{l: GetLogger().Level(p.level)}
}

func (p zerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{l: GetLogger().Level(p.level).With().Str(ComponentKey, name).Logger()}
}

type defaultProvider struct{}

func (defaultProvider) GetLogger() Logger {
	return &zerologLogger{l: *GetLogger()}
}

func (defaultProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{l: GetLogger().With().Str(ComponentKey, name).Logger()}
}

type zerologLogger struct {
	l zerolog.Logger
}

func (z *zerologLogger) Debug(msg string, fields ...interface{}) {
	addFields(z.l.Debug(), fields).Msg(msg)
}

func (z *zerologLogger) Info(msg string, fields ...interface{}) {
	addFields(z.l.Info(), fields).Msg(msg)
}

func (z *zerologLogger) Warn(msg string, fields ...interface{}) {
	addFields(z.l.Warn(), fields).Msg(msg)
}

func (z *zerologLogger) Error(msg string, fields ...interface{}) {
	addFields(z.l.Error(), fields).Msg(msg)
}

func (z *zerologLogger) With(fields ...interface{}) Logger {
	ctx := z.l.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zerologLogger{l: ctx.Logger()}
}

func addFields(ev *zerolog.Event, fields []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		case int64:
			ev = ev.Int64(key, v)
		case float64:
			ev = ev.Float64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}
