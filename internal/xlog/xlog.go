// Package xlog wraps zerolog the way the pack's chaos-utils reporting
// package does, generalized from HTTP-scan events to fuzz-run events:
// corpus admission, failure discovery, guidance errors, seed loading.
package xlog

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Level mirrors the chaos-utils LogLevel enum.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format mirrors the chaos-utils LogFormat enum.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config configures a Logger.
type Config struct {
	Level  Level
	Format Format
	Output io.Writer
}

// Logger is a structured logger stamped with a run correlation id, one
// per `genfuzz run` invocation (spec §11's google/uuid wiring).
type Logger struct {
	logger zerolog.Logger
	runID  string
}

// New constructs a Logger. A fresh run id is minted and attached to
// every subsequent event.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	var output io.Writer = cfg.Output
	if cfg.Format == FormatText {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339, NoColor: false}
	}

	runID := uuid.NewString()
	zlog := zerolog.New(output).With().Timestamp().Str("run_id", runID).Logger()

	switch cfg.Level {
	case LevelDebug:
		zlog = zlog.Level(zerolog.DebugLevel)
	case LevelWarn:
		zlog = zlog.Level(zerolog.WarnLevel)
	case LevelError:
		zlog = zlog.Level(zerolog.ErrorLevel)
	default:
		zlog = zlog.Level(zerolog.InfoLevel)
	}

	return &Logger{logger: zlog, runID: runID}
}

// RunID returns this logger's run correlation id.
func (l *Logger) RunID() string { return l.runID }

func (l *Logger) event(e *zerolog.Event, msg string, fields map[string]interface{}) {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}

func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.event(l.logger.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.event(l.logger.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.event(l.logger.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.event(l.logger.Error(), msg, fields)
}

// WithField returns a child Logger with an additional persistent field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger(), runID: l.runID}
}
