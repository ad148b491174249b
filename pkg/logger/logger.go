package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wonny/trendscore/pkg/config"
)

// dateLayout matches the stat_date column
const dateLayout = "2006-01-02"

// Logger is a structured logger wrapper around zerolog
// ⭐ SSOT: 모든 로깅은 이 패키지를 통해서만 수행
type Logger struct {
	zlog zerolog.Logger
}

// New creates the process logger from config. Logs go to stderr so that
// command output (run headers, summary tables) stays clean on stdout.
// ⭐ SSOT: zerolog 인스턴스는 여기서만 생성
func New(cfg *config.Config) *Logger {
	l := build(writerFor(cfg.LogFormat, os.Stderr), cfg.LogLevel)
	if cfg.Env != "" {
		return l.WithField("env", cfg.Env)
	}
	return l
}

// NewWithWriter creates a JSON logger writing to w (tests, file sinks)
func NewWithWriter(w io.Writer, level string) *Logger {
	return build(w, level)
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// build sets the level on the logger itself, never globally, so tests and
// parallel commands can hold loggers at different levels.
func build(w io.Writer, level string) *Logger {
	zlog := zerolog.New(w).
		Level(parseLogLevel(level)).
		With().
		Timestamp().
		Logger()

	return &Logger{zlog: zlog}
}

// writerFor picks human-readable output for console/pretty, JSON otherwise
func writerFor(format string, out io.Writer) io.Writer {
	switch strings.ToLower(format) {
	case "console", "pretty":
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return out
	}
}

var levels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// parseLogLevel maps LOG_LEVEL to a zerolog level; unknown values fall back to info
func parseLogLevel(levelStr string) zerolog.Level {
	if level, ok := levels[strings.ToLower(strings.TrimSpace(levelStr))]; ok {
		return level
	}
	return zerolog.InfoLevel
}

// Level returns the minimum level this logger writes
func (l *Logger) Level() zerolog.Level {
	return l.zlog.GetLevel()
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.zlog.Debug().Msg(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.zlog.Info().Msg(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.zlog.Warn().Msg(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.zlog.Error().Msg(msg)
}

// WithField returns a new logger with an additional field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Interface(key, value).Logger()}
}

// WithFields returns a new logger with multiple fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// WithError returns a new logger with an error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zlog: l.zlog.With().Err(err).Logger()}
}

// WithCategory scopes the logger to a stat category
func (l *Logger) WithCategory(category string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("category", category).Logger()}
}

// WithDate scopes the logger to a stat date, written as YYYY-MM-DD
func (l *Logger) WithDate(date time.Time) *Logger {
	return &Logger{zlog: l.zlog.With().Str("date", date.Format(dateLayout)).Logger()}
}

// WithEntity scopes the logger to one entity
func (l *Logger) WithEntity(entityID int64) *Logger {
	return &Logger{zlog: l.zlog.With().Int64("entity_id", entityID).Logger()}
}
