// Package utils holds the logging surface shared by every engine
// package. Callers depend on the Logger interface so tests can swap in
// a silent or recording implementation.
package utils

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LogLevel orders verbosity from silent to debug. It unmarshals from
// text so it can sit directly in an env-parsed config field.
type LogLevel int

const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "OFF"
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "OFF":
		*l = LogLevelOff
	case "ERROR":
		*l = LogLevelError
	case "WARN":
		*l = LogLevelWarn
	case "INFO":
		*l = LogLevelInfo
	case "DEBUG":
		*l = LogLevelDebug
	default:
		return fmt.Errorf("invalid log level: %s", string(text))
	}
	return nil
}

// slogLevel maps a LogLevel onto the slog scale. Off maps above every
// built-in level so the handler drops all records.
func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelOff:
		return slog.LevelError + 4
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelDebug:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Logger is the structured logging interface used across the engine.
// Key-value pairs follow the message, slog style.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	SetLevel(level LogLevel)
}

// slogLogger writes text records to stderr. Level filtering happens in
// the handler through a shared LevelVar, so SetLevel is safe to call
// while other goroutines log.
type slogLogger struct {
	log   *slog.Logger
	level *slog.LevelVar
}

func NewLogger(level LogLevel) Logger {
	lv := new(slog.LevelVar)
	lv.Set(level.slogLevel())
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})
	return &slogLogger{log: slog.New(handler), level: lv}
}

func (l *slogLogger) SetLevel(level LogLevel) { l.level.Set(level.slogLevel()) }

func (l *slogLogger) Debug(msg string, keysAndValues ...any) { l.log.Debug(msg, keysAndValues...) }
func (l *slogLogger) Info(msg string, keysAndValues ...any)  { l.log.Info(msg, keysAndValues...) }
func (l *slogLogger) Warn(msg string, keysAndValues ...any)  { l.log.Warn(msg, keysAndValues...) }
func (l *slogLogger) Error(msg string, keysAndValues ...any) { l.log.Error(msg, keysAndValues...) }
