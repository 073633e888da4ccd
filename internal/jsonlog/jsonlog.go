package jsonlog

import (
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
)

// Level is the severity of a log entry.
type Level int8

const (
	LevelInfo Level = iota
	LevelError
	LevelFatal
	LevelOff
)

// String returns the upper-case name of the level.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return ""
	}
}

// ParseLevel maps a flag value such as "info" or "error" to a Level. Unknown
// values fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	case "off":
		return LevelOff
	default:
		return LevelInfo
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.Disabled
	}
}

// Logger writes one JSON object per line to its output destination for every
// entry at or above its minimum severity level. Writes are serialized by
// zerolog's level writer, so a Logger is safe for concurrent use.
type Logger struct {
	zl       zerolog.Logger
	minLevel Level
}

// NewLogger returns a Logger writing to out. Entries below minLevel are dropped.
func NewLogger(out io.Writer, minLevel Level) *Logger {
	zl := zerolog.New(zerolog.SyncWriter(out)).
		Level(minLevel.zerolog()).
		With().Timestamp().Logger()

	return &Logger{
		zl:       zl,
		minLevel: minLevel,
	}
}

// PrintInfo writes message and properties with LevelInfo severity.
func (l *Logger) PrintInfo(message string, properties map[string]string) {
	l.print(LevelInfo, message, properties)
}

// PrintError writes err and properties with LevelError severity, including a stack trace.
func (l *Logger) PrintError(err error, properties map[string]string) {
	l.print(LevelError, err.Error(), properties)
}

// PrintFatal writes err and properties with LevelFatal severity and terminates the application.
func (l *Logger) PrintFatal(err error, properties map[string]string) {
	l.print(LevelFatal, err.Error(), properties)
	os.Exit(1)
}

func (l *Logger) print(level Level, message string, properties map[string]string) {
	if level < l.minLevel || level >= LevelOff {
		return
	}

	var ev *zerolog.Event
	switch level {
	case LevelError:
		ev = l.zl.Error()
	case LevelFatal:
		// WithLevel keeps zerolog from calling os.Exit itself.
		ev = l.zl.WithLevel(zerolog.FatalLevel)
	default:
		ev = l.zl.Info()
	}

	if len(properties) > 0 {
		dict := zerolog.Dict()
		for k, v := range properties {
			dict.Str(k, v)
		}
		ev = ev.Dict("properties", dict)
	}

	if level >= LevelError {
		ev = ev.Str("trace", string(debug.Stack()))
	}

	ev.Msg(message)
}

// Write lets the logger act as the destination of a standard library *log.Logger
// (http.Server.ErrorLog). Entries are recorded at LevelError.
func (l *Logger) Write(message []byte) (n int, err error) {
	l.print(LevelError, strings.TrimRight(string(message), "\n"), nil)
	return len(message), nil
}
