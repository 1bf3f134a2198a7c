package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// base backs the package-level helpers used by repositories and infrastructure
var base zerolog.Logger

// LogLevel is the configured verbosity
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
)

var zerologLevels = map[LogLevel]zerolog.Level{
	DebugLevel: zerolog.DebugLevel,
	InfoLevel:  zerolog.InfoLevel,
	WarnLevel:  zerolog.WarnLevel,
	ErrorLevel: zerolog.ErrorLevel,
	FatalLevel: zerolog.FatalLevel,
}

// Config represents logger configuration
type Config struct {
	Level LogLevel
	// Pretty switches from JSON lines to the console writer
	Pretty bool
	// Output defaults to os.Stdout
	Output io.Writer
}

// ParseLevel maps a configuration string onto a LogLevel; unknown values mean info.
func ParseLevel(level string) LogLevel {
	l := LogLevel(strings.ToLower(strings.TrimSpace(level)))
	if l == "warning" {
		return WarnLevel
	}
	if _, ok := zerologLevels[l]; ok {
		return l
	}
	return InfoLevel
}

// Configure installs the process logger, also as zerolog's global log.Logger,
// and returns it.
func Configure(config Config) zerolog.Logger {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	if config.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, ok := zerologLevels[config.Level]
	if !ok {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	base = zerolog.New(out).With().Timestamp().Str("service", "noteverse").Logger()
	log.Logger = base
	return base
}

func Debug() *zerolog.Event { return base.Debug() }
func Info() *zerolog.Event  { return base.Info() }
func Warn() *zerolog.Event  { return base.Warn() }
func Error() *zerolog.Event { return base.Error() }

func init() {
	Configure(Config{Level: InfoLevel, Pretty: true})
}
