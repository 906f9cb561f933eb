// Package logger configures the application's structured logging.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"moviebrowser/config"
)

const logFileName = "moviebrowser.log"

// Logger wraps zerolog for application logging.
type Logger struct {
	zerolog.Logger
	rotator *lumberjack.Logger
}

// New creates a logger writing to stdout and, when cfg.Path is set, to a
// rotating file in that directory.
func New(cfg config.LoggingConfig) *Logger {
	return newWithConsole(cfg, os.Stdout)
}

func newWithConsole(cfg config.LoggingConfig, out io.Writer) *Logger {
	var console io.Writer = out
	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	output := console
	var rotator *lumberjack.Logger
	var dirErr error
	if cfg.Path != "" {
		if dirErr = os.MkdirAll(cfg.Path, 0o755); dirErr == nil {
			rotator = &lumberjack.Logger{
				Filename:   filepath.Join(cfg.Path, logFileName),
				MaxSize:    10,
				MaxBackups: 5,
				MaxAge:     30,
				Compress:   true,
				LocalTime:  true,
			}
			output = io.MultiWriter(console, rotator)
		}
	}

	l := zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	if dirErr != nil {
		l.Warn().Err(dirErr).Str("path", cfg.Path).Msg("Could not create log directory, logging to console only")
	}

	return &Logger{Logger: l, rotator: rotator}
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Close closes the log file if one is open.
func (l *Logger) Close() error {
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
