// Package logging configures the zerolog logger shared by every stage of the
// installer. Output goes to stderr and to a log file under the XDG state
// directory so the run can be archived onto the installed system.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const logFileName = "nixdots/install.log"

var logPath string

// Setup configures the global logger based on verbosity level.
func Setup(verbosity int) {
	SetupWithWriter(verbosity, os.Stderr)
}

// SetupWithWriter is Setup with an explicit console writer. Verbosity only
// filters the console; the log file always records debug and above so the
// archived install log is complete.
func SetupWithWriter(verbosity int, console io.Writer) {
	consoleLevel := levelFor(verbosity)
	zerolog.SetGlobalLevel(min(consoleLevel, zerolog.DebugLevel))

	writers := []io.Writer{&zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.Kitchen,
		}},
		Level: consoleLevel,
	}}

	path, err := xdg.StateFile(logFileName)
	var file *os.File
	if err == nil {
		file, err = openLogFile(path)
	}
	if err == nil {
		writers = append(writers, file)
		logPath = path
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to create log file, logging to console only")
	}

	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	log.Debug().Int("verbosity", verbosity).Str("logFile", logPath).Msg("Logger initialized")
}

func levelFor(verbosity int) zerolog.Level {
	switch verbosity {
	case 0:
		return zerolog.WarnLevel
	case 1:
		return zerolog.InfoLevel
	case 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// Path returns the log file in use, or "" when logging to the console only.
func Path() string {
	return logPath
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// GetLogger returns a logger tagged with the given component name.
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// LogCommand logs a command execution with its arguments.
func LogCommand(cmd string, args []string) {
	log.Debug().
		Str("command", cmd).
		Strs("args", args).
		Msg("Executing command")
}

// LogOperationStart logs the start of an operation and returns a function to
// log its completion.
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().
		Str("operation", operation).
		Msg("Operation started")

	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}
