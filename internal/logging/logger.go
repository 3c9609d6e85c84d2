package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv names the environment variable read by Init.
const LevelEnv = "AREACALC_LOG_LEVEL"

// Init initializes the global logger with configuration from environment variables.
// AREACALC_LOG_LEVEL controls the log level: debug, info, warn, error (default: info)
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnv)))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Configure applies the resolved level and, when logFile is set, also writes
// logs to that file without colors. The returned closer releases the file.
func Configure(level, logFile string) (io.Closer, error) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
	if logFile == "" {
		log.Logger = log.Output(consoleWriter)
		return nopCloser{}, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	fileWriter := zerolog.ConsoleWriter{Out: file, NoColor: true}
	log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

	log.Debug().Str("logFile", logFile).Msg("logging to file")
	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
