// logicbits/pkg/logging/logging.go

package logging

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// LogFile is where the "file" output option writes.
const LogFile = "logicbits.log"

var Logger zerolog.Logger

func init() {
	logLevel := zerolog.InfoLevel
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if level, err := zerolog.ParseLevel(envLevel); err == nil {
			logLevel = level
		}
	}

	zerolog.SetGlobalLevel(logLevel)
	Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// ConfigureLogger sets the global level and points both the package Logger
// and zerolog's global logger at the requested output: "console", "json" or "file".
func ConfigureLogger(logLevel, logOutput string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("Invalid log level %q: %w", logLevel, err)
	}
	zerolog.SetGlobalLevel(level)

	switch logOutput {
	case "console":
		Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "3:04PM"}).With().Timestamp().Logger()
	case "json":
		Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case "file":
		file, err := os.OpenFile(LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("Failed to create log file: %w", err)
		}
		Logger = zerolog.New(file).With().Timestamp().Logger()
	default:
		return fmt.Errorf("Invalid log output option %q", logOutput)
	}

	log.Logger = Logger
	return nil
}
