package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const appName = "space-reservation"

// New constructs a zerolog logger from the level and format settings.
// Defaults to JSON at info level on stdout when the values are empty or unknown.
// The logger also becomes the global default used by log.Ctx fallbacks.
func New(level, format string, isProduction bool) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && parsed != zerolog.NoLevel {
		lvl = parsed
	}

	output := io.Writer(os.Stdout)
	if strings.ToLower(strings.TrimSpace(format)) == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	env := "dev"
	if isProduction {
		env = "prod"
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		Str("app", appName).
		Str("env", env).
		Logger()

	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	return logger
}
