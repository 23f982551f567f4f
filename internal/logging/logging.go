// Package logging configures the process-wide zerolog logger.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup initializes the global logger. LOG_LEVEL picks the level and
// LOG_FORMAT=console switches to human-readable output for local runs.
func Setup() {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "ERROR":
		level = zerolog.ErrorLevel
	case "WARN":
		level = zerolog.WarnLevel
	case "INFO":
		level = zerolog.InfoLevel
	case "DEBUG":
		level = zerolog.DebugLevel
	case "TRACE":
		level = zerolog.TraceLevel
	}
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
