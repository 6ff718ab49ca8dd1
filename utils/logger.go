package utils

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitializeLogger sets up the global logger. level is one of trace, debug,
// info, warn or error; anything else falls back to info.
func InitializeLogger(level string) {
	InitializeLoggerWithWriter(level, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
}

func InitializeLoggerWithWriter(level string, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	ctx := zerolog.New(out).With().Timestamp()
	if lvl <= zerolog.TraceLevel {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	log.Debug().Str("level", lvl.String()).Msg("Logger initialized")
}

// GetLogger returns a configured logger for a specific component
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
