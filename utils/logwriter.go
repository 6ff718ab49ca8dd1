package utils

import (
	"io"
	stdlog "log"
	"log/slog"

	slogzerolog "github.com/samber/slog-zerolog/v2"
)

// NewSlogHandler returns a slog handler writing to the component logger.
// Filtering is left to the zerolog global level.
func NewSlogHandler(component string) slog.Handler {
	zlog := GetLogger(component)
	opt := slogzerolog.Option{Level: slog.LevelDebug, Logger: &zlog}
	return opt.NewZerologHandler()
}

// NewLogLogger returns a stdlib logger that routes to zerolog at lvl, for
// http.Server's ErrorLog.
func NewLogLogger(component string, lvl slog.Level) *stdlog.Logger {
	return slog.NewLogLogger(NewSlogHandler(component), lvl)
}

// NewLogWriter returns a writer logging each line at lvl, for gin's
// debug and recovery writers.
func NewLogWriter(component string, lvl slog.Level) io.Writer {
	return NewLogLogger(component, lvl).Writer()
}
