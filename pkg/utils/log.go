package utils

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"strings"
)

type LogHandlerType string

const (
	HandlerTypeText LogHandlerType = "text"
	HandlerTypeJSON LogHandlerType = "json"
)

var (
	handlerTypeFlag = flag.String("log_handler_type", string(HandlerTypeJSON), "Log handler type: json/text")
	logLevelFlag    = flag.String("log_level", slog.LevelInfo.String(),
		"Log level: debug/info/warn/error, optionally with an offset such as info+2.")
)

// handlerConstructors builds the slog handler of each supported handler type.
var handlerConstructors = map[LogHandlerType]func(io.Writer, *slog.HandlerOptions) slog.Handler{
	HandlerTypeJSON: func(w io.Writer, opts *slog.HandlerOptions) slog.Handler { return slog.NewJSONHandler(w, opts) },
	HandlerTypeText: func(w io.Writer, opts *slog.HandlerOptions) slog.Handler { return slog.NewTextHandler(w, opts) },
}

// parseLogLevel parses `level` the way slog does, case-insensitively. Unknown levels fall back to info.
func parseLogLevel(level string) slog.Level {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		RaiseInvariant("log", "unsupported_log_level", "Got an unsupported log level.",
			"logLevel", level, "error", err)
		return slog.LevelInfo
	}
	return parsed
}

// newLogHandler builds the slog handler writing to `output`. Unknown handler types fall back to JSON.
func newLogHandler(output io.Writer, handlerType LogHandlerType, level slog.Level) slog.Handler {
	newHandler, found := handlerConstructors[handlerType]
	if !found {
		RaiseInvariant("log", "unsupported_handler_type", "Got an unsupported handler type.",
			"handlerType", handlerType)
		newHandler = handlerConstructors[HandlerTypeJSON]
	}
	return newHandler(output, &slog.HandlerOptions{Level: level})
}

// InitLogging configures default logger of slog. Note that this method must be called after flag.Parse().
func InitLogging() {
	handlerType := LogHandlerType(strings.ToLower(*handlerTypeFlag))
	level := parseLogLevel(*logLevelFlag)
	// `SetDefault` happens atomically and doesn't panic when called in multiple goroutines.
	slog.SetDefault(slog.New(newLogHandler(os.Stdout, handlerType, level)))
	slog.Debug("Log handler configured successfully.", "type", handlerType, "level", level, BuildInfo())
}
