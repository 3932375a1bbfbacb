package pkg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

// Component identifiers.
const (
	ComponentDriver Component = "driver"
	ComponentBus    Component = "bus"
	ComponentSim    Component = "sim"
	ComponentStore  Component = "store"
	ComponentCLI    Component = "cli"
)

// componentKey is the attribute key carrying the Component.
const componentKey = "component"

// LogFormat selects the handler used for log output.
type LogFormat int

// Log formats.
const (
	LogFormatText LogFormat = iota // key=value lines
	LogFormatJSON                  // one JSON object per line
)

// String returns the format name.
func (f LogFormat) String() string {
	switch f {
	case LogFormatText:
		return "text"
	case LogFormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseLogFormat parses a format name as returned by String.
func ParseLogFormat(s string) (LogFormat, error) {
	switch s {
	case "text":
		return LogFormatText, nil
	case "json":
		return LogFormatJSON, nil
	default:
		return 0, fmt.Errorf("log format %q: %w", s, ErrInvalidParameter)
	}
}

var (
	// DefaultLogger receives the output of the LogX functions and of any
	// driver configured without its own logger.
	DefaultLogger *slog.Logger

	// level is shared by every logger built in this package, so
	// SetLogLevel also applies to loggers created earlier.
	level = new(slog.LevelVar)

	logMutex sync.RWMutex
)

func init() {
	level.Set(slog.LevelWarn)
	DefaultLogger = NewLogger(os.Stderr, LogFormatText)
}

// SetLogLevel sets the minimum level for all loggers built by this package.
func SetLogLevel(l slog.Level) {
	level.Set(l)
}

// GetLogLevel returns the current minimum level.
func GetLogLevel() slog.Level {
	return level.Level()
}

// SetLogger replaces the default logger.
func SetLogger(logger *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// SetLogOutput points the default logger at w using format.
func SetLogOutput(w io.Writer, format LogFormat) {
	SetLogger(NewLogger(w, format))
}

// Logger returns the current default logger.
func Logger() *slog.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger
}

// NewLogger creates a logger writing to w that follows SetLogLevel.
func NewLogger(w io.Writer, format LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithComponent returns logger tagged with component. A nil logger is
// replaced by the current default logger.
func WithComponent(logger *slog.Logger, component Component) *slog.Logger {
	if logger == nil {
		logger = Logger()
	}
	return logger.With(componentKey, string(component))
}

func logAt(l slog.Level, component Component, msg string, args []any) {
	logger := Logger()
	ctx := context.Background()
	if !logger.Enabled(ctx, l) {
		return
	}
	logger.Log(ctx, l, msg, append([]any{componentKey, string(component)}, args...)...)
}

// LogDebug logs at debug level on the default logger.
func LogDebug(component Component, msg string, args ...any) {
	logAt(slog.LevelDebug, component, msg, args)
}

// LogInfo logs at info level on the default logger.
func LogInfo(component Component, msg string, args ...any) {
	logAt(slog.LevelInfo, component, msg, args)
}

// LogWarn logs at warn level on the default logger.
func LogWarn(component Component, msg string, args ...any) {
	logAt(slog.LevelWarn, component, msg, args)
}

// LogError logs at error level on the default logger.
func LogError(component Component, msg string, args ...any) {
	logAt(slog.LevelError, component, msg, args)
}
