package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Output formats accepted by LOG_FORMAT.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Logger is a slog.Logger bound to a component name. The component is
// attached once, so switching components never duplicates the key.
type Logger struct {
	*slog.Logger
	root      *slog.Logger
	attrs     []any
	component string
}

// Config holds logger configuration. Handler wins over Format and Output.
type Config struct {
	Level     slog.Level
	Format    string
	Output    io.Writer
	Component string
	Handler   slog.Handler
}

// ParseLevel maps LOG_LEVEL values (DEBUG, INFO, WARN, ERROR) to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// ParseFormat accepts "text" (default) or "json".
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q", s)
	}
}

// New creates a logger from config.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		opts := &slog.HandlerOptions{Level: config.Level}
		if config.Format == FormatJSON {
			handler = slog.NewJSONHandler(out, opts)
		} else {
			handler = slog.NewTextHandler(out, opts)
		}
	}
	return bind(slog.New(handler), nil, config.Component)
}

func bind(root *slog.Logger, attrs []any, component string) *Logger {
	args := make([]any, 0, len(attrs)+2)
	if component != "" {
		args = append(args, FieldComponent, component)
	}
	args = append(args, attrs...)
	return &Logger{
		Logger:    root.With(args...),
		root:      root,
		attrs:     attrs,
		component: component,
	}
}

// With returns a logger carrying the extra attributes.
func (l *Logger) With(args ...any) *Logger {
	attrs := make([]any, 0, len(l.attrs)+len(args))
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, args...)
	return bind(l.root, attrs, l.component)
}

// WithComponent returns a logger for another component, keeping attributes.
func (l *Logger) WithComponent(component string) *Logger {
	return bind(l.root, l.attrs, component)
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs logger as the slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return New(Config{Handler: slog.NewTextHandler(io.Discard, nil), Component: "discard"})
}
