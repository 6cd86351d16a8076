package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a topic-scoped logger for hot paths (indicators, position steps).
// When its topic is disabled every call returns after a single bool check.
type Logger struct {
	topic   string
	enabled bool
}

var enabledTopics = make(map[string]bool)

func init() {
	// DEBUG_TOPICS=position,optimizer or DEBUG_TOPICS=all
	parseTopics(os.Getenv("DEBUG_TOPICS"))
	if len(enabledTopics) > 0 {
		Configure(os.Stderr, "debug", "text")
	}
}

func parseTopics(raw string) {
	if raw == "" {
		return
	}
	if raw == "all" {
		enabledTopics["*"] = true
		return
	}
	for _, topic := range strings.Split(raw, ",") {
		topic = strings.TrimSpace(topic)
		if topic != "" {
			enabledTopics[topic] = true
		}
	}
}

// Configure installs the default slog handler. format is "text" or "json";
// level is one of debug, info, warn, error (default info).
func Configure(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a topic logger. Create them as package vars:
//
//	var posLog = logging.New("position")
func New(topic string) *Logger {
	return &Logger{
		topic:   topic,
		enabled: enabledTopics["*"] || enabledTopics[topic],
	}
}

func (l *Logger) Debug(msg string, args ...any) {
	if !l.enabled {
		return
	}
	slog.Debug(msg, l.with(args)...)
}

func (l *Logger) Info(msg string, args ...any) {
	if !l.enabled {
		return
	}
	slog.Info(msg, l.with(args)...)
}

func (l *Logger) Warn(msg string, args ...any) {
	if !l.enabled {
		return
	}
	slog.Warn(msg, l.with(args)...)
}

func (l *Logger) with(args []any) []any {
	return append([]any{"topic", l.topic}, args...)
}

// Enabled guards expensive argument construction: if log.Enabled() { ... }
func (l *Logger) Enabled() bool {
	return l.enabled
}
