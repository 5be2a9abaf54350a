package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Level represents the severity level of a log entry
type Level string

const (
	// LevelDebug represents debug-level logs
	LevelDebug Level = "DEBUG"
	// LevelInfo represents informational logs
	LevelInfo Level = "INFO"
	// LevelWarn represents warning logs
	LevelWarn Level = "WARN"
	// LevelError represents error logs
	LevelError Level = "ERROR"
)

// Entry is the structured log record mirrored to NATS.
type Entry struct {
	Timestamp string `json:"timestamp"` // RFC3339 format
	Level     Level  `json:"level"`
	Component string `json:"component"`
	BotID     string `json:"bot_id"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"` // error details when present
}

// Logger provides structured logging for one bot component. It wraps a
// standard slog.Logger for local logging and optionally publishes each
// entry to NATS for remote consumption.
type Logger struct {
	componentName string
	botID         string
	nc            *nats.Conn
	logger        *slog.Logger
	enabled       bool // whether NATS publishing is enabled
}

// NewLogger creates a logger for one component of a bot. nc may be nil,
// in which case entries are only logged locally.
func NewLogger(componentName, botID string, nc *nats.Conn, logger *slog.Logger) *Logger {
	return &Logger{
		componentName: componentName,
		botID:         botID,
		nc:            nc,
		logger:        logger,
		enabled:       nc != nil,
	}
}

// Debug logs a debug-level message
func (l *Logger) Debug(msg string) {
	l.DebugContext(context.Background(), msg)
}

// Info logs an info-level message
func (l *Logger) Info(msg string) {
	l.InfoContext(context.Background(), msg)
}

// Warn logs a warning-level message
func (l *Logger) Warn(msg string) {
	l.WarnContext(context.Background(), msg)
}

// Error logs an error-level message with optional error details
func (l *Logger) Error(msg string, err error) {
	l.ErrorContext(context.Background(), msg, err)
}

// DebugContext logs a debug-level message with context
func (l *Logger) DebugContext(ctx context.Context, msg string) {
	l.publish(ctx, LevelDebug, msg, "")
	if l.logger != nil {
		l.logger.Debug(msg, "component", l.componentName)
	}
}

// InfoContext logs an info-level message with context
func (l *Logger) InfoContext(ctx context.Context, msg string) {
	l.publish(ctx, LevelInfo, msg, "")
	if l.logger != nil {
		l.logger.Info(msg, "component", l.componentName)
	}
}

// WarnContext logs a warning-level message with context
func (l *Logger) WarnContext(ctx context.Context, msg string) {
	l.publish(ctx, LevelWarn, msg, "")
	if l.logger != nil {
		l.logger.Warn(msg, "component", l.componentName)
	}
}

// ErrorContext logs an error-level message with optional error details and context
func (l *Logger) ErrorContext(ctx context.Context, msg string, err error) {
	detail := ""
	if err != nil {
		detail = fmt.Sprintf("%+v", err)
	}
	l.publish(ctx, LevelError, msg, detail)
	if l.logger != nil {
		l.logger.Error(msg, "component", l.componentName, "error", err)
	}
}

// publish mirrors a log entry to NATS with context cancellation support
func (l *Logger) publish(ctx context.Context, level Level, message, detail string) {
	if !l.enabled {
		return
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Component: l.componentName,
		BotID:     l.botID,
		Message:   message,
		Detail:    detail,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		if l.logger != nil {
			l.logger.Error("Failed to marshal log entry", "error", err)
		}
		return
	}

	// nc may have been cleared after the enabled check
	nc := l.nc
	if nc == nil {
		return
	}

	subject := fmt.Sprintf("logs.%s.%s", l.botID, l.componentName)
	if err := nc.Publish(subject, data); err != nil {
		if l.logger != nil {
			l.logger.Error("Failed to publish log to NATS", "error", err, "subject", subject)
		}
	}
}
