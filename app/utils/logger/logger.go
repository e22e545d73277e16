package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

const serviceName = "account-service"

// Format selects the handler output
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Attribute keys whose values never reach the log output
var redactedKeys = map[string]bool{
	"password":         true,
	"confirm_password": true,
	"new_password":     true,
	"access_token":     true,
	"refresh_token":    true,
	"session_token":    true,
	"token":            true,
}

const redacted = "[REDACTED]"

// New creates the process logger on stdout
func New(level string) (*slog.Logger, error) {
	logger, err := NewWithWriter(level, os.Stdout)
	if err != nil {
		return nil, err
	}
	return logger.With("component", "main"), nil
}

// NewWithWriter creates a logger writing to w. LOG_FORMAT picks the format;
// without it, production (GO_ENV) logs JSON and everything else logs text.
func NewWithWriter(level string, w io.Writer) (*slog.Logger, error) {
	logLevel, err := parseLogLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	opts := &slog.HandlerOptions{
		Level:       logLevel,
		AddSource:   logLevel == slog.LevelDebug,
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	switch outputFormat() {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("service", serviceName), nil
}

// WithIdentity scopes a logger to one identity
func WithIdentity(logger *slog.Logger, identityID string) *slog.Logger {
	return logger.With("identity_id", identityID)
}

// WithRequest scopes a logger to one HTTP request
func WithRequest(logger *slog.Logger, requestID, method, path string) *slog.Logger {
	return logger.With(
		"request_id", requestID,
		"method", method,
		"path", path,
	)
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if redactedKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redacted)
	}
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(a.Key, a.Value.Time().UTC().Format(time.RFC3339))
	}
	return a
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

func outputFormat() Format {
	switch Format(strings.ToLower(os.Getenv("LOG_FORMAT"))) {
	case FormatJSON:
		return FormatJSON
	case FormatText:
		return FormatText
	}
	if isProduction() {
		return FormatJSON
	}
	return FormatText
}

func isProduction() bool {
	env := strings.ToLower(os.Getenv("GO_ENV"))
	return env == "production" || env == "prod"
}
