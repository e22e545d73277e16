package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"account-service/app/utils/logger"
)

// LoggerKey is the echo context key of the request-scoped logger
const LoggerKey = "logger"

// RequestLogging logs every request once it completes and exposes a
// request-scoped logger to handlers under LoggerKey.
func RequestLogging(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = req.Header.Get(echo.HeaderXRequestID)
			}
			reqLogger := logger.WithRequest(base, requestID, req.Method, req.URL.Path)
			c.Set(LoggerKey, reqLogger)

			err := next(c)
			if err != nil {
				// Let echo write the response so the logged status is final
				c.Error(err)
			}

			status := c.Response().Status
			args := []interface{}{
				"status", status,
				"ip", c.RealIP(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			switch {
			case status >= 500:
				reqLogger.Error("request failed", append(args, "error", err)...)
			case status >= 400:
				reqLogger.Warn("request rejected", args...)
			default:
				reqLogger.Info("request processed", args...)
			}

			return nil
		}
	}
}

// RequestLogger returns the request-scoped logger, or fallback outside a request
func RequestLogger(c echo.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := c.Get(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return fallback
}
