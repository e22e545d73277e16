package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"account-service/app/domain"
	"account-service/app/port"
	apperrors "account-service/app/utils/errors"
)

// SessionHandler exposes the observed session state. It never navigates;
// clients decide where to go from the route decisions it reports.
type SessionHandler struct {
	sessions port.SessionReader
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions port.SessionReader, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger.With("component", "session_handler"),
	}
}

// Snapshot returns the current session state
// @Router /v1/session [get]
func (h *SessionHandler) Snapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessions.Snapshot())
}

// Route resolves the guard of a client route for the current session
// @Router /v1/session/route [get]
func (h *SessionHandler) Route(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		path = domain.RouteRoot
	}

	decision, ok := domain.ResolveRoute(path, h.sessions.Snapshot())
	if !ok {
		appErr := apperrors.NewNotFound("route")
		return c.JSON(appErr.StatusCode, apperrors.NewErrorResponse(appErr))
	}

	return c.JSON(http.StatusOK, decision)
}

// Events streams every session change as server-sent events until the client
// disconnects
// @Router /v1/session/events [get]
func (h *SessionHandler) Events(c echo.Context) error {
	ctx := c.Request().Context()
	updates := h.sessions.Watch(ctx)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot, ok := <-updates:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(snapshot)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(res, "event: session\ndata: %s\n\n", payload); err != nil {
				h.logger.Debug("session stream closed", "error", err)
				return nil
			}
			res.Flush()
		}
	}
}
