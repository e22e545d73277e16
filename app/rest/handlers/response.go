package handlers

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"account-service/app/rest/middleware"
	apperrors "account-service/app/utils/errors"
)

// respondError writes the JSON error body for err and logs it with the
// request-scoped logger
func respondError(c echo.Context, logger *slog.Logger, err error) error {
	appErr := apperrors.FromDomain(err)
	l := middleware.RequestLogger(c, logger)

	if appErr.StatusCode >= 500 {
		l.Error("request failed", "code", appErr.Code, "error", err)
	} else {
		l.Debug("request rejected", "code", appErr.Code, "error", err)
	}

	return c.JSON(appErr.StatusCode, apperrors.NewErrorResponse(appErr))
}

func badRequest(c echo.Context, details string) error {
	appErr := apperrors.NewBadRequest(details)
	return c.JSON(appErr.StatusCode, apperrors.NewErrorResponse(appErr))
}
