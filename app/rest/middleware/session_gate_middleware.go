package middleware

import (
	"github.com/labstack/echo/v4"

	"account-service/app/domain"
	"account-service/app/port"
	apperrors "account-service/app/utils/errors"
)

// SessionGate answers 503 while the initial session resolution is pending
func SessionGate(sessions port.SessionReader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if sessions.Snapshot().Loading {
				appErr := apperrors.FromDomain(domain.ErrSessionLoading)
				c.Response().Header().Set(headerRetryAfter, "1")
				return c.JSON(appErr.StatusCode, apperrors.NewErrorResponse(appErr))
			}
			return next(c)
		}
	}
}
