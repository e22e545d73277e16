package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	corsMaxAge       = 24 * 60 * 60
	headerRetryAfter = "Retry-After"
)

// CORS admits the client origins. Preflight responses are cached for a day and
// Retry-After stays readable so clients can back off from 429 and 503 answers.
func CORS(origins []string) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderXRequestID,
		},
		ExposeHeaders:    []string{echo.HeaderXRequestID, headerRetryAfter},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	})
}
