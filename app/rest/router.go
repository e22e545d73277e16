package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"account-service/app/domain"
	"account-service/app/port"
	"account-service/app/rest/handlers"
	custommw "account-service/app/rest/middleware"
	apperrors "account-service/app/utils/errors"
)

// RouterConfig holds router configuration
type RouterConfig struct {
	Logger         *slog.Logger
	AccountUsecase port.AccountUsecase
	Sessions       port.SessionReader
	HealthChecks   map[string]handlers.HealthChecker
	CountryCodes   []domain.CountryCode
	Forms          handlers.FormValidator
	AllowedOrigins []string
	ConnectSrc     []string
	ResetPerMinute float64
	ResetBurst     int
	Version        string
	EnableDebug    bool
	EnableMetrics  bool
}

// NewRouter creates and configures the Echo router. The returned stop func
// releases the rate limiters and must be called on shutdown.
func NewRouter(config RouterConfig) (*echo.Echo, func()) {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true
	e.Debug = config.EnableDebug
	e.HTTPErrorHandler = httpErrorHandler(config.Logger)

	// Create handlers
	accountHandler := handlers.NewAccountHandler(config.AccountUsecase, config.Sessions, config.Logger)
	sessionHandler := handlers.NewSessionHandler(config.Sessions, config.Logger)
	profileHandler := handlers.NewProfileHandler(config.AccountUsecase, config.Logger)
	formHandler := handlers.NewFormHandler(config.CountryCodes, config.Forms)
	healthHandler := handlers.NewHealthHandler(config.HealthChecks, config.Version, config.Logger)

	// Create middleware
	guard := custommw.NewSubmitGuard(config.Logger)
	sessionGate := custommw.SessionGate(config.Sessions)
	resetLimiter := custommw.NewRateLimiter(config.ResetPerMinute, config.ResetBurst)
	registerLimiter := custommw.NewRateLimiter(config.ResetPerMinute, config.ResetBurst)
	stop := func() {
		resetLimiter.Stop()
		registerLimiter.Stop()
	}

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(custommw.RequestLogging(config.Logger))
	e.Use(custommw.CORS(config.AllowedOrigins))
	e.Use(custommw.SecurityHeaders(config.ConnectSrc...))

	// API versioning
	v1 := e.Group("/v1")

	// Health endpoints
	v1.GET("/health", healthHandler.HealthCheck)
	v1.GET("/ready", healthHandler.ReadinessCheck)
	v1.GET("/live", healthHandler.LivenessCheck)

	// Form reference data
	forms := v1.Group("/forms")
	forms.GET("/country-codes", formHandler.CountryCodes)
	forms.GET("/password-requirements", formHandler.PasswordRequirements)
	forms.POST("/password-requirements", formHandler.CheckPassword)
	forms.POST("/:form/check", formHandler.CheckForm)

	// Session state
	session := v1.Group("/session")
	session.GET("", sessionHandler.Snapshot)
	session.GET("/events", sessionHandler.Events)
	session.GET("/route", sessionHandler.Route, sessionGate)

	// Account flows
	account := v1.Group("/account")
	account.GET("/state", accountHandler.State)
	account.GET("/login", accountHandler.LoginScreen, sessionGate)
	account.POST("/register", accountHandler.Register,
		registerLimiter.RateLimit(), guard.Guard(domain.FormRegistration))
	account.POST("/sign-in", accountHandler.SignIn, guard.Guard(domain.FormSignIn))
	account.POST("/sign-out", accountHandler.SignOut)
	account.POST("/forgot-password", accountHandler.ForgotPassword,
		resetLimiter.RateLimit(), guard.Guard(domain.FormForgotPassword))
	account.GET("/reset-password/session", accountHandler.AuthorizeRecovery)
	account.POST("/reset-password/session", accountHandler.AuthorizeRecovery)
	account.POST("/reset-password", accountHandler.ResetPassword, guard.Guard(domain.FormResetPassword))

	// Profile
	profile := v1.Group("/profile", sessionGate)
	profile.GET("", profileHandler.GetProfile)
	profile.PUT("", profileHandler.UpdateProfile, guard.Guard(domain.FormProfile))

	if config.EnableMetrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	return e, stop
}

// httpErrorHandler answers routing and framework errors in the same JSON shape
// as handler errors
func httpErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var appErr *apperrors.AppError
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &httpErr):
			appErr = appErrorForStatus(httpErr.Code)
			if msg, ok := httpErr.Message.(string); ok && msg != "" {
				appErr.WithDetails(msg)
			}
		default:
			appErr = apperrors.FromDomain(err)
		}

		if appErr.StatusCode >= http.StatusInternalServerError {
			custommw.RequestLogger(c, logger).Error("unhandled error", "error", err)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(appErr.StatusCode)
		} else {
			writeErr = c.JSON(appErr.StatusCode, apperrors.NewErrorResponse(appErr))
		}
		if writeErr != nil {
			logger.Error("failed to write error response", "error", writeErr)
		}
	}
}

func appErrorForStatus(status int) *apperrors.AppError {
	var code apperrors.ErrorCode
	switch status {
	case http.StatusNotFound:
		code = apperrors.ErrCodeNotFound
	case http.StatusTooManyRequests:
		code = apperrors.ErrCodeRateLimitExceeded
	case http.StatusServiceUnavailable:
		code = apperrors.ErrCodeServiceUnavailable
	case http.StatusBadGateway:
		code = apperrors.ErrCodeIdentityProvider
	default:
		if status < http.StatusInternalServerError {
			code = apperrors.ErrCodeBadRequest
		} else {
			code = apperrors.ErrCodeInternalError
		}
	}

	appErr := apperrors.New(code, http.StatusText(status))
	appErr.StatusCode = status
	return appErr
}
