package errors

import (
	"errors"
	"fmt"
	"net/http"

	"account-service/app/domain"
)

// ErrorCode represents specific error types
type ErrorCode string

const (
	// Authentication errors
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidLink        ErrorCode = "INVALID_LINK"

	// Account errors
	ErrCodeAccountExists       ErrorCode = "ACCOUNT_EXISTS"
	ErrCodeAccountInconsistent ErrorCode = "ACCOUNT_INCONSISTENT"
	ErrCodeProfileNotFound     ErrorCode = "PROFILE_NOT_FOUND"
	ErrCodeInvalidState        ErrorCode = "INVALID_STATE"

	// Submission errors
	ErrCodeSubmitInProgress ErrorCode = "SUBMIT_IN_PROGRESS"
	ErrCodeSessionLoading   ErrorCode = "SESSION_LOADING"

	// Validation errors
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// System errors
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrCodeIdentityProvider   ErrorCode = "IDENTITY_PROVIDER_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Rate limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Generic errors
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Fields     map[string]string      `json:"-"`
	RedirectTo string                 `json:"redirect_to,omitempty"`
	StatusCode int                    `json:"-"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// ErrorResponse is the body of every failed request. Validation failures
// also list their per-field messages under errors.
type ErrorResponse struct {
	Error  *AppError         `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

// NewErrorResponse builds the response body for an AppError
func NewErrorResponse(e *AppError) ErrorResponse {
	return ErrorResponse{Error: e, Errors: e.Fields}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithFields attaches per-field validation messages
func (e *AppError) WithFields(fields map[string]string) *AppError {
	e.Fields = fields
	return e
}

// WithRedirect sets the route the client should return to
func (e *AppError) WithRedirect(route string) *AppError {
	e.RedirectTo = route
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getHTTPStatusCode(code),
	}
}

// Wrap wraps an existing error with AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getHTTPStatusCode(code),
		Cause:      cause,
	}
}

// AsAppError converts an error to AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromDomain converts an account flow error into the response error.
// The user-facing message always comes from the domain error.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	var validationErrs domain.ValidationErrors
	if errors.As(err, &validationErrs) {
		return Wrap(ErrCodeValidationFailed, "Please correct the highlighted fields", err).
			WithFields(map[string]string(validationErrs))
	}

	switch {
	case errors.Is(err, domain.ErrSubmitInProgress):
		return Wrap(ErrCodeSubmitInProgress, "A submission is already in progress", err)
	case errors.Is(err, domain.ErrSessionLoading):
		return Wrap(ErrCodeSessionLoading, "Session is still loading", err)
	case errors.Is(err, domain.ErrUnknownForm):
		return Wrap(ErrCodeNotFound, "Form not found", err)
	}

	var redirect string
	var accountErr *domain.AccountError
	if errors.As(err, &accountErr) {
		redirect = accountErr.RedirectTo
	}

	message := domain.UserMessage(err)
	var appErr *AppError
	switch domain.KindOf(err) {
	case domain.KindConflict:
		appErr = Wrap(ErrCodeAccountExists, message, err)
	case domain.KindNotFound:
		code := ErrCodeNotFound
		if errors.Is(err, domain.ErrProfileNotFound) {
			code = ErrCodeProfileNotFound
		}
		appErr = Wrap(code, message, err)
	case domain.KindUnauthorized:
		appErr = Wrap(unauthorizedCode(err, redirect), message, err)
	case domain.KindPrecondition:
		code := ErrCodeInvalidState
		if isLinkError(err) {
			code = ErrCodeInvalidLink
		}
		appErr = Wrap(code, message, err)
	case domain.KindConsistency:
		appErr = Wrap(ErrCodeAccountInconsistent, message, err)
	case domain.KindGateway:
		code := ErrCodeIdentityProvider
		if domain.GatewayReasonOf(err) == domain.ReasonUnavailable {
			code = ErrCodeServiceUnavailable
		}
		appErr = Wrap(code, message, err)
	default:
		appErr = Wrap(ErrCodeInternalError, message, err)
	}

	if redirect != "" {
		appErr.WithRedirect(redirect)
	}
	return appErr
}

func isLinkError(err error) bool {
	return errors.Is(err, domain.ErrRecoveryLinkIncomplete) ||
		errors.Is(err, domain.ErrConfirmationLinkIncomplete) ||
		errors.Is(err, domain.ErrUnsupportedLinkType)
}

func unauthorizedCode(err error, redirect string) ErrorCode {
	switch {
	case redirect == domain.RouteForgotPassword:
		return ErrCodeInvalidLink
	case errors.Is(err, domain.ErrInvalidCredentials):
		return ErrCodeInvalidCredentials
	case errors.Is(err, domain.ErrNoActiveSession):
		return ErrCodeUnauthorized
	}
	return ErrCodeInvalidLink
}

// getHTTPStatusCode maps error codes to HTTP status codes
func getHTTPStatusCode(code ErrorCode) int {
	switch code {
	case ErrCodeUnauthorized, ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case ErrCodeProfileNotFound, ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAccountExists, ErrCodeInvalidState, ErrCodeSubmitInProgress:
		return http.StatusConflict
	case ErrCodeValidationFailed, ErrCodeBadRequest, ErrCodeInvalidLink:
		return http.StatusBadRequest
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeIdentityProvider:
		return http.StatusBadGateway
	case ErrCodeServiceUnavailable, ErrCodeSessionLoading:
		return http.StatusServiceUnavailable
	case ErrCodeInternalError, ErrCodeAccountInconsistent:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions for creating contextual errors

// NewBadRequest creates a bad request error with context
func NewBadRequest(details string) *AppError {
	return New(ErrCodeBadRequest, "bad request").WithDetails(details)
}

// NewNotFound creates a not found error for resource
func NewNotFound(resource string) *AppError {
	return New(ErrCodeNotFound, resource+" not found")
}

// NewRateLimitExceeded creates a rate limit error
func NewRateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Too many requests, please try again later")
}
