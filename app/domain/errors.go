package domain

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Account lifecycle errors
var (
	// Submission errors
	ErrSubmitInProgress = errors.New("submission already in progress")

	// Link errors
	ErrRecoveryLinkIncomplete     = errors.New("recovery link is missing access_token or refresh_token")
	ErrConfirmationLinkIncomplete = errors.New("confirmation link is missing token or type")
	ErrUnsupportedLinkType        = errors.New("unsupported confirmation link type")

	// Session errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoActiveSession    = errors.New("no active session")
	ErrSessionLoading     = errors.New("session is still loading")

	// State errors
	ErrInvalidTransition = errors.New("invalid account state transition")

	// Form errors
	ErrUnknownForm = errors.New("unknown form")

	// Profile errors
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

// ErrorKind classifies failures surfaced by the orchestrator
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindConflict     ErrorKind = "conflict"
	KindNotFound     ErrorKind = "not_found"
	KindGateway      ErrorKind = "gateway"
	KindConsistency  ErrorKind = "consistency"
	KindUnauthorized ErrorKind = "unauthorized"
	KindPrecondition ErrorKind = "precondition"
	KindUnknown      ErrorKind = "unknown"
)

// AccountError is a classified failure carrying the user-facing message
type AccountError struct {
	Kind       ErrorKind
	Message    string
	RedirectTo string
	Cause      error
}

func (e *AccountError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AccountError) Unwrap() error {
	return e.Cause
}

// NewAccountError creates a new classified account error
func NewAccountError(kind ErrorKind, message string, cause error) *AccountError {
	return &AccountError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// WithRedirect sets the route the caller should be sent back to
func (e *AccountError) WithRedirect(route string) *AccountError {
	e.RedirectTo = route
	return e
}

// ConsistencyError reports an identity that exists in the identity provider
// without its profile record.
type ConsistencyError struct {
	IdentityID uuid.UUID
	Email      string
	Message    string
	Cause      error
}

func (e *ConsistencyError) Error() string {
	return e.Message + " (identity " + e.IdentityID.String() + "): " + causeText(e.Cause)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Cause
}

// ValidationErrors maps a form field to its first failing rule message
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// GatewayReason is the identity provider's failure classification
type GatewayReason string

const (
	ReasonAlreadyRegistered GatewayReason = "already_registered"
	ReasonNotFound          GatewayReason = "not_found"
	ReasonInvalidOrExpired  GatewayReason = "invalid_or_expired"
	ReasonInvalidPassword   GatewayReason = "invalid_password"
	ReasonUnavailable       GatewayReason = "unavailable"
	ReasonUnknown           GatewayReason = "unknown"
)

// GatewayError is returned by identity gateway implementations
type GatewayError struct {
	Reason    GatewayReason
	Operation string
	Message   string
	Cause     error
}

func (e *GatewayError) Error() string {
	msg := e.Operation + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// NewGatewayError creates a new gateway error
func NewGatewayError(reason GatewayReason, operation, message string, cause error) *GatewayError {
	return &GatewayError{
		Reason:    reason,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// GatewayReasonOf returns the reason of a wrapped GatewayError, or ReasonUnknown
func GatewayReasonOf(err error) GatewayReason {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Reason
	}
	return ReasonUnknown
}

// KindOf classifies any error produced by the account flows
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var validationErrs ValidationErrors
	if errors.As(err, &validationErrs) {
		return KindValidation
	}

	var consistencyErr *ConsistencyError
	if errors.As(err, &consistencyErr) {
		return KindConsistency
	}

	var accountErr *AccountError
	if errors.As(err, &accountErr) {
		return accountErr.Kind
	}

	switch {
	case errors.Is(err, ErrSubmitInProgress), errors.Is(err, ErrInvalidTransition):
		return KindPrecondition
	case errors.Is(err, ErrNoActiveSession):
		return KindUnauthorized
	case errors.Is(err, ErrProfileNotFound):
		return KindNotFound
	}

	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return KindGateway
	}
	return KindUnknown
}

// UserMessage returns the message intended for display
func UserMessage(err error) string {
	var consistencyErr *ConsistencyError
	if errors.As(err, &consistencyErr) {
		return consistencyErr.Message
	}
	var accountErr *AccountError
	if errors.As(err, &accountErr) {
		return accountErr.Message
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		return gwErr.Message
	}
	return "An unexpected error occurred"
}

func causeText(err error) string {
	if err == nil {
		return "unknown cause"
	}
	return err.Error()
}
