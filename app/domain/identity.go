package domain

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the identity provider's record of a user
type Identity struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials is the opaque token pair that authorizes requests on behalf of an identity
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Complete reports whether both tokens are present
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// SessionScope limits what an installed session may be used for
type SessionScope string

const (
	ScopeFull     SessionScope = "full"
	ScopeRecovery SessionScope = "recovery"
)

// CredentialRecord is what a credential store persists for the current installation
type CredentialRecord struct {
	Credentials Credentials  `json:"credentials"`
	Scope       SessionScope `json:"scope"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Session is an authenticated session bound to one identity
type Session struct {
	ID          string       `json:"id"`
	Identity    Identity     `json:"identity"`
	Credentials Credentials  `json:"-"`
	Scope       SessionScope `json:"scope"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// IsExpired checks the session expiry against now
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// SignUpResult is the identity gateway's answer to a sign-up.
// Session is nil when the provider requires email verification first.
type SignUpResult struct {
	Identity Identity
	Session  *Session
}

// OTPPurpose identifies which one-time token is being verified
type OTPPurpose string

const (
	OTPPurposeSignup OTPPurpose = "signup"
)

// SessionSnapshot is the observed session state shared with every view
type SessionSnapshot struct {
	Identity  *Identity    `json:"identity,omitempty"`
	Scope     SessionScope `json:"scope,omitempty"`
	ExpiresAt time.Time    `json:"expires_at,omitempty"`
	Loading   bool         `json:"loading"`
	Version   uint64       `json:"version"`
}

// Authenticated reports a resolved, full-scope session
func (s SessionSnapshot) Authenticated() bool {
	return !s.Loading && s.Identity != nil && s.Scope != ScopeRecovery
}

// RecoveryOnly reports a resolved session that may only change the password
func (s SessionSnapshot) RecoveryOnly() bool {
	return !s.Loading && s.Identity != nil && s.Scope == ScopeRecovery
}

// AuthEventType enumerates the identity gateway's state change notifications
type AuthEventType string

const (
	EventInitialSession   AuthEventType = "INITIAL_SESSION"
	EventSignedIn         AuthEventType = "SIGNED_IN"
	EventSignedOut        AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed   AuthEventType = "TOKEN_REFRESHED"
	EventUserUpdated      AuthEventType = "USER_UPDATED"
	EventPasswordRecovery AuthEventType = "PASSWORD_RECOVERY"
)

// AuthEvent is emitted whenever the gateway's current session changes.
// Session is nil for EventSignedOut.
type AuthEvent struct {
	Type       AuthEventType
	Session    *Session
	OccurredAt time.Time
}
