package port

//go:generate mockgen -source=identity_port.go -destination=../mocks/mock_identity_port.go -package=mock_port

import (
	"context"

	"account-service/app/domain"
)

// IdentityGateway owns the current installation's session against the identity provider
type IdentityGateway interface {
	// Credential flows
	SignUp(ctx context.Context, email, password string) (*domain.SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	VerifyOTP(ctx context.Context, token string, purpose domain.OTPPurpose) error
	RequestPasswordReset(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, newPassword string) error

	// Session management
	InstallSession(ctx context.Context, creds domain.Credentials, scope domain.SessionScope) (*domain.Session, error)
	CurrentSession(ctx context.Context) (*domain.Session, error)
	SignOut(ctx context.Context) error

	// Subscribe delivers every session change until ctx is done
	Subscribe(ctx context.Context) <-chan domain.AuthEvent
}

// CredentialStore persists the installation's credentials between restarts
type CredentialStore interface {
	Save(ctx context.Context, record domain.CredentialRecord) error
	// Load reports false when nothing is stored
	Load(ctx context.Context) (domain.CredentialRecord, bool, error)
	Clear(ctx context.Context) error
}
