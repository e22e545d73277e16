package port

//go:generate mockgen -source=account_port.go -destination=../mocks/mock_account_port.go -package=mock_port

import (
	"context"

	"account-service/app/domain"
)

// AccountUsecase sequences the account lifecycle flows
type AccountUsecase interface {
	// Registration and confirmation
	Register(ctx context.Context, form domain.RegistrationForm) (*domain.RegistrationResult, error)
	ConfirmEmail(ctx context.Context, token, linkType string) (*domain.ActionResult, error)

	// Password recovery
	RequestPasswordReset(ctx context.Context, form domain.ResetRequestForm) (*domain.ActionResult, error)
	AuthorizeRecoverySession(ctx context.Context, creds domain.Credentials) (*domain.ActionResult, error)
	CompleteRecovery(ctx context.Context, form domain.RecoveryForm) (*domain.ActionResult, error)

	// Session
	SignIn(ctx context.Context, form domain.SignInForm) (*domain.ActionResult, error)
	SignOut(ctx context.Context) (*domain.ActionResult, error)

	// Profile
	GetProfile(ctx context.Context) (*domain.ProfileView, error)
	UpdateProfile(ctx context.Context, form domain.ProfileForm) (*domain.ProfileView, error)

	State() domain.AccountState
	// RecoveryCompleted reports a password change under the current recovery session
	RecoveryCompleted() bool
}

// SessionReader exposes the observed session state
type SessionReader interface {
	Snapshot() domain.SessionSnapshot
	// Watch delivers the latest snapshot after every change until ctx is done
	Watch(ctx context.Context) <-chan domain.SessionSnapshot
}
