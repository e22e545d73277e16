package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"account-service/app/domain"
	"account-service/app/metrics"
	"account-service/app/port"
	"account-service/app/utils/logger"
	"account-service/app/utils/validator"
)

// User-facing messages
const (
	msgAccountExists        = "An account with this email already exists"
	msgAccountCreated       = "Account created successfully! You can now sign in."
	msgCheckEmail           = "Account created! Please check your email for confirmation."
	msgProfileCreateFailed  = "Account created but profile setup failed"
	msgEmailConfirmed       = "Email confirmed successfully! You can now sign in."
	msgEmailConfirmFailed   = "Email confirmation failed. Please try again."
	msgEmailNotFound        = "Email address not found"
	msgResetEmailFailed     = "Failed to send reset email"
	msgResetLinkSent        = "Password reset link sent to your email!"
	msgInvalidResetLink     = "Invalid or expired reset link"
	msgEnterNewPassword     = "Enter your new password"
	msgPasswordUpdateFailed = "Failed to update password"
	msgPasswordReset        = "Password reset successfully!"
	msgInvalidCredentials   = "Invalid email or password"
	msgSignedIn             = "Signed in successfully"
	msgSignedOut            = "Signed out successfully"
	msgSignOutFailed        = "Error signing out"
	msgAlreadySignedIn      = "You are already signed in"
	msgSignInRequired       = "Please sign in to continue"
	msgSessionLoading       = "Session is still loading"
	msgProfileLoadFailed    = "Failed to load user profile"
	msgProfileUpdateFailed  = "Failed to update profile"
	msgUnexpected           = "An unexpected error occurred"
)

const defaultOperationTimeout = 30 * time.Second

// registerStates are the states a new registration may start from
var registerStates = []domain.AccountState{
	domain.StateAnonymous,
	domain.StatePendingProfileCreation,
	domain.StatePendingEmailVerification,
	domain.StatePasswordRecoveryPending,
}

// AccountConfig holds the orchestrator's settings
type AccountConfig struct {
	// PasswordResetRedirect is embedded in reset emails as the link target
	PasswordResetRedirect string
	// OperationTimeout bounds a registration once it can no longer be cancelled
	OperationTimeout time.Duration
}

// AccountUseCase sequences registration, confirmation, recovery and sign-out
// across the identity gateway and the profile store.
type AccountUseCase struct {
	identity  port.IdentityGateway
	profiles  port.ProfileStore
	sessions  port.SessionReader
	validator *validator.Validator
	state     *domain.AccountStateMachine
	config    AccountConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewAccountUseCase creates a new AccountUseCase instance
func NewAccountUseCase(
	identity port.IdentityGateway,
	profiles port.ProfileStore,
	sessions port.SessionReader,
	v *validator.Validator,
	cfg AccountConfig,
	logger *slog.Logger,
) *AccountUseCase {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = defaultOperationTimeout
	}
	return &AccountUseCase{
		identity:  identity,
		profiles:  profiles,
		sessions:  sessions,
		validator: v,
		state:     domain.NewAccountStateMachine(),
		config:    cfg,
		logger:    logger.With("component", "account_usecase"),
		now:       time.Now,
	}
}

// State returns the current account state
func (uc *AccountUseCase) State() domain.AccountState {
	return uc.state.Current()
}

// RecoveryCompleted reports whether the password was changed under the
// current recovery session
func (uc *AccountUseCase) RecoveryCompleted() bool {
	return uc.state.RecoveryCompleted()
}

// RestoreState seeds the account state from a resolved session snapshot
func (uc *AccountUseCase) RestoreState(snapshot domain.SessionSnapshot) {
	uc.state.Restore(snapshot)
	uc.logger.Info("account state restored", "state", uc.state.Current())
}

// Register creates the identity, installs its session when one is issued and
// writes the profile record. Once the identity exists the remaining steps run
// to completion even if ctx is cancelled.
func (uc *AccountUseCase) Register(ctx context.Context, form domain.RegistrationForm) (*domain.RegistrationResult, error) {
	start := time.Now()
	result, err := uc.register(ctx, form)
	uc.record("register", start, err)
	return result, err
}

func (uc *AccountUseCase) register(ctx context.Context, form domain.RegistrationForm) (*domain.RegistrationResult, error) {
	if errs := uc.validator.ValidateRegistration(form); len(errs) > 0 {
		return nil, errs
	}
	if err := uc.state.Require(registerStates...); err != nil {
		return nil, domain.NewAccountError(domain.KindPrecondition, msgAlreadySignedIn, err).WithRedirect(domain.RouteDashboard)
	}

	dob, err := time.Parse(domain.DateOfBirthLayout, form.DateOfBirth)
	if err != nil {
		return nil, domain.ValidationErrors{"dateOfBirth": "Please enter a valid date of birth"}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.config.OperationTimeout)
	defer cancel()

	signUp, err := uc.identity.SignUp(ctx, form.Email, form.Password)
	if err != nil {
		uc.logger.Warn("sign-up rejected by identity provider",
			"reason", domain.GatewayReasonOf(err),
			"error", err)
		metrics.RecordGatewayError("sign_up", string(domain.GatewayReasonOf(err)))
		return nil, signUpError(err)
	}

	identity := signUp.Identity
	log := logger.WithIdentity(uc.logger, identity.ID.String())
	if err := uc.state.Transition(domain.StatePendingProfileCreation); err != nil {
		uc.logger.Warn("unexpected state during registration", "error", err)
	}

	if signUp.Session != nil {
		if _, err := uc.identity.InstallSession(ctx, signUp.Session.Credentials, domain.ScopeFull); err != nil {
			log.Warn("failed to install sign-up session", "error", err)
		}
	}

	profile := domain.NewProfileRecord(identity.ID, form, dob, uc.now())
	if err := uc.profiles.CreateProfile(ctx, profile); err != nil {
		metrics.RecordConsistencyError()
		log.Error("identity created without profile record",
			"severity", "critical",
			"email", form.Email,
			"error", err)
		return nil, &domain.ConsistencyError{
			IdentityID: identity.ID,
			Email:      form.Email,
			Message:    msgProfileCreateFailed,
			Cause:      err,
		}
	}

	result := &domain.RegistrationResult{Identity: identity}
	if identity.Verified {
		uc.transition(domain.StateAuthenticated)
		result.Message = msgAccountCreated
		result.NextRoute = domain.RouteLogin
	} else {
		uc.transition(domain.StatePendingEmailVerification)
		result.Message = msgCheckEmail
		result.NextRoute = domain.RouteEmailConfirmation
	}
	result.State = uc.state.Current()

	log.Info("account registered",
		"verified", identity.Verified,
		"state", result.State)

	return result, nil
}

// ConfirmEmail verifies a sign-up confirmation link
func (uc *AccountUseCase) ConfirmEmail(ctx context.Context, token, linkType string) (*domain.ActionResult, error) {
	start := time.Now()
	result, err := uc.confirmEmail(ctx, token, linkType)
	uc.record("confirm_email", start, err)
	return result, err
}

func (uc *AccountUseCase) confirmEmail(ctx context.Context, token, linkType string) (*domain.ActionResult, error) {
	if token == "" || linkType == "" {
		return nil, domain.NewAccountError(domain.KindPrecondition, msgEmailConfirmFailed, domain.ErrConfirmationLinkIncomplete)
	}
	if linkType != string(domain.OTPPurposeSignup) {
		return nil, domain.NewAccountError(domain.KindPrecondition, msgEmailConfirmFailed, domain.ErrUnsupportedLinkType)
	}

	if err := uc.identity.VerifyOTP(ctx, token, domain.OTPPurposeSignup); err != nil {
		reason := domain.GatewayReasonOf(err)
		metrics.RecordGatewayError("verify_otp", string(reason))
		uc.logger.Warn("email confirmation failed", "reason", reason, "error", err)

		kind := domain.KindGateway
		if reason == domain.ReasonInvalidOrExpired || reason == domain.ReasonNotFound {
			kind = domain.KindUnauthorized
		}
		return nil, domain.NewAccountError(kind, msgEmailConfirmFailed, err)
	}

	uc.state.TransitionIf(domain.StateAnonymous, domain.StatePendingEmailVerification)

	return &domain.ActionResult{
		Message:   msgEmailConfirmed,
		NextRoute: domain.RouteLogin,
		State:     uc.state.Current(),
	}, nil
}

// RequestPasswordReset asks the identity provider to email a recovery link.
// The local session is left untouched.
func (uc *AccountUseCase) RequestPasswordReset(ctx context.Context, form domain.ResetRequestForm) (*domain.ActionResult, error) {
	start := time.Now()
	result, err := uc.requestPasswordReset(ctx, form)
	uc.record("request_password_reset", start, err)
	return result, err
}

func (uc *AccountUseCase) requestPasswordReset(ctx context.Context, form domain.ResetRequestForm) (*domain.ActionResult, error) {
	if errs := uc.validator.ValidateResetRequest(form); len(errs) > 0 {
		return nil, errs
	}

	if err := uc.identity.RequestPasswordReset(ctx, form.Email, uc.config.PasswordResetRedirect); err != nil {
		reason := domain.GatewayReasonOf(err)
		metrics.RecordGatewayError("request_password_reset", string(reason))
		if reason == domain.ReasonNotFound {
			return nil, domain.NewAccountError(domain.KindNotFound, msgEmailNotFound, err)
		}
		return nil, domain.NewAccountError(domain.KindGateway, gatewayMessage(err, msgResetEmailFailed), err)
	}

	uc.state.TransitionIf(domain.StatePasswordRecoveryPending,
		domain.StateAnonymous,
		domain.StatePendingProfileCreation,
		domain.StatePendingEmailVerification,
		domain.StatePasswordRecoveryPending,
	)

	return &domain.ActionResult{
		Message:   msgResetLinkSent,
		NextRoute: domain.RouteEmailConfirmation,
		State:     uc.state.Current(),
	}, nil
}

// AuthorizeRecoverySession installs the credentials carried by a recovery link.
// The resulting session may only be used to change the password.
func (uc *AccountUseCase) AuthorizeRecoverySession(ctx context.Context, creds domain.Credentials) (*domain.ActionResult, error) {
	start := time.Now()
	result, err := uc.authorizeRecoverySession(ctx, creds)
	uc.record("authorize_recovery_session", start, err)
	return result, err
}

func (uc *AccountUseCase) authorizeRecoverySession(ctx context.Context, creds domain.Credentials) (*domain.ActionResult, error) {
	if !creds.Complete() {
		return nil, domain.NewAccountError(domain.KindUnauthorized, msgInvalidResetLink, domain.ErrRecoveryLinkIncomplete).
			WithRedirect(domain.RouteForgotPassword)
	}

	session, err := uc.identity.InstallSession(ctx, creds, domain.ScopeRecovery)
	if err != nil {
		reason := domain.GatewayReasonOf(err)
		metrics.RecordGatewayError("install_recovery_session", string(reason))
		uc.logger.Warn("recovery link rejected", "reason", reason, "error", err)
		return nil, domain.NewAccountError(domain.KindUnauthorized, msgInvalidResetLink, err).
			WithRedirect(domain.RouteForgotPassword)
	}

	uc.transition(domain.StatePasswordRecoveryAuthorized)
	uc.logger.Info("recovery session authorized", "identity_id", session.Identity.ID)

	return &domain.ActionResult{
		Message:   msgEnterNewPassword,
		NextRoute: domain.RouteResetPassword,
		State:     uc.state.Current(),
	}, nil
}

// CompleteRecovery sets the new password under the recovery session
func (uc *AccountUseCase) CompleteRecovery(ctx context.Context, form domain.RecoveryForm) (*domain.ActionResult, error) {
	start := time.Now()
	result, err := uc.completeRecovery(ctx, form)
	uc.record("complete_recovery", start, err)
	return result, err
}

func (uc *AccountUseCase) completeRecovery(ctx context.Context, form domain.RecoveryForm) (*domain.ActionResult, error) {
	if err := uc.state.Require(domain.StatePasswordRecoveryAuthorized); err != nil {
		return nil, domain.NewAccountError(domain.KindPrecondition, msgInvalidResetLink, err).
			WithRedirect(domain.RouteForgotPassword)
	}
	if errs := uc.validator.ValidateRecovery(form); len(errs) > 0 {
		return nil, errs
	}

	if err := uc.identity.UpdatePassword(ctx, form.Password); err != nil {
		reason := domain.GatewayReasonOf(err)
		metrics.RecordGatewayError("update_password", string(reason))
		switch reason {
		case domain.ReasonInvalidPassword:
			return nil, domain.ValidationErrors{"password": gatewayMessage(err, msgPasswordUpdateFailed)}
		case domain.ReasonInvalidOrExpired:
			return nil, domain.NewAccountError(domain.KindUnauthorized, msgInvalidResetLink, err).
				WithRedirect(domain.RouteForgotPassword)
		}
		return nil, domain.NewAccountError(domain.KindGateway, gatewayMessage(err, msgPasswordUpdateFailed), err)
	}

	uc.state.MarkRecoveryCompleted()

	return &domain.ActionResult{
		Message:   msgPasswordReset,
		NextRoute: domain.RouteLogin,
		State:     uc.state.Current(),
	}, nil
}

// SignIn authenticates with email and password
func (uc *AccountUseCase) SignIn(ctx context.Context, form domain.SignInForm) (*domain.ActionResult, error) {
	start := time.Now()
	result, err := uc.signIn(ctx, form)
	uc.record("sign_in", start, err)
	return result, err
}

func (uc *AccountUseCase) signIn(ctx context.Context, form domain.SignInForm) (*domain.ActionResult, error) {
	if errs := uc.validator.ValidateSignIn(form); len(errs) > 0 {
		return nil, errs
	}

	session, err := uc.identity.SignIn(ctx, form.Email, form.Password)
	if err != nil {
		reason := domain.GatewayReasonOf(err)
		metrics.RecordGatewayError("sign_in", string(reason))
		switch reason {
		case domain.ReasonInvalidOrExpired, domain.ReasonNotFound:
			return nil, domain.NewAccountError(domain.KindUnauthorized, msgInvalidCredentials,
				fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err))
		}
		return nil, domain.NewAccountError(domain.KindGateway, gatewayMessage(err, msgUnexpected), err)
	}

	uc.transition(domain.StateAuthenticated)
	uc.logger.Info("signed in", "identity_id", session.Identity.ID)

	return &domain.ActionResult{
		Message:   msgSignedIn,
		NextRoute: domain.RouteDashboard,
		State:     uc.state.Current(),
	}, nil
}

// SignOut always clears the local session. A remote failure is reported as a warning.
func (uc *AccountUseCase) SignOut(ctx context.Context) (*domain.ActionResult, error) {
	start := time.Now()

	err := uc.identity.SignOut(ctx)
	uc.state.Reset()

	result := &domain.ActionResult{
		Message:   msgSignedOut,
		NextRoute: domain.RouteLogin,
		State:     uc.state.Current(),
	}
	if err != nil {
		metrics.RecordGatewayError("sign_out", string(domain.GatewayReasonOf(err)))
		uc.logger.Warn("remote sign-out failed, local session cleared", "error", err)
		result.Warning = msgSignOutFailed
	}

	uc.record("sign_out", start, nil)
	return result, nil
}

// GetProfile loads the signed-in user's profile
func (uc *AccountUseCase) GetProfile(ctx context.Context) (*domain.ProfileView, error) {
	start := time.Now()
	view, err := uc.getProfile(ctx)
	uc.record("get_profile", start, err)
	return view, err
}

func (uc *AccountUseCase) getProfile(ctx context.Context) (*domain.ProfileView, error) {
	identity, err := uc.signedInIdentity()
	if err != nil {
		return nil, err
	}

	profile, err := uc.profiles.GetProfile(ctx, identity.ID)
	if err != nil {
		return nil, profileError(err, msgProfileLoadFailed)
	}

	view := domain.NewProfileView(profile)
	view.Greeting = domain.GreetingName(profile, identity.Email)
	return &view, nil
}

// UpdateProfile changes the editable profile fields of the signed-in user
func (uc *AccountUseCase) UpdateProfile(ctx context.Context, form domain.ProfileForm) (*domain.ProfileView, error) {
	start := time.Now()
	view, err := uc.updateProfile(ctx, form)
	uc.record("update_profile", start, err)
	return view, err
}

func (uc *AccountUseCase) updateProfile(ctx context.Context, form domain.ProfileForm) (*domain.ProfileView, error) {
	identity, err := uc.signedInIdentity()
	if err != nil {
		return nil, err
	}
	if errs := uc.validator.ValidateProfile(form); len(errs) > 0 {
		return nil, errs
	}
	dob, err := time.Parse(domain.DateOfBirthLayout, form.DateOfBirth)
	if err != nil {
		return nil, domain.ValidationErrors{"dateOfBirth": "Please enter a valid date of birth"}
	}

	profile, err := uc.profiles.GetProfile(ctx, identity.ID)
	if err != nil {
		return nil, profileError(err, msgProfileUpdateFailed)
	}

	profile.ApplyUpdate(form, dob, uc.now())
	if err := uc.profiles.UpdateProfile(ctx, profile); err != nil {
		return nil, profileError(err, msgProfileUpdateFailed)
	}

	uc.logger.Info("profile updated", "identity_id", identity.ID)

	view := domain.NewProfileView(profile)
	view.Greeting = domain.GreetingName(profile, identity.Email)
	return &view, nil
}

// signedInIdentity reads the observed session and requires a full-scope sign-in
func (uc *AccountUseCase) signedInIdentity() (*domain.Identity, error) {
	snapshot := uc.sessions.Snapshot()
	if snapshot.Loading {
		return nil, domain.NewAccountError(domain.KindPrecondition, msgSessionLoading, domain.ErrSessionLoading)
	}
	if !snapshot.Authenticated() {
		return nil, domain.NewAccountError(domain.KindUnauthorized, msgSignInRequired, domain.ErrNoActiveSession).
			WithRedirect(domain.RouteLogin)
	}
	return snapshot.Identity, nil
}

func (uc *AccountUseCase) transition(to domain.AccountState) {
	if err := uc.state.Transition(to); err != nil {
		uc.logger.Warn("account state transition rejected", "to", to, "error", err)
	}
}

func (uc *AccountUseCase) record(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	metrics.RecordOperation(operation, outcome, time.Since(start).Seconds())
}

func signUpError(err error) error {
	switch domain.GatewayReasonOf(err) {
	case domain.ReasonAlreadyRegistered:
		return domain.NewAccountError(domain.KindConflict, msgAccountExists, err)
	case domain.ReasonInvalidPassword:
		return domain.ValidationErrors{"password": gatewayMessage(err, msgUnexpected)}
	}
	return domain.NewAccountError(domain.KindGateway, gatewayMessage(err, msgUnexpected), err)
}

func profileError(err error, message string) error {
	if errors.Is(err, domain.ErrProfileNotFound) {
		return domain.NewAccountError(domain.KindNotFound, message, err)
	}
	return domain.NewAccountError(domain.KindGateway, message, err)
}

// gatewayMessage surfaces the provider's own message when it has one
func gatewayMessage(err error, fallback string) string {
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		return gwErr.Message
	}
	return fallback
}
