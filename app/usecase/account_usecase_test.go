package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"account-service/app/domain"
	mock_port "account-service/app/mocks"
	"account-service/app/utils/validator"
)

const testResetRedirect = "https://app.example.com/reset-password"

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

type accountMocks struct {
	identity *mock_port.MockIdentityGateway
	profiles *mock_port.MockProfileStore
	sessions *mock_port.MockSessionReader
}

func newTestAccountUseCase(t *testing.T) (*AccountUseCase, accountMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)

	m := accountMocks{
		identity: mock_port.NewMockIdentityGateway(ctrl),
		profiles: mock_port.NewMockProfileStore(ctrl),
		sessions: mock_port.NewMockSessionReader(ctrl),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	v, err := validator.New()
	require.NoError(t, err)

	uc := NewAccountUseCase(m.identity, m.profiles, m.sessions, v, AccountConfig{
		PasswordResetRedirect: testResetRedirect,
	}, logger)
	uc.now = func() time.Time { return fixedNow }

	return uc, m
}

func registrationForm() domain.RegistrationForm {
	return domain.RegistrationForm{
		FirstName:       " Asha ",
		LastName:        "Rao",
		Email:           "a@b.com",
		CountryCode:     "+91",
		PhoneNumber:     "9876543210",
		DateOfBirth:     "1994-03-12",
		Password:        "Abcdef1!",
		ConfirmPassword: "Abcdef1!",
	}
}

func TestAccountUseCase_Register(t *testing.T) {
	identityID := uuid.New()
	creds := domain.Credentials{AccessToken: "ory_st_signup"}

	tests := []struct {
		name       string
		form       func() domain.RegistrationForm
		setupMocks func(m accountMocks)
		wantKind   domain.ErrorKind
		wantMsg    string
		wantState  domain.AccountState
		check      func(t *testing.T, result *domain.RegistrationResult)
	}{
		{
			name: "unverified identity moves to pending email verification",
			form: registrationForm,
			setupMocks: func(m accountMocks) {
				gomock.InOrder(
					m.identity.EXPECT().
						SignUp(gomock.Any(), "a@b.com", "Abcdef1!").
						Return(&domain.SignUpResult{Identity: domain.Identity{ID: identityID, Email: "a@b.com"}}, nil),
					m.profiles.EXPECT().
						CreateProfile(gomock.Any(), gomock.Any()).
						DoAndReturn(func(_ context.Context, p *domain.ProfileRecord) error {
							assert.Equal(t, identityID, p.ID)
							assert.Equal(t, "Asha", p.FirstName)
							assert.Equal(t, "Rao", p.LastName)
							assert.Equal(t, "+91", p.CountryCode)
							assert.Equal(t, "9876543210", p.PhoneNumber)
							assert.Equal(t, time.Date(1994, 3, 12, 0, 0, 0, 0, time.UTC), p.DateOfBirth)
							assert.Equal(t, fixedNow, p.CreatedAt)
							return nil
						}),
				)
			},
			wantState: domain.StatePendingEmailVerification,
			check: func(t *testing.T, result *domain.RegistrationResult) {
				assert.Equal(t, "Account created! Please check your email for confirmation.", result.Message)
				assert.Equal(t, domain.RouteEmailConfirmation, result.NextRoute)
			},
		},
		{
			name: "verified identity with session installs it before the profile write",
			form: registrationForm,
			setupMocks: func(m accountMocks) {
				gomock.InOrder(
					m.identity.EXPECT().
						SignUp(gomock.Any(), "a@b.com", "Abcdef1!").
						Return(&domain.SignUpResult{
							Identity: domain.Identity{ID: identityID, Email: "a@b.com", Verified: true},
							Session:  &domain.Session{ID: "sess-1", Credentials: creds},
						}, nil),
					m.identity.EXPECT().
						InstallSession(gomock.Any(), creds, domain.ScopeFull).
						Return(&domain.Session{ID: "sess-1"}, nil),
					m.profiles.EXPECT().
						CreateProfile(gomock.Any(), gomock.Any()).
						Return(nil),
				)
			},
			wantState: domain.StateAuthenticated,
			check: func(t *testing.T, result *domain.RegistrationResult) {
				assert.Equal(t, "Account created successfully! You can now sign in.", result.Message)
				assert.Equal(t, domain.RouteLogin, result.NextRoute)
			},
		},
		{
			name: "session install failure does not stop the profile write",
			form: registrationForm,
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().
					SignUp(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(&domain.SignUpResult{
						Identity: domain.Identity{ID: identityID},
						Session:  &domain.Session{Credentials: creds},
					}, nil)
				m.identity.EXPECT().
					InstallSession(gomock.Any(), creds, domain.ScopeFull).
					Return(nil, errors.New("connection reset"))
				m.profiles.EXPECT().CreateProfile(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantState: domain.StatePendingEmailVerification,
		},
		{
			name: "already registered is a conflict and skips the profile store",
			form: registrationForm,
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().
					SignUp(gomock.Any(), "a@b.com", "Abcdef1!").
					Return(nil, domain.NewGatewayError(domain.ReasonAlreadyRegistered, "sign_up", "An account with the same identifier exists already.", nil))
			},
			wantKind:  domain.KindConflict,
			wantMsg:   "An account with this email already exists",
			wantState: domain.StateAnonymous,
		},
		{
			name: "generic gateway failure is surfaced verbatim",
			form: registrationForm,
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().
					SignUp(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, domain.NewGatewayError(domain.ReasonUnavailable, "sign_up", "identity service unavailable", nil))
			},
			wantKind:  domain.KindGateway,
			wantMsg:   "identity service unavailable",
			wantState: domain.StateAnonymous,
		},
		{
			name: "profile write failure is a consistency error",
			form: registrationForm,
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().
					SignUp(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(&domain.SignUpResult{Identity: domain.Identity{ID: identityID}}, nil)
				m.profiles.EXPECT().
					CreateProfile(gomock.Any(), gomock.Any()).
					Times(1).
					Return(errors.New("duplicate key value violates unique constraint"))
			},
			wantKind:  domain.KindConsistency,
			wantMsg:   "Account created but profile setup failed",
			wantState: domain.StatePendingProfileCreation,
		},
		{
			name: "weak password never reaches the network",
			form: func() domain.RegistrationForm {
				f := registrationForm()
				f.Password = "abc"
				f.ConfirmPassword = "abc"
				return f
			},
			setupMocks: func(m accountMocks) {},
			wantKind:   domain.KindValidation,
			wantState:  domain.StateAnonymous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, m := newTestAccountUseCase(t)
			tt.setupMocks(m)

			result, err := uc.Register(context.Background(), tt.form())

			assert.Equal(t, tt.wantState, uc.State())
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Nil(t, result)
				assert.Equal(t, tt.wantKind, domain.KindOf(err))
				if tt.wantMsg != "" {
					assert.Equal(t, tt.wantMsg, domain.UserMessage(err))
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, identityID, result.Identity.ID)
			assert.Equal(t, tt.wantState, result.State)
			if tt.check != nil {
				tt.check(t, result)
			}
		})
	}
}

func TestAccountUseCase_Register_ValidationErrorsAreFieldScoped(t *testing.T) {
	uc, _ := newTestAccountUseCase(t)

	form := registrationForm()
	form.Password = "abc"
	form.ConfirmPassword = "abc"

	_, err := uc.Register(context.Background(), form)

	var errs domain.ValidationErrors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, domain.ValidationErrors{"password": "Password does not meet all requirements"}, errs)
}

func TestAccountUseCase_Register_ConsistencyErrorCarriesIdentity(t *testing.T) {
	uc, m := newTestAccountUseCase(t)
	identityID := uuid.New()
	storeErr := errors.New("insert failed")

	m.identity.EXPECT().
		SignUp(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&domain.SignUpResult{Identity: domain.Identity{ID: identityID}}, nil)
	m.profiles.EXPECT().CreateProfile(gomock.Any(), gomock.Any()).Return(storeErr)

	_, err := uc.Register(context.Background(), registrationForm())

	var consistencyErr *domain.ConsistencyError
	require.True(t, errors.As(err, &consistencyErr))
	assert.Equal(t, identityID, consistencyErr.IdentityID)
	assert.Equal(t, "a@b.com", consistencyErr.Email)
	assert.ErrorIs(t, err, storeErr)
}

func TestAccountUseCase_Register_SurvivesCallerCancellation(t *testing.T) {
	uc, m := newTestAccountUseCase(t)
	ctx, cancel := context.WithCancel(context.Background())

	m.identity.EXPECT().
		SignUp(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string) (*domain.SignUpResult, error) {
			// the caller goes away once the identity exists
			cancel()
			return &domain.SignUpResult{Identity: domain.Identity{ID: uuid.New()}}, nil
		})
	m.profiles.EXPECT().
		CreateProfile(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *domain.ProfileRecord) error {
			return ctx.Err()
		})

	_, err := uc.Register(ctx, registrationForm())

	require.NoError(t, err)
	assert.Equal(t, domain.StatePendingEmailVerification, uc.State())
}

func TestAccountUseCase_Register_RejectedWhenSignedIn(t *testing.T) {
	uc, m := newTestAccountUseCase(t)
	uc.state.Restore(domain.SessionSnapshot{Identity: &domain.Identity{ID: uuid.New()}, Scope: domain.ScopeFull})

	m.identity.EXPECT().SignUp(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := uc.Register(context.Background(), registrationForm())

	assert.Equal(t, domain.KindPrecondition, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAccountUseCase_Register_AcceptsDefaultDialCodes(t *testing.T) {
	for _, code := range domain.Codes(domain.DefaultCountryCodes) {
		t.Run(code, func(t *testing.T) {
			uc, m := newTestAccountUseCase(t)
			form := registrationForm()
			form.CountryCode = code

			m.identity.EXPECT().
				SignUp(gomock.Any(), "a@b.com", "Abcdef1!").
				Return(&domain.SignUpResult{Identity: domain.Identity{ID: uuid.New(), Email: "a@b.com"}}, nil)
			m.profiles.EXPECT().
				CreateProfile(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, p *domain.ProfileRecord) error {
					assert.Equal(t, code, p.CountryCode)
					return nil
				})

			_, err := uc.Register(context.Background(), form)
			require.NoError(t, err)
			assert.Equal(t, domain.StatePendingEmailVerification, uc.State())
		})
	}
}

func TestAccountUseCase_ConfirmEmail(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		linkType   string
		startState domain.AccountState
		setupMocks func(m accountMocks)
		wantErr    error
		wantKind   domain.ErrorKind
		wantState  domain.AccountState
	}{
		{
			name:       "valid signup token",
			token:      "123456",
			linkType:   "signup",
			startState: domain.StatePendingEmailVerification,
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().VerifyOTP(gomock.Any(), "123456", domain.OTPPurposeSignup).Return(nil)
			},
			wantState: domain.StateAnonymous,
		},
		{
			name:       "expired token leaves state unchanged",
			token:      "123456",
			linkType:   "signup",
			startState: domain.StatePendingEmailVerification,
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().
					VerifyOTP(gomock.Any(), "123456", domain.OTPPurposeSignup).
					Return(domain.NewGatewayError(domain.ReasonInvalidOrExpired, "verify_otp", "The verification code is invalid or has already been used.", nil))
			},
			wantKind:  domain.KindUnauthorized,
			wantState: domain.StatePendingEmailVerification,
		},
		{
			name:       "missing token is an error",
			token:      "",
			linkType:   "signup",
			startState: domain.StateAnonymous,
			setupMocks: func(m accountMocks) {},
			wantErr:    domain.ErrConfirmationLinkIncomplete,
			wantKind:   domain.KindPrecondition,
			wantState:  domain.StateAnonymous,
		},
		{
			name:       "wrong link type",
			token:      "123456",
			linkType:   "recovery",
			startState: domain.StateAnonymous,
			setupMocks: func(m accountMocks) {},
			wantErr:    domain.ErrUnsupportedLinkType,
			wantKind:   domain.KindPrecondition,
			wantState:  domain.StateAnonymous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, m := newTestAccountUseCase(t)
			if tt.startState == domain.StatePendingEmailVerification {
				require.NoError(t, uc.state.Transition(domain.StatePendingProfileCreation))
				require.NoError(t, uc.state.Transition(domain.StatePendingEmailVerification))
			}
			tt.setupMocks(m)

			result, err := uc.ConfirmEmail(context.Background(), tt.token, tt.linkType)

			assert.Equal(t, tt.wantState, uc.State())
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, domain.KindOf(err))
				assert.Equal(t, "Email confirmation failed. Please try again.", domain.UserMessage(err))
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Email confirmed successfully! You can now sign in.", result.Message)
			assert.Equal(t, domain.RouteLogin, result.NextRoute)
		})
	}
}

func TestAccountUseCase_RequestPasswordReset(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		setupMocks func(m accountMocks)
		wantKind   domain.ErrorKind
		wantMsg    string
		wantState  domain.AccountState
	}{
		{
			name:  "reset link sent",
			email: "a@b.com",
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().RequestPasswordReset(gomock.Any(), "a@b.com", testResetRedirect).Return(nil)
			},
			wantState: domain.StatePasswordRecoveryPending,
		},
		{
			name:  "unknown email",
			email: "ghost@b.com",
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().
					RequestPasswordReset(gomock.Any(), "ghost@b.com", testResetRedirect).
					Return(domain.NewGatewayError(domain.ReasonNotFound, "request_password_reset", "User not found", nil))
			},
			wantKind:  domain.KindNotFound,
			wantMsg:   "Email address not found",
			wantState: domain.StateAnonymous,
		},
		{
			name:  "generic failure passes the provider message through",
			email: "a@b.com",
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().
					RequestPasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(domain.NewGatewayError(domain.ReasonUnknown, "request_password_reset", "email rate limit exceeded", nil))
			},
			wantKind:  domain.KindGateway,
			wantMsg:   "email rate limit exceeded",
			wantState: domain.StateAnonymous,
		},
		{
			name:  "failure without a message uses the default",
			email: "a@b.com",
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().
					RequestPasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("boom"))
			},
			wantKind:  domain.KindGateway,
			wantMsg:   "Failed to send reset email",
			wantState: domain.StateAnonymous,
		},
		{
			name:       "invalid email is rejected locally",
			email:      "not-an-email",
			setupMocks: func(m accountMocks) {},
			wantKind:   domain.KindValidation,
			wantState:  domain.StateAnonymous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, m := newTestAccountUseCase(t)
			tt.setupMocks(m)

			result, err := uc.RequestPasswordReset(context.Background(), domain.ResetRequestForm{Email: tt.email})

			assert.Equal(t, tt.wantState, uc.State())
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, domain.KindOf(err))
				if tt.wantMsg != "" {
					assert.Equal(t, tt.wantMsg, domain.UserMessage(err))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Password reset link sent to your email!", result.Message)
		})
	}
}

func TestAccountUseCase_RequestPasswordReset_KeepsSignedInState(t *testing.T) {
	uc, m := newTestAccountUseCase(t)
	require.NoError(t, uc.state.Transition(domain.StateAuthenticated))

	m.identity.EXPECT().RequestPasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	_, err := uc.RequestPasswordReset(context.Background(), domain.ResetRequestForm{Email: "a@b.com"})

	require.NoError(t, err)
	assert.Equal(t, domain.StateAuthenticated, uc.State())
}

func TestAccountUseCase_AuthorizeRecoverySession(t *testing.T) {
	full := domain.Credentials{AccessToken: "access", RefreshToken: "refresh"}

	tests := []struct {
		name       string
		creds      domain.Credentials
		setupMocks func(m accountMocks)
		wantErr    error
		wantState  domain.AccountState
	}{
		{
			name:  "both tokens accepted",
			creds: full,
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().
					InstallSession(gomock.Any(), full, domain.ScopeRecovery).
					Return(&domain.Session{ID: "s", Scope: domain.ScopeRecovery}, nil)
			},
			wantState: domain.StatePasswordRecoveryAuthorized,
		},
		{
			name:  "missing refresh token never installs",
			creds: domain.Credentials{AccessToken: "access"},
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().InstallSession(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr:   domain.ErrRecoveryLinkIncomplete,
			wantState: domain.StateAnonymous,
		},
		{
			name:  "missing access token never installs",
			creds: domain.Credentials{RefreshToken: "refresh"},
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().InstallSession(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr:   domain.ErrRecoveryLinkIncomplete,
			wantState: domain.StateAnonymous,
		},
		{
			name:  "expired link",
			creds: full,
			setupMocks: func(m accountMocks) {
				m.identity.EXPECT().
					InstallSession(gomock.Any(), full, domain.ScopeRecovery).
					Return(nil, domain.NewGatewayError(domain.ReasonInvalidOrExpired, "install_session", "session expired", nil))
			},
			wantState: domain.StateAnonymous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, m := newTestAccountUseCase(t)
			tt.setupMocks(m)

			result, err := uc.AuthorizeRecoverySession(context.Background(), tt.creds)

			assert.Equal(t, tt.wantState, uc.State())
			if tt.wantState != domain.StatePasswordRecoveryAuthorized {
				require.Error(t, err)
				var accountErr *domain.AccountError
				require.True(t, errors.As(err, &accountErr))
				assert.Equal(t, "Invalid or expired reset link", accountErr.Message)
				assert.Equal(t, domain.RouteForgotPassword, accountErr.RedirectTo)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.RouteResetPassword, result.NextRoute)
		})
	}
}

func TestAccountUseCase_CompleteRecovery(t *testing.T) {
	validForm := domain.RecoveryForm{Password: "NewPass#2024", ConfirmPassword: "NewPass#2024"}

	t.Run("requires an authorized recovery session", func(t *testing.T) {
		uc, m := newTestAccountUseCase(t)
		m.identity.EXPECT().UpdatePassword(gomock.Any(), gomock.Any()).Times(0)

		_, err := uc.CompleteRecovery(context.Background(), validForm)

		assert.Equal(t, domain.KindPrecondition, domain.KindOf(err))
		assert.Equal(t, domain.StateAnonymous, uc.State())
	})

	t.Run("password updated and session kept", func(t *testing.T) {
		uc, m := newTestAccountUseCase(t)
		require.NoError(t, uc.state.Transition(domain.StatePasswordRecoveryAuthorized))
		m.identity.EXPECT().UpdatePassword(gomock.Any(), "NewPass#2024").Return(nil)
		m.identity.EXPECT().SignOut(gomock.Any()).Times(0)

		result, err := uc.CompleteRecovery(context.Background(), validForm)

		require.NoError(t, err)
		assert.Equal(t, "Password reset successfully!", result.Message)
		assert.Equal(t, domain.RouteLogin, result.NextRoute)
		assert.Equal(t, domain.StatePasswordRecoveryAuthorized, uc.State())
		assert.True(t, uc.RecoveryCompleted())
	})

	t.Run("mismatched confirmation is rejected locally", func(t *testing.T) {
		uc, m := newTestAccountUseCase(t)
		require.NoError(t, uc.state.Transition(domain.StatePasswordRecoveryAuthorized))
		m.identity.EXPECT().UpdatePassword(gomock.Any(), gomock.Any()).Times(0)

		_, err := uc.CompleteRecovery(context.Background(), domain.RecoveryForm{
			Password:        "NewPass#2024",
			ConfirmPassword: "NewPass#2025",
		})

		var errs domain.ValidationErrors
		require.True(t, errors.As(err, &errs))
		assert.Equal(t, "Passwords do not match", errs["confirmPassword"])
	})

	t.Run("gateway failure surfaces verbatim and keeps state", func(t *testing.T) {
		uc, m := newTestAccountUseCase(t)
		require.NoError(t, uc.state.Transition(domain.StatePasswordRecoveryAuthorized))
		m.identity.EXPECT().
			UpdatePassword(gomock.Any(), gomock.Any()).
			Return(domain.NewGatewayError(domain.ReasonUnknown, "update_password", "New password should be different from the old password.", nil))

		_, err := uc.CompleteRecovery(context.Background(), validForm)

		assert.Equal(t, domain.KindGateway, domain.KindOf(err))
		assert.Equal(t, "New password should be different from the old password.", domain.UserMessage(err))
		assert.Equal(t, domain.StatePasswordRecoveryAuthorized, uc.State())
		assert.False(t, uc.RecoveryCompleted())
	})

	t.Run("provider password policy becomes a field error", func(t *testing.T) {
		uc, m := newTestAccountUseCase(t)
		require.NoError(t, uc.state.Transition(domain.StatePasswordRecoveryAuthorized))
		m.identity.EXPECT().
			UpdatePassword(gomock.Any(), gomock.Any()).
			Return(domain.NewGatewayError(domain.ReasonInvalidPassword, "update_password", "The password has been found in data breaches and must no longer be used.", nil))

		_, err := uc.CompleteRecovery(context.Background(), validForm)

		var errs domain.ValidationErrors
		require.True(t, errors.As(err, &errs))
		assert.Contains(t, errs["password"], "data breaches")
	})
}

func TestAccountUseCase_SignIn(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		uc, m := newTestAccountUseCase(t)
		m.identity.EXPECT().
			SignIn(gomock.Any(), "a@b.com", "secret").
			Return(&domain.Session{ID: "s", Identity: domain.Identity{ID: uuid.New()}}, nil)

		result, err := uc.SignIn(context.Background(), domain.SignInForm{Email: "a@b.com", Password: "secret"})

		require.NoError(t, err)
		assert.Equal(t, domain.RouteDashboard, result.NextRoute)
		assert.Equal(t, domain.StateAuthenticated, uc.State())
	})

	t.Run("wrong password", func(t *testing.T) {
		uc, m := newTestAccountUseCase(t)
		m.identity.EXPECT().
			SignIn(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, domain.NewGatewayError(domain.ReasonInvalidOrExpired, "sign_in", "The provided credentials are invalid.", nil))

		_, err := uc.SignIn(context.Background(), domain.SignInForm{Email: "a@b.com", Password: "wrong"})

		assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
		assert.Equal(t, "Invalid email or password", domain.UserMessage(err))
		assert.Equal(t, domain.StateAnonymous, uc.State())
	})
}

func TestAccountUseCase_SignOut(t *testing.T) {
	tests := []struct {
		name        string
		remoteErr   error
		wantWarning string
	}{
		{name: "remote sign-out succeeds"},
		{name: "remote sign-out fails", remoteErr: errors.New("network unreachable"), wantWarning: "Error signing out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, m := newTestAccountUseCase(t)
			require.NoError(t, uc.state.Transition(domain.StateAuthenticated))
			m.identity.EXPECT().SignOut(gomock.Any()).Return(tt.remoteErr)

			result, err := uc.SignOut(context.Background())

			require.NoError(t, err)
			assert.Equal(t, domain.StateAnonymous, uc.State())
			assert.Equal(t, domain.StateAnonymous, result.State)
			assert.Equal(t, "Signed out successfully", result.Message)
			assert.Equal(t, tt.wantWarning, result.Warning)
		})
	}
}

func TestAccountUseCase_GetProfile(t *testing.T) {
	identityID := uuid.New()
	signedIn := domain.SessionSnapshot{
		Identity: &domain.Identity{ID: identityID, Email: "asha@example.com"},
		Scope:    domain.ScopeFull,
	}

	t.Run("loads the profile of the observed identity", func(t *testing.T) {
		uc, m := newTestAccountUseCase(t)
		m.sessions.EXPECT().Snapshot().Return(signedIn)
		m.profiles.EXPECT().GetProfile(gomock.Any(), identityID).Return(&domain.ProfileRecord{
			ID:          identityID,
			FirstName:   "Asha",
			LastName:    "Rao",
			CountryCode: "+91",
			PhoneNumber: "9876543210",
		}, nil)

		view, err := uc.GetProfile(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "Asha Rao", view.FullName)
		assert.Equal(t, "AR", view.Initials)
		assert.Equal(t, "+919876543210", view.FormattedPhone)
		assert.Equal(t, "Asha", view.Greeting)
	})

	t.Run("recovery session cannot read the profile", func(t *testing.T) {
		uc, m := newTestAccountUseCase(t)
		recovery := signedIn
		recovery.Scope = domain.ScopeRecovery
		m.sessions.EXPECT().Snapshot().Return(recovery)
		m.profiles.EXPECT().GetProfile(gomock.Any(), gomock.Any()).Times(0)

		_, err := uc.GetProfile(context.Background())

		assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
	})

	t.Run("still loading", func(t *testing.T) {
		uc, m := newTestAccountUseCase(t)
		m.sessions.EXPECT().Snapshot().Return(domain.SessionSnapshot{Loading: true})

		_, err := uc.GetProfile(context.Background())

		assert.ErrorIs(t, err, domain.ErrSessionLoading)
	})

	t.Run("missing profile record", func(t *testing.T) {
		uc, m := newTestAccountUseCase(t)
		m.sessions.EXPECT().Snapshot().Return(signedIn)
		m.profiles.EXPECT().GetProfile(gomock.Any(), identityID).Return(nil, domain.ErrProfileNotFound)

		_, err := uc.GetProfile(context.Background())

		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
		assert.Equal(t, "Failed to load user profile", domain.UserMessage(err))
	})
}

func TestAccountUseCase_UpdateProfile(t *testing.T) {
	identityID := uuid.New()
	uc, m := newTestAccountUseCase(t)

	m.sessions.EXPECT().Snapshot().Return(domain.SessionSnapshot{
		Identity: &domain.Identity{ID: identityID, Email: "asha@example.com"},
		Scope:    domain.ScopeFull,
	})
	m.profiles.EXPECT().GetProfile(gomock.Any(), identityID).Return(&domain.ProfileRecord{
		ID:        identityID,
		FirstName: "Asha",
		Email:     "asha@example.com",
	}, nil)
	m.profiles.EXPECT().
		UpdateProfile(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *domain.ProfileRecord) error {
			assert.Equal(t, "Ashwini", p.FirstName)
			assert.Equal(t, "Rao", p.LastName)
			assert.Equal(t, "asha@example.com", p.Email)
			assert.Equal(t, fixedNow, p.UpdatedAt)
			return nil
		})

	view, err := uc.UpdateProfile(context.Background(), domain.ProfileForm{
		FirstName:   "Ashwini",
		LastName:    "Rao",
		CountryCode: "+44",
		PhoneNumber: "0123456789",
		DateOfBirth: "1994-03-12",
	})

	require.NoError(t, err)
	assert.Equal(t, "Ashwini Rao", view.FullName)
	assert.Equal(t, "+440123456789", view.FormattedPhone)
}
