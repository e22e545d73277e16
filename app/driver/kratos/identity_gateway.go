package kratos

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	kratosclient "github.com/ory/kratos-client-go"

	"account-service/app/domain"
	"account-service/app/port"
)

const (
	opSignUp         = "sign_up"
	opSignIn         = "sign_in"
	opVerifyOTP      = "verify_otp"
	opRequestReset   = "request_password_reset"
	opUpdatePassword = "update_password"
	opInstallSession = "install_session"
	opCurrentSession = "current_session"
	opSignOut        = "sign_out"

	verificationPassed = "passed_challenge"
)

// IdentityGateway implements port.IdentityGateway on Kratos native self-service flows.
// It owns the installation's single session: credentials are persisted through the
// credential store and every change is announced to subscribers.
type IdentityGateway struct {
	client *Client
	store  port.CredentialStore
	events *eventHub
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	current *domain.Session
}

// NewIdentityGateway creates a gateway bound to one credential store
func NewIdentityGateway(client *Client, store port.CredentialStore, logger *slog.Logger) *IdentityGateway {
	return &IdentityGateway{
		client: client,
		store:  store,
		events: newEventHub(),
		logger: logger.With("component", "kratos_gateway"),
		now:    time.Now,
	}
}

func (g *IdentityGateway) frontend() kratosclient.FrontendAPI {
	return g.client.Frontend()
}

// SignUp registers a new identity with the password method. The returned
// session is not installed; the caller decides whether to install it.
func (g *IdentityGateway) SignUp(ctx context.Context, email, password string) (*domain.SignUpResult, error) {
	flow, httpResp, err := g.frontend().CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return nil, g.fail(err, httpResp, opSignUp)
	}

	resp, httpResp, err := g.frontend().
		UpdateRegistrationFlow(ctx).
		Flow(flow.GetId()).
		UpdateRegistrationFlowBody(newRegistrationBody(email, password)).
		Execute()
	if err != nil {
		return nil, g.fail(err, httpResp, opSignUp)
	}

	identity, err := toDomainIdentity(resp.GetIdentity())
	if err != nil {
		return nil, g.fail(err, httpResp, opSignUp)
	}

	result := &domain.SignUpResult{Identity: identity}
	if token := resp.GetSessionToken(); token != "" && resp.HasSession() {
		ks := resp.GetSession()
		session, err := toDomainSession(&ks, domain.Credentials{AccessToken: token}, domain.ScopeFull)
		if err != nil {
			g.logger.Warn("ignoring unreadable registration session", "error", err)
		} else {
			result.Session = session
		}
	}

	g.logger.Info("identity registered",
		"identity_id", identity.ID,
		"verified", identity.Verified,
		"session_issued", result.Session != nil)

	return result, nil
}

// SignIn authenticates with email and password and installs the resulting session
func (g *IdentityGateway) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	flow, httpResp, err := g.frontend().CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return nil, g.fail(err, httpResp, opSignIn)
	}

	resp, httpResp, err := g.frontend().
		UpdateLoginFlow(ctx).
		Flow(flow.GetId()).
		UpdateLoginFlowBody(newLoginBody(email, password)).
		Execute()
	if err != nil {
		return nil, g.fail(err, httpResp, opSignIn)
	}

	ks := resp.GetSession()
	session, err := toDomainSession(&ks, domain.Credentials{AccessToken: resp.GetSessionToken()}, domain.ScopeFull)
	if err != nil {
		return nil, g.fail(err, httpResp, opSignIn)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.installLocked(ctx, session)

	return copySession(session), nil
}

// VerifyOTP submits the code from an email confirmation link
func (g *IdentityGateway) VerifyOTP(ctx context.Context, token string, purpose domain.OTPPurpose) error {
	if purpose != domain.OTPPurposeSignup {
		return domain.NewGatewayError(domain.ReasonUnknown, opVerifyOTP,
			fmt.Sprintf("unsupported verification purpose %q", purpose), nil)
	}

	flow, httpResp, err := g.frontend().CreateNativeVerificationFlow(ctx).Execute()
	if err != nil {
		return g.fail(err, httpResp, opVerifyOTP)
	}

	result, httpResp, err := g.frontend().
		UpdateVerificationFlow(ctx).
		Flow(flow.GetId()).
		UpdateVerificationFlowBody(newVerificationBody(token)).
		Execute()
	if err != nil {
		return g.fail(err, httpResp, opVerifyOTP)
	}

	ui := result.GetUi()
	if gwErr := classifyUIMessage(&ui, opVerifyOTP); gwErr != nil {
		return g.fail(gwErr, httpResp, opVerifyOTP)
	}
	if state := fmt.Sprint(result.GetState()); state != verificationPassed {
		return g.fail(domain.NewGatewayError(domain.ReasonInvalidOrExpired, opVerifyOTP,
			"The verification code is invalid or has already been used", nil), httpResp, opVerifyOTP)
	}

	g.logger.Info("email verified", "flow_id", flow.GetId())
	return nil
}

// RequestPasswordReset sends a recovery message whose link returns to redirectTo
func (g *IdentityGateway) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	flow, httpResp, err := g.frontend().CreateNativeRecoveryFlow(ctx).Execute()
	if err != nil {
		return g.fail(err, httpResp, opRequestReset)
	}

	result, httpResp, err := g.frontend().
		UpdateRecoveryFlow(ctx).
		Flow(flow.GetId()).
		UpdateRecoveryFlowBody(newRecoveryBody(email, redirectTo)).
		Execute()
	if err != nil {
		return g.fail(err, httpResp, opRequestReset)
	}

	ui := result.GetUi()
	if gwErr := classifyUIMessage(&ui, opRequestReset); gwErr != nil {
		return g.fail(gwErr, httpResp, opRequestReset)
	}

	g.logger.Info("password recovery requested", "flow_id", flow.GetId())
	return nil
}

// UpdatePassword changes the password under the installed session
func (g *IdentityGateway) UpdatePassword(ctx context.Context, newPassword string) error {
	session, err := g.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return domain.NewGatewayError(domain.ReasonInvalidOrExpired, opUpdatePassword,
			"Auth session missing", domain.ErrNoActiveSession)
	}
	token := session.Credentials.AccessToken

	flow, httpResp, err := g.frontend().CreateNativeSettingsFlow(ctx).XSessionToken(token).Execute()
	if err != nil {
		return g.fail(err, httpResp, opUpdatePassword)
	}

	result, httpResp, err := g.frontend().
		UpdateSettingsFlow(ctx).
		Flow(flow.GetId()).
		XSessionToken(token).
		UpdateSettingsFlowBody(newSettingsPasswordBody(newPassword)).
		Execute()
	if err != nil {
		return g.fail(err, httpResp, opUpdatePassword)
	}

	ui := result.GetUi()
	if gwErr := classifyUIMessage(&ui, opUpdatePassword); gwErr != nil {
		return g.fail(gwErr, httpResp, opUpdatePassword)
	}

	g.logger.Info("password updated", "identity_id", session.Identity.ID)
	g.publish(domain.EventUserUpdated, session)
	return nil
}

// InstallSession validates a credential pair and makes it the current session
func (g *IdentityGateway) InstallSession(ctx context.Context, creds domain.Credentials, scope domain.SessionScope) (*domain.Session, error) {
	if creds.AccessToken == "" {
		return nil, domain.NewGatewayError(domain.ReasonInvalidOrExpired, opInstallSession,
			"Auth session missing", domain.ErrNoActiveSession)
	}
	if scope == "" {
		scope = domain.ScopeFull
	}

	session, err := g.whoami(ctx, creds, scope, opInstallSession)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.installLocked(ctx, session)

	return copySession(session), nil
}

// CurrentSession returns the installed session, restoring it from the
// credential store after a restart. It returns nil when signed out.
func (g *IdentityGateway) CurrentSession(ctx context.Context) (*domain.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current != nil {
		if !g.current.IsExpired(g.now()) {
			return copySession(g.current), nil
		}
		g.logger.Info("session expired", "session_id", g.current.ID)
		g.clearLocked(ctx)
		return nil, nil
	}

	record, ok, err := g.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored credentials: %w", err)
	}
	if !ok || record.Credentials.AccessToken == "" {
		return nil, nil
	}

	session, err := g.whoami(ctx, record.Credentials, record.Scope, opCurrentSession)
	if err != nil {
		switch domain.GatewayReasonOf(err) {
		case domain.ReasonInvalidOrExpired, domain.ReasonNotFound:
			if clearErr := g.store.Clear(ctx); clearErr != nil {
				g.logger.Warn("failed to clear rejected credentials", "error", clearErr)
			}
			return nil, nil
		}
		return nil, err
	}

	g.current = session
	g.logger.Info("session restored",
		"session_id", session.ID,
		"identity_id", session.Identity.ID,
		"scope", session.Scope)

	return copySession(session), nil
}

// SignOut revokes the session remotely and always clears it locally. The
// returned error only reports the remote failure.
func (g *IdentityGateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	token := ""
	if g.current != nil {
		token = g.current.Credentials.AccessToken
	} else if record, ok, err := g.store.Load(ctx); err == nil && ok {
		token = record.Credentials.AccessToken
	}

	var remoteErr error
	if token != "" {
		httpResp, err := g.frontend().
			PerformNativeLogout(ctx).
			PerformNativeLogoutBody(kratosclient.PerformNativeLogoutBody{SessionToken: token}).
			Execute()
		if err != nil {
			gwErr := classifyError(err, httpResp, opSignOut)
			// a token Kratos no longer knows is already signed out
			if gwErr.Reason != domain.ReasonInvalidOrExpired {
				remoteErr = g.fail(gwErr, httpResp, opSignOut)
			}
		}
	}

	g.clearLocked(ctx)
	g.logger.Info("signed out", "remote_error", remoteErr != nil)

	return remoteErr
}

// Subscribe delivers session changes until ctx is done
func (g *IdentityGateway) Subscribe(ctx context.Context) <-chan domain.AuthEvent {
	return g.events.subscribe(ctx)
}

func (g *IdentityGateway) whoami(ctx context.Context, creds domain.Credentials, scope domain.SessionScope, operation string) (*domain.Session, error) {
	ks, httpResp, err := g.frontend().ToSession(ctx).XSessionToken(creds.AccessToken).Execute()
	if err != nil {
		return nil, g.fail(err, httpResp, operation)
	}
	if !ks.GetActive() {
		return nil, g.fail(domain.NewGatewayError(domain.ReasonInvalidOrExpired, operation,
			"Session is no longer active", nil), httpResp, operation)
	}

	session, err := toDomainSession(ks, creds, scope)
	if err != nil {
		return nil, g.fail(err, httpResp, operation)
	}
	if session.IsExpired(g.now()) {
		return nil, g.fail(domain.NewGatewayError(domain.ReasonInvalidOrExpired, operation,
			"Session has expired", nil), httpResp, operation)
	}
	return session, nil
}

// installLocked must be called with g.mu held
func (g *IdentityGateway) installLocked(ctx context.Context, session *domain.Session) {
	previous := g.current

	record := domain.CredentialRecord{
		Credentials: session.Credentials,
		Scope:       session.Scope,
		ExpiresAt:   session.ExpiresAt,
	}
	if err := g.store.Save(ctx, record); err != nil {
		g.logger.Warn("failed to persist credentials, session will not survive a restart",
			"session_id", session.ID,
			"error", err)
	}
	g.current = session

	eventType := domain.EventSignedIn
	switch {
	case session.Scope == domain.ScopeRecovery:
		eventType = domain.EventPasswordRecovery
	case previous != nil && previous.Identity.ID == session.Identity.ID && previous.Scope == session.Scope:
		eventType = domain.EventTokenRefreshed
	}

	g.logger.Info("session installed",
		"session_id", session.ID,
		"identity_id", session.Identity.ID,
		"scope", session.Scope,
		"event", eventType)

	g.publish(eventType, session)
}

// clearLocked must be called with g.mu held
func (g *IdentityGateway) clearLocked(ctx context.Context) {
	g.current = nil
	if err := g.store.Clear(ctx); err != nil {
		g.logger.Warn("failed to clear stored credentials", "error", err)
	}
	g.publish(domain.EventSignedOut, nil)
}

func (g *IdentityGateway) publish(eventType domain.AuthEventType, session *domain.Session) {
	g.events.publish(domain.AuthEvent{
		Type:       eventType,
		Session:    copySession(session),
		OccurredAt: g.now(),
	})
}

func (g *IdentityGateway) fail(err error, httpResp *http.Response, operation string) error {
	gwErr := classifyError(err, httpResp, operation)
	g.logger.Warn("kratos request failed",
		"operation", operation,
		"reason", gwErr.Reason,
		"http_status", getHTTPStatus(httpResp),
		"error", err)
	return gwErr
}

func copySession(session *domain.Session) *domain.Session {
	if session == nil {
		return nil
	}
	s := *session
	return &s
}
