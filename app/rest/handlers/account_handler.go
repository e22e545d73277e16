package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"account-service/app/domain"
	"account-service/app/port"
)

// AccountHandler exposes the account lifecycle flows
type AccountHandler struct {
	accounts port.AccountUsecase
	sessions port.SessionReader
	logger   *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts port.AccountUsecase, sessions port.SessionReader, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		sessions: sessions,
		logger:   logger.With("component", "account_handler"),
	}
}

// LoginScreenResponse is returned when the login screen is opened, optionally
// through an email confirmation link
type LoginScreenResponse struct {
	Confirmation *domain.ActionResult `json:"confirmation,omitempty"`
	Route        domain.RouteDecision `json:"route"`
}

// StateResponse reports the orchestrator's account state. RecoveryCompleted
// tells a reset screen to send the user on to sign-in.
type StateResponse struct {
	State             domain.AccountState `json:"state"`
	RecoveryCompleted bool                `json:"recoveryCompleted"`
}

// Register creates the identity and its profile record
// @Router /v1/account/register [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var form domain.RegistrationForm
	if err := c.Bind(&form); err != nil {
		return badRequest(c, "invalid registration request")
	}

	result, err := h.accounts.Register(c.Request().Context(), form)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, result)
}

// SignIn signs in with email and password
// @Router /v1/account/sign-in [post]
func (h *AccountHandler) SignIn(c echo.Context) error {
	var form domain.SignInForm
	if err := c.Bind(&form); err != nil {
		return badRequest(c, "invalid sign-in request")
	}

	result, err := h.accounts.SignIn(c.Request().Context(), form)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, result)
}

// LoginScreen opens the login screen. A confirmation link carries token and
// type query parameters, which are verified before the route is resolved.
// @Router /v1/account/login [get]
func (h *AccountHandler) LoginScreen(c echo.Context) error {
	token := c.QueryParam("token")
	linkType := c.QueryParam("type")

	var resp LoginScreenResponse
	if token != "" || linkType != "" {
		result, err := h.accounts.ConfirmEmail(c.Request().Context(), token, linkType)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		resp.Confirmation = result
	}

	resp.Route, _ = domain.ResolveRoute(domain.RouteLogin, h.sessions.Snapshot())
	return c.JSON(http.StatusOK, resp)
}

// ForgotPassword sends a password reset link
// @Router /v1/account/forgot-password [post]
func (h *AccountHandler) ForgotPassword(c echo.Context) error {
	var form domain.ResetRequestForm
	if err := c.Bind(&form); err != nil {
		return badRequest(c, "invalid password reset request")
	}

	result, err := h.accounts.RequestPasswordReset(c.Request().Context(), form)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, result)
}

// AuthorizeRecovery installs the credentials carried by a reset link. The
// link lands with access_token and refresh_token query parameters; a client
// may also post them as JSON.
// @Router /v1/account/reset-password/session [get]
// @Router /v1/account/reset-password/session [post]
func (h *AccountHandler) AuthorizeRecovery(c echo.Context) error {
	creds := domain.Credentials{
		AccessToken:  c.QueryParam("access_token"),
		RefreshToken: c.QueryParam("refresh_token"),
	}
	if !creds.Complete() && c.Request().Method == http.MethodPost {
		if err := c.Bind(&creds); err != nil {
			return badRequest(c, "invalid recovery request")
		}
	}

	result, err := h.accounts.AuthorizeRecoverySession(c.Request().Context(), creds)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ResetPassword sets the new password under the recovery session
// @Router /v1/account/reset-password [post]
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var form domain.RecoveryForm
	if err := c.Bind(&form); err != nil {
		return badRequest(c, "invalid password reset request")
	}

	result, err := h.accounts.CompleteRecovery(c.Request().Context(), form)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, result)
}

// SignOut clears the session. A remote failure only adds a warning.
// @Router /v1/account/sign-out [post]
func (h *AccountHandler) SignOut(c echo.Context) error {
	result, err := h.accounts.SignOut(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if result.Warning != "" {
		h.logger.Warn("sign-out completed with warning", "warning", result.Warning)
	}

	return c.JSON(http.StatusOK, result)
}

// State returns the current account state
// @Router /v1/account/state [get]
func (h *AccountHandler) State(c echo.Context) error {
	return c.JSON(http.StatusOK, StateResponse{
		State:             h.accounts.State(),
		RecoveryCompleted: h.accounts.RecoveryCompleted(),
	})
}
