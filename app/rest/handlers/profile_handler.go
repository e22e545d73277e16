package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"account-service/app/domain"
	"account-service/app/port"
)

// ProfileHandler serves the signed-in user's profile and dashboard data
type ProfileHandler struct {
	accounts port.AccountUsecase
	logger   *slog.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(accounts port.AccountUsecase, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		accounts: accounts,
		logger:   logger.With("component", "profile_handler"),
	}
}

// GetProfile returns the profile view
// @Router /v1/profile [get]
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	view, err := h.accounts.GetProfile(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, view)
}

// UpdateProfile edits the profile. Email and id cannot change.
// @Router /v1/profile [put]
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	var form domain.ProfileForm
	if err := c.Bind(&form); err != nil {
		return badRequest(c, "invalid profile request")
	}

	view, err := h.accounts.UpdateProfile(c.Request().Context(), form)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, view)
}
