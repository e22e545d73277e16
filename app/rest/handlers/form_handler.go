package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"account-service/app/domain"
	apperrors "account-service/app/utils/errors"
	"account-service/app/utils/validator"
)

// FormValidator validates raw form values by form name
type FormValidator interface {
	ValidateForm(name string, values map[string]string) (domain.ValidationErrors, error)
}

// FormHandler serves the reference data the account forms render from and
// keeps their field errors current while the user edits
type FormHandler struct {
	countryCodes []domain.CountryCode
	forms        FormValidator
}

// NewFormHandler creates a form handler offering the given country codes
func NewFormHandler(countryCodes []domain.CountryCode, forms FormValidator) *FormHandler {
	return &FormHandler{countryCodes: countryCodes, forms: forms}
}

// CountryCodesResponse lists the selectable dialing prefixes
type CountryCodesResponse struct {
	Default string               `json:"default"`
	Codes   []domain.CountryCode `json:"codes"`
}

type passwordCheckRequest struct {
	Password string `json:"password"`
}

// PasswordCheckResponse is the checklist for a candidate password
type PasswordCheckResponse struct {
	domain.PasswordPolicyResult
	Valid bool     `json:"valid"`
	Unmet []string `json:"unmet"`
}

// FormCheckRequest carries a form as the client holds it. Fields listed in
// edited lose their error; submit recomputes every error from the values.
type FormCheckRequest struct {
	Values map[string]string       `json:"values"`
	Errors domain.ValidationErrors `json:"errors"`
	Edited []string                `json:"edited"`
	Submit bool                    `json:"submit"`
}

// FormCheckResponse is the form after the check
type FormCheckResponse struct {
	*domain.FormState
	Valid bool `json:"valid"`
}

// CountryCodes returns the country code selector options
// @Router /v1/forms/country-codes [get]
func (h *FormHandler) CountryCodes(c echo.Context) error {
	def := domain.DefaultCountryCode
	if len(h.countryCodes) > 0 && !containsCode(h.countryCodes, def) {
		def = h.countryCodes[0].Code
	}

	return c.JSON(http.StatusOK, CountryCodesResponse{
		Default: def,
		Codes:   h.countryCodes,
	})
}

// PasswordRequirements lists the password rules, all unmet
// @Router /v1/forms/password-requirements [get]
func (h *FormHandler) PasswordRequirements(c echo.Context) error {
	return c.JSON(http.StatusOK, validator.PasswordRequirements())
}

// CheckPassword reports which password rules a candidate satisfies
// @Router /v1/forms/password-requirements [post]
func (h *FormHandler) CheckPassword(c echo.Context) error {
	var req passwordCheckRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid password check request")
	}

	result := validator.CheckPassword(req.Password)
	return c.JSON(http.StatusOK, PasswordCheckResponse{
		PasswordPolicyResult: result,
		Valid:                result.Valid(),
		Unmet:                result.Unmet(),
	})
}

// CheckForm applies edits to a form and, on submit, revalidates it in full
// @Router /v1/forms/{form}/check [post]
func (h *FormHandler) CheckForm(c echo.Context) error {
	name := c.Param("form")
	if !domain.IsForm(name) {
		appErr := apperrors.FromDomain(fmt.Errorf("%w: %s", domain.ErrUnknownForm, name))
		return c.JSON(appErr.StatusCode, apperrors.NewErrorResponse(appErr))
	}

	var req FormCheckRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid form check request")
	}

	state := domain.RestoreFormState(req.Values, req.Errors)
	for _, field := range req.Edited {
		state.Set(field, req.Values[field])
	}

	if req.Submit {
		errs, err := h.forms.ValidateForm(name, state.Values)
		if err != nil {
			return badRequest(c, err.Error())
		}
		state.ApplyErrors(errs)
	}

	return c.JSON(http.StatusOK, FormCheckResponse{FormState: state, Valid: state.Valid()})
}

func containsCode(codes []domain.CountryCode, code string) bool {
	for _, c := range codes {
		if c.Code == code {
			return true
		}
	}
	return false
}
