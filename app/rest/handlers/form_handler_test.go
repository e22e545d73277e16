package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/app/domain"
	"account-service/app/utils/validator"
)

func TestFormHandler_CountryCodes(t *testing.T) {
	tests := []struct {
		name        string
		codes       []domain.CountryCode
		wantDefault string
	}{
		{
			name:        "default set",
			codes:       domain.DefaultCountryCodes,
			wantDefault: "+91",
		},
		{
			name:        "configured set without the default code",
			codes:       []domain.CountryCode{{Code: "+44", Country: "United Kingdom"}, {Code: "+1", Country: "United States"}},
			wantDefault: "+44",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewFormHandler(tt.codes, nil)
			c, rec := newJSONContext(http.MethodGet, "/v1/forms/country-codes", "")
			require.NoError(t, handler.CountryCodes(c))

			var resp CountryCodesResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantDefault, resp.Default)
			assert.Equal(t, tt.codes, resp.Codes)
		})
	}
}

func TestFormHandler_PasswordRequirements(t *testing.T) {
	handler := NewFormHandler(nil, nil)

	c, rec := newJSONContext(http.MethodGet, "/v1/forms/password-requirements", "")
	require.NoError(t, handler.PasswordRequirements(c))

	var all domain.PasswordPolicyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all.Requirements, 5)
	assert.False(t, all.Valid())

	c, rec = newJSONContext(http.MethodPost, "/v1/forms/password-requirements", `{"password": "abcdefgh1"}`)
	require.NoError(t, handler.CheckPassword(c))

	var checked domain.PasswordPolicyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checked))
	assert.True(t, checked.Satisfied("length"))
	assert.True(t, checked.Satisfied("lowercase"))
	assert.True(t, checked.Satisfied("number"))
	assert.ElementsMatch(t, []string{"uppercase", "special"}, checked.Unmet())

	var summary struct {
		Valid bool     `json:"valid"`
		Unmet []string `json:"unmet"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.False(t, summary.Valid)
	assert.Equal(t, []string{"uppercase", "special"}, summary.Unmet)
}

func newFormCheckContext(form, body string) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := newJSONContext(http.MethodPost, "/v1/forms/"+form+"/check", body)
	c.SetParamNames("form")
	c.SetParamValues(form)
	return c, rec
}

func TestFormHandler_CheckForm(t *testing.T) {
	v, err := validator.New()
	require.NoError(t, err)
	handler := NewFormHandler(domain.DefaultCountryCodes, v)

	tests := []struct {
		name       string
		form       string
		body       string
		wantValues map[string]string
		wantErrors domain.ValidationErrors
		wantValid  bool
	}{
		{
			name: "edit clears only the edited field's error",
			form: domain.FormSignIn,
			body: `{
				"values": {"email": "a@b.com", "password": ""},
				"errors": {"email": "Please enter a valid email", "password": "Password is required"},
				"edited": ["email"]
			}`,
			wantValues: map[string]string{"email": "a@b.com", "password": ""},
			wantErrors: domain.ValidationErrors{"password": "Password is required"},
			wantValid:  false,
		},
		{
			name:       "edit alone does not revalidate",
			form:       domain.FormForgotPassword,
			body:       `{"values": {"email": "nope"}, "edited": ["email"]}`,
			wantValues: map[string]string{"email": "nope"},
			wantErrors: domain.ValidationErrors{},
			wantValid:  true,
		},
		{
			name: "submit replaces every error",
			form: domain.FormResetPassword,
			body: `{
				"values": {"password": "Abcdef1!", "confirmPassword": "Abcdef1?"},
				"errors": {"password": "Password does not meet all requirements"},
				"submit": true
			}`,
			wantValues: map[string]string{"password": "Abcdef1!", "confirmPassword": "Abcdef1?"},
			wantErrors: domain.ValidationErrors{"confirmPassword": "Passwords do not match"},
			wantValid:  false,
		},
		{
			name: "submit of a valid registration with the default dial code",
			form: domain.FormRegistration,
			body: `{
				"values": {
					"firstName": "Asha", "lastName": "Rao", "email": "a@b.com",
					"countryCode": "+91", "phoneNumber": "9876543210", "dateOfBirth": "1994-03-12",
					"password": "Abcdef1!", "confirmPassword": "Abcdef1!"
				},
				"errors": {"countryCode": "Please select a valid country code"},
				"submit": true
			}`,
			wantValues: map[string]string{
				"firstName": "Asha", "lastName": "Rao", "email": "a@b.com",
				"countryCode": "+91", "phoneNumber": "9876543210", "dateOfBirth": "1994-03-12",
				"password": "Abcdef1!", "confirmPassword": "Abcdef1!",
			},
			wantErrors: domain.ValidationErrors{},
			wantValid:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newFormCheckContext(tt.form, tt.body)
			require.NoError(t, handler.CheckForm(c))
			require.Equal(t, http.StatusOK, rec.Code)

			var resp struct {
				Values map[string]string       `json:"values"`
				Errors domain.ValidationErrors `json:"errors"`
				Valid  bool                    `json:"valid"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantValues, resp.Values)
			assert.Equal(t, tt.wantErrors, resp.Errors)
			assert.Equal(t, tt.wantValid, resp.Valid)
		})
	}
}

func TestFormHandler_CheckForm_UnknownForm(t *testing.T) {
	v, err := validator.New()
	require.NoError(t, err)
	handler := NewFormHandler(nil, v)

	c, rec := newFormCheckContext("checkout", `{"submit": true}`)
	require.NoError(t, handler.CheckForm(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeErrorBody(t, rec).Error.Code)
}
