package domain

// Account form names
const (
	FormRegistration   = "registration"
	FormSignIn         = "sign_in"
	FormForgotPassword = "forgot_password"
	FormResetPassword  = "reset_password"
	FormProfile        = "profile"
)

// IsForm reports whether name is one of the account forms
func IsForm(name string) bool {
	switch name {
	case FormRegistration, FormSignIn, FormForgotPassword, FormResetPassword, FormProfile:
		return true
	}
	return false
}

// RegistrationForm is the sign-up form. Error keys follow the json names.
type RegistrationForm struct {
	FirstName       string `json:"firstName" validate:"notblank"`
	LastName        string `json:"lastName" validate:"notblank"`
	Email           string `json:"email" validate:"required,loose_email"`
	CountryCode     string `json:"countryCode" validate:"required,dial_code"`
	PhoneNumber     string `json:"phoneNumber" validate:"required,phone10"`
	DateOfBirth     string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Password        string `json:"password" validate:"required,password_policy"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// SignInForm is the login form
type SignInForm struct {
	Email    string `json:"email" validate:"required,loose_email"`
	Password string `json:"password" validate:"required"`
}

// ResetRequestForm is the forgot-password form
type ResetRequestForm struct {
	Email string `json:"email" validate:"required,loose_email"`
}

// RecoveryForm is the new-password form shown under a recovery session
type RecoveryForm struct {
	Password        string `json:"password" validate:"required,password_policy"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// ProfileForm is the editable subset of a profile
type ProfileForm struct {
	FirstName   string `json:"firstName" validate:"notblank"`
	LastName    string `json:"lastName" validate:"notblank"`
	CountryCode string `json:"countryCode" validate:"required,dial_code"`
	PhoneNumber string `json:"phoneNumber" validate:"required,phone10"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
}

// FormState holds a form's current values and the errors of its last validation
type FormState struct {
	Values map[string]string `json:"values"`
	Errors ValidationErrors  `json:"errors"`
}

// NewFormState creates an empty form
func NewFormState() *FormState {
	return &FormState{
		Values: make(map[string]string),
		Errors: make(ValidationErrors),
	}
}

// RestoreFormState rebuilds a form from values and errors held by a client
func RestoreFormState(values map[string]string, errs ValidationErrors) *FormState {
	f := NewFormState()
	for field, value := range values {
		f.Values[field] = value
	}
	for field, msg := range errs {
		f.Errors[field] = msg
	}
	return f
}

// Set updates a field value and clears that field's error
func (f *FormState) Set(field, value string) {
	f.Values[field] = value
	delete(f.Errors, field)
}

// ApplyErrors replaces the error set wholesale with the latest validation result
func (f *FormState) ApplyErrors(errs ValidationErrors) {
	f.Errors = make(ValidationErrors, len(errs))
	for field, msg := range errs {
		f.Errors[field] = msg
	}
}

// Valid reports whether the last validation produced no errors
func (f *FormState) Valid() bool {
	return len(f.Errors) == 0
}
