package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"account-service/app/domain"
)

var (
	looseEmailRegex = regexp.MustCompile(`\S+@\S+\.\S+`)
	phoneRegex      = regexp.MustCompile(`^\d{10}$`)
)

// Validator wraps the go-playground validator with the account form rules
type Validator struct {
	validator    *validator.Validate
	countryCodes map[string]struct{}
}

// Option customizes a Validator
type Option func(*Validator)

// WithCountryCodes restricts the accepted dialing prefixes
func WithCountryCodes(codes []string) Option {
	return func(v *Validator) {
		if len(codes) == 0 {
			return
		}
		v.countryCodes = make(map[string]struct{}, len(codes))
		for _, code := range codes {
			v.countryCodes[code] = struct{}{}
		}
	}
}

// New creates a new validator instance with custom rules
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		validator: validator.New(),
	}
	WithCountryCodes(domain.Codes(domain.DefaultCountryCodes))(v)
	for _, opt := range opts {
		opt(v)
	}

	if err := v.registerCustomValidators(); err != nil {
		return nil, err
	}

	// Use JSON field names for validation error keys
	v.validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v, nil
}

// ValidateRegistration checks the sign-up form
func (v *Validator) ValidateRegistration(form domain.RegistrationForm) domain.ValidationErrors {
	return v.validate(form, registrationMessages)
}

// ValidateSignIn checks the login form
func (v *Validator) ValidateSignIn(form domain.SignInForm) domain.ValidationErrors {
	return v.validate(form, signInMessages)
}

// ValidateResetRequest checks the forgot-password form
func (v *Validator) ValidateResetRequest(form domain.ResetRequestForm) domain.ValidationErrors {
	return v.validate(form, resetRequestMessages)
}

// ValidateRecovery checks the new-password form
func (v *Validator) ValidateRecovery(form domain.RecoveryForm) domain.ValidationErrors {
	return v.validate(form, recoveryMessages)
}

// ValidateProfile checks the profile edit form
func (v *Validator) ValidateProfile(form domain.ProfileForm) domain.ValidationErrors {
	return v.validate(form, profileMessages)
}

// ValidateForm checks raw field values, keyed by json name, against the rules
// of the named form
func (v *Validator) ValidateForm(name string, values map[string]string) (domain.ValidationErrors, error) {
	switch name {
	case domain.FormRegistration:
		return validateValues(values, v.ValidateRegistration)
	case domain.FormSignIn:
		return validateValues(values, v.ValidateSignIn)
	case domain.FormForgotPassword:
		return validateValues(values, v.ValidateResetRequest)
	case domain.FormResetPassword:
		return validateValues(values, v.ValidateRecovery)
	case domain.FormProfile:
		return validateValues(values, v.ValidateProfile)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownForm, name)
	}
}

func validateValues[T any](values map[string]string, check func(T) domain.ValidationErrors) (domain.ValidationErrors, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode form values: %w", err)
	}
	var form T
	if err := json.Unmarshal(raw, &form); err != nil {
		return nil, fmt.Errorf("failed to decode form values: %w", err)
	}
	return check(form), nil
}

// validate runs the struct rules and maps each failing field to its message.
// A nil result means the form is valid.
func (v *Validator) validate(form interface{}, messages fieldMessages) domain.ValidationErrors {
	err := v.validator.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.ValidationErrors{"form": err.Error()}
	}

	errs := make(domain.ValidationErrors, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		if _, seen := errs[field]; seen {
			continue
		}
		errs[field] = messages.lookup(field, fe.Tag())
	}
	return errs
}

func (v *Validator) registerCustomValidators() error {
	rules := []struct {
		tag string
		fn  validator.Func
	}{
		// Non-empty after trimming whitespace
		{TagNotBlank, func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		}},
		// local@domain.tld shape, deliberately permissive
		{TagLooseEmail, func(fl validator.FieldLevel) bool {
			return looseEmailRegex.MatchString(fl.Field().String())
		}},
		{TagPhone, func(fl validator.FieldLevel) bool {
			return phoneRegex.MatchString(fl.Field().String())
		}},
		{TagDialCode, func(fl validator.FieldLevel) bool {
			_, ok := v.countryCodes[fl.Field().String()]
			return ok
		}},
		{TagPasswordPolicy, func(fl validator.FieldLevel) bool {
			return CheckPassword(fl.Field().String()).Valid()
		}},
	}

	for _, rule := range rules {
		if err := v.validator.RegisterValidation(rule.tag, rule.fn); err != nil {
			return fmt.Errorf("register %s validation: %w", rule.tag, err)
		}
	}
	return nil
}

// Validation tags registered by New. Names must not collide with the
// library's baked-in tags.
const (
	TagNotBlank       = "notblank"
	TagLooseEmail     = "loose_email"
	TagPhone          = "phone10"
	TagDialCode       = "dial_code"
	TagPasswordPolicy = "password_policy"
)
