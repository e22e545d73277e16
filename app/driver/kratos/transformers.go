package kratos

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	kratosclient "github.com/ory/kratos-client-go"

	"account-service/app/domain"
)

const (
	methodPassword = "password"
	methodCode     = "code"

	// recovery flow transient payload key read by the courier template
	returnToKey = "return_to"
)

// newRegistrationBody builds the password-method registration body
func newRegistrationBody(email, password string) kratosclient.UpdateRegistrationFlowBody {
	method := kratosclient.UpdateRegistrationFlowWithPasswordMethod{
		Method:   methodPassword,
		Password: password,
		Traits: map[string]interface{}{
			"email": email,
		},
	}
	return kratosclient.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(&method)
}

// newLoginBody builds the password-method login body
func newLoginBody(email, password string) kratosclient.UpdateLoginFlowBody {
	method := kratosclient.UpdateLoginFlowWithPasswordMethod{
		Method:     methodPassword,
		Identifier: email,
		Password:   password,
	}
	return kratosclient.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(&method)
}

// newVerificationBody submits a one-time code from a confirmation link
func newVerificationBody(code string) kratosclient.UpdateVerificationFlowBody {
	method := kratosclient.UpdateVerificationFlowWithCodeMethod{
		Method: methodCode,
		Code:   &code,
	}
	return kratosclient.UpdateVerificationFlowWithCodeMethodAsUpdateVerificationFlowBody(&method)
}

// newRecoveryBody requests a recovery message whose link points at redirectTo
func newRecoveryBody(email, redirectTo string) kratosclient.UpdateRecoveryFlowBody {
	method := kratosclient.UpdateRecoveryFlowWithCodeMethod{
		Method: methodCode,
		Email:  &email,
	}
	if redirectTo != "" {
		method.TransientPayload = map[string]interface{}{
			returnToKey: redirectTo,
		}
	}
	return kratosclient.UpdateRecoveryFlowWithCodeMethodAsUpdateRecoveryFlowBody(&method)
}

// newSettingsPasswordBody changes the password of the session's identity
func newSettingsPasswordBody(password string) kratosclient.UpdateSettingsFlowBody {
	method := kratosclient.UpdateSettingsFlowWithPasswordMethod{
		Method:   methodPassword,
		Password: password,
	}
	return kratosclient.UpdateSettingsFlowWithPasswordMethodAsUpdateSettingsFlowBody(&method)
}

// toDomainIdentity maps a Kratos identity, reading the email from its traits
func toDomainIdentity(identity kratosclient.Identity) (domain.Identity, error) {
	id, err := uuid.Parse(identity.GetId())
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid identity id %q: %w", identity.GetId(), err)
	}

	email := traitEmail(identity.GetTraits())
	verified := false
	for _, address := range identity.GetVerifiableAddresses() {
		if !address.GetVerified() {
			continue
		}
		if email == "" || strings.EqualFold(address.GetValue(), email) {
			verified = true
			break
		}
	}

	return domain.Identity{
		ID:        id,
		Email:     email,
		Verified:  verified,
		CreatedAt: identity.GetCreatedAt(),
	}, nil
}

// toDomainSession maps a Kratos session; creds are the pair that was accepted for it
func toDomainSession(session *kratosclient.Session, creds domain.Credentials, scope domain.SessionScope) (*domain.Session, error) {
	if session == nil {
		return nil, fmt.Errorf("empty session")
	}

	identity, err := toDomainIdentity(session.GetIdentity())
	if err != nil {
		return nil, err
	}

	return &domain.Session{
		ID:          session.GetId(),
		Identity:    identity,
		Credentials: creds,
		Scope:       scope,
		ExpiresAt:   session.GetExpiresAt(),
	}, nil
}

func traitEmail(traits interface{}) string {
	m, ok := traits.(map[string]interface{})
	if !ok {
		return ""
	}
	email, _ := m["email"].(string)
	return email
}
