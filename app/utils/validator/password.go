package validator

import (
	"regexp"

	"account-service/app/domain"
)

type passwordRequirement struct {
	id    string
	text  string
	regex *regexp.Regexp
}

// passwordRequirements is the checklist shown while typing, in display order
var passwordRequirements = []passwordRequirement{
	{id: domain.RequirementLength, text: "At least 8 characters", regex: regexp.MustCompile(`.{8,}`)},
	{id: domain.RequirementUppercase, text: "One uppercase letter", regex: regexp.MustCompile(`[A-Z]`)},
	{id: domain.RequirementLowercase, text: "One lowercase letter", regex: regexp.MustCompile(`[a-z]`)},
	{id: domain.RequirementNumber, text: "One number", regex: regexp.MustCompile(`\d`)},
	{id: domain.RequirementSpecial, text: "One special character", regex: regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)},
}

// CheckPassword evaluates every requirement independently so the caller can
// render a live checklist.
func CheckPassword(password string) domain.PasswordPolicyResult {
	statuses := make([]domain.RequirementStatus, 0, len(passwordRequirements))
	for _, req := range passwordRequirements {
		statuses = append(statuses, domain.RequirementStatus{
			ID:        req.id,
			Text:      req.text,
			Satisfied: req.regex.MatchString(password),
		})
	}
	return domain.PasswordPolicyResult{Requirements: statuses}
}

// PasswordRequirements returns the checklist with nothing satisfied
func PasswordRequirements() domain.PasswordPolicyResult {
	statuses := make([]domain.RequirementStatus, 0, len(passwordRequirements))
	for _, req := range passwordRequirements {
		statuses = append(statuses, domain.RequirementStatus{ID: req.id, Text: req.text})
	}
	return domain.PasswordPolicyResult{Requirements: statuses}
}
