package domain

// Password requirement ids
const (
	RequirementLength    = "length"
	RequirementUppercase = "uppercase"
	RequirementLowercase = "lowercase"
	RequirementNumber    = "number"
	RequirementSpecial   = "special"
)

// RequirementStatus is one line of the live password checklist
type RequirementStatus struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Satisfied bool   `json:"satisfied"`
}

// PasswordPolicyResult reports every requirement, satisfied or not
type PasswordPolicyResult struct {
	Requirements []RequirementStatus `json:"requirements"`
}

// Valid reports whether every requirement is satisfied
func (r PasswordPolicyResult) Valid() bool {
	for _, req := range r.Requirements {
		if !req.Satisfied {
			return false
		}
	}
	return len(r.Requirements) > 0
}

// Satisfied reports the status of a single requirement
func (r PasswordPolicyResult) Satisfied(id string) bool {
	for _, req := range r.Requirements {
		if req.ID == id {
			return req.Satisfied
		}
	}
	return false
}

// Unmet lists the ids of unsatisfied requirements in checklist order
func (r PasswordPolicyResult) Unmet() []string {
	var unmet []string
	for _, req := range r.Requirements {
		if !req.Satisfied {
			unmet = append(unmet, req.ID)
		}
	}
	return unmet
}
