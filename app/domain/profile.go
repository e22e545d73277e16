package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateOfBirthLayout is the wire format of a date of birth
const DateOfBirthLayout = "2006-01-02"

const notProvided = "Not provided"

// ProfileRecord is the application-owned record keyed by the identity id
type ProfileRecord struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	CountryCode string    `json:"country_code"`
	PhoneNumber string    `json:"phone_number"`
	DateOfBirth time.Time `json:"dob"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProfileRecord builds the record written right after sign-up
func NewProfileRecord(identityID uuid.UUID, form RegistrationForm, dob time.Time, now time.Time) *ProfileRecord {
	return &ProfileRecord{
		ID:          identityID,
		FirstName:   strings.TrimSpace(form.FirstName),
		LastName:    strings.TrimSpace(form.LastName),
		Email:       form.Email,
		CountryCode: form.CountryCode,
		PhoneNumber: form.PhoneNumber,
		DateOfBirth: dob,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyUpdate copies the editable fields of a profile form onto the record
func (p *ProfileRecord) ApplyUpdate(form ProfileForm, dob time.Time, now time.Time) {
	p.FirstName = strings.TrimSpace(form.FirstName)
	p.LastName = strings.TrimSpace(form.LastName)
	p.CountryCode = form.CountryCode
	p.PhoneNumber = form.PhoneNumber
	p.DateOfBirth = dob
	p.UpdatedAt = now
}

// FullName is "first last", the first name alone, or "Not provided"
func (p *ProfileRecord) FullName() string {
	first, last := strings.TrimSpace(p.FirstName), strings.TrimSpace(p.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return notProvided
	}
}

// Initials derives the avatar letters from the name, falling back to the email
func (p *ProfileRecord) Initials() string {
	first, last := firstRune(p.FirstName), firstRune(p.LastName)
	switch {
	case first != "" && last != "":
		return strings.ToUpper(first + last)
	case first != "":
		return strings.ToUpper(first)
	case firstRune(p.Email) != "":
		return strings.ToUpper(firstRune(p.Email))
	default:
		return "U"
	}
}

// FormattedPhone concatenates country code and number, or "Not provided"
func (p *ProfileRecord) FormattedPhone() string {
	if p.PhoneNumber == "" || p.CountryCode == "" {
		return notProvided
	}
	return p.CountryCode + p.PhoneNumber
}

// FormattedDateOfBirth renders the date of birth, or "Not provided"
func (p *ProfileRecord) FormattedDateOfBirth() string {
	if p.DateOfBirth.IsZero() {
		return notProvided
	}
	return p.DateOfBirth.Format("January 2, 2006")
}

// GreetingName picks the name shown on the dashboard: the first name when set,
// otherwise the local part of the signed-in email.
func GreetingName(profile *ProfileRecord, email string) string {
	if profile != nil && strings.TrimSpace(profile.FirstName) != "" {
		return strings.TrimSpace(profile.FirstName)
	}
	if local, _, _ := strings.Cut(email, "@"); local != "" {
		return local
	}
	return "User"
}

// ProfileView is the read model returned to the profile and dashboard screens
type ProfileView struct {
	Profile        *ProfileRecord `json:"profile"`
	FullName       string         `json:"full_name"`
	Initials       string         `json:"initials"`
	FormattedPhone string         `json:"formatted_phone"`
	DateOfBirth    string         `json:"date_of_birth"`
	Greeting       string         `json:"greeting"`
}

// NewProfileView derives the display fields for a profile
func NewProfileView(profile *ProfileRecord) ProfileView {
	return ProfileView{
		Profile:        profile,
		FullName:       profile.FullName(),
		Initials:       profile.Initials(),
		FormattedPhone: profile.FormattedPhone(),
		DateOfBirth:    profile.FormattedDateOfBirth(),
		Greeting:       GreetingName(profile, profile.Email),
	}
}

func firstRune(s string) string {
	for _, r := range strings.TrimSpace(s) {
		return string(r)
	}
	return ""
}
