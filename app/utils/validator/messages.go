package validator

// fieldMessages maps field -> failing tag -> message shown next to the field
type fieldMessages map[string]map[string]string

func (m fieldMessages) lookup(field, tag string) string {
	if byTag, ok := m[field]; ok {
		if msg, ok := byTag[tag]; ok {
			return msg
		}
		if msg, ok := byTag["*"]; ok {
			return msg
		}
	}
	return field + " is invalid"
}

var (
	firstNameMessages = map[string]string{
		TagNotBlank: "First name is required",
	}
	lastNameMessages = map[string]string{
		TagNotBlank: "Last name is required",
	}
	countryCodeMessages = map[string]string{
		"required":  "Country code is required",
		TagDialCode: "Please select a valid country code",
	}
	phoneMessages = map[string]string{
		"required": "Phone number is required",
		TagPhone:   "Please enter a valid 10-digit phone number",
	}
	dateOfBirthMessages = map[string]string{
		"required": "Date of birth is required",
		"datetime": "Please enter a valid date of birth",
	}
	newPasswordMessages = map[string]string{
		"required":        "Password is required",
		TagPasswordPolicy: "Password does not meet all requirements",
	}
	confirmPasswordMessages = map[string]string{
		"required": "Please confirm your password",
		"eqfield":  "Passwords do not match",
	}
)

var registrationMessages = fieldMessages{
	"firstName": firstNameMessages,
	"lastName":  lastNameMessages,
	"email": {
		"required":    "Email is required",
		TagLooseEmail: "Please enter a valid email",
	},
	"countryCode":     countryCodeMessages,
	"phoneNumber":     phoneMessages,
	"dateOfBirth":     dateOfBirthMessages,
	"password":        newPasswordMessages,
	"confirmPassword": confirmPasswordMessages,
}

var signInMessages = fieldMessages{
	"email": {
		"required":    "Email is required",
		TagLooseEmail: "Please enter a valid email",
	},
	"password": {
		"required": "Password is required",
	},
}

var resetRequestMessages = fieldMessages{
	"email": {
		"required":    "Email is required",
		TagLooseEmail: "Please enter a valid email address",
	},
}

var recoveryMessages = fieldMessages{
	"password":        newPasswordMessages,
	"confirmPassword": confirmPasswordMessages,
}

var profileMessages = fieldMessages{
	"firstName":   firstNameMessages,
	"lastName":    lastNameMessages,
	"countryCode": countryCodeMessages,
	"phoneNumber": phoneMessages,
	"dateOfBirth": dateOfBirthMessages,
}
