package domain

// CountryCode is a selectable dialing prefix
type CountryCode struct {
	Code    string `json:"code" yaml:"code"`
	Country string `json:"country" yaml:"country"`
}

// DefaultCountryCode is preselected on new forms
const DefaultCountryCode = "+91"

// DefaultCountryCodes is the selectable set when configuration does not override it
var DefaultCountryCodes = []CountryCode{
	{Code: "+91", Country: "India"},
	{Code: "+1", Country: "United States"},
	{Code: "+44", Country: "United Kingdom"},
	{Code: "+61", Country: "Australia"},
}

// Codes returns just the prefixes of a country code list
func Codes(list []CountryCode) []string {
	codes := make([]string, 0, len(list))
	for _, c := range list {
		codes = append(codes, c.Code)
	}
	return codes
}
