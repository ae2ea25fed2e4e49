package whatsapp

import (
	"regexp"
	"strings"
)

const countryCode = "254"

var (
	nonDigits  = regexp.MustCompile(`\D`)
	validPhone = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// FormatPhoneNumber normalises a Kenyan number to the international form
// without a plus sign: "0712 345 678" and "+254712345678" both become
// "254712345678". Formatting an already formatted number is a no-op.
func FormatPhoneNumber(phone string) string {
	digits := nonDigits.ReplaceAllString(phone, "")
	if strings.HasPrefix(digits, countryCode) {
		return digits
	}
	if strings.HasPrefix(digits, "0") {
		return countryCode + digits[1:]
	}
	return countryCode + digits
}

// ValidPhone accepts 10 to 15 digits with an optional leading plus.
func ValidPhone(phone string) bool {
	return validPhone.MatchString(phone)
}
