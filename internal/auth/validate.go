package auth

import "strings"

const (
	mobileLength = 10
	pinLength    = 4
)

// Validation messages shown next to the offending field.
const (
	MessageMobileRequired = "Please enter mobile number"
	MessageMobileInvalid  = "Please enter a valid 10-digit mobile number"
	MessagePasswordEmpty  = "Please enter password"
	MessagePinInvalid     = "Please enter your 4-digit MPIN"
)

// ValidateMobile checks a mobile number before it is sent to the backend.
func ValidateMobile(mobile string) error {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return validationError(MessageMobileRequired)
	}
	if !digits(mobile, mobileLength) {
		return validationError(MessageMobileInvalid)
	}
	return nil
}

// ValidatePassword rejects blank passwords.
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return validationError(MessagePasswordEmpty)
	}
	return nil
}

// ValidatePin checks a PIN before it is sent to the backend.
func ValidatePin(pin string) error {
	if !digits(strings.TrimSpace(pin), pinLength) {
		return validationError(MessagePinInvalid)
	}
	return nil
}

func digits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
