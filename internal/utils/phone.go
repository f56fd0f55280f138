package utils

import "strings"

// NormalizePhone reduces raw phone input to its canonical stored form: the
// configured country code followed by the local digits.  Non-digit
// characters (spaces, dashes, parentheses) are stripped and an already
// present country code is not duplicated.  An input without any digits
// normalizes to the empty string.
func NormalizePhone(raw, countryCode string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, countryCode) {
		raw = raw[len(countryCode):]
	}
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return countryCode + b.String()
}

// ValidPhone reports whether a normalized phone carries a 10-digit local
// part after the country code.
func ValidPhone(normalized, countryCode string) bool {
	if !strings.HasPrefix(normalized, countryCode) {
		return false
	}
	return len(normalized)-len(countryCode) == 10
}
