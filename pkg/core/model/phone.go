package model

import "strings"

// NormalizePhoneE164 converts a user-entered US phone number into E.164 form
// (+1XXXXXXXXXX). Returns false when the input cannot be read as a valid US
// mobile number.
func NormalizePhoneE164(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	digits := digitsOnly(raw)
	switch {
	case len(digits) == 10:
		return "+1" + digits, true
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits, true
	}
	return "", false
}

// PrettyPhone formats a stored E.164 US number for display, e.g.
// "+17025551842" -> "(702) 555-1842".
func PrettyPhone(phone string) string {
	digits := digitsOnly(phone)
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	if len(digits) > 10 {
		digits = digits[:10]
	}

	switch {
	case len(digits) <= 3:
		return digits
	case len(digits) <= 6:
		return "(" + digits[:3] + ") " + digits[3:]
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
