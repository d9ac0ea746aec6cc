// Package privacy masks shopper contact details before they reach logs.
package privacy

import "strings"

// MaskEmail keeps the first character of the local part and the domain
// ("jane.doe@example.com" -> "j***@example.com"). Values without an "@"
// become "invalid"; empty values become "unknown".
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return "unknown"
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "invalid"
	}
	return email[:1] + "***" + email[at:]
}

// MaskPhone keeps the last three digits of a phone number.
func MaskPhone(phone string) string {
	var digits []byte
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) == 0 {
		return "unknown"
	}
	if len(digits) <= 3 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-3) + string(digits[len(digits)-3:])
}
