package internal

import "strings"

// NormalizeEmail lowercases and trims an address for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidInstitutionalEmail reports whether email is a plausibly formed address
// under one of the allowed domains. This is a fail-fast format gate, not
// deliverability verification: obviously invalid input must be rejected
// before any token is issued or any network is touched.
func ValidInstitutionalEmail(email string, domains []string) bool {
	email = NormalizeEmail(email)

	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}

	local, domain := email[:at], email[at+1:]
	if strings.ContainsAny(local, " \t@") || strings.Contains(domain, "..") {
		return false
	}

	for _, allowed := range domains {
		if domain == strings.ToLower(strings.TrimSpace(allowed)) {
			return true
		}
	}
	return false
}
