package auth

import (
	"fmt"
	"slices"
	"strings"
)

var DefaultAllowedDomains = []string{"productmadness.com", "aristocrat.com"}

// CheckEmailDomain accepts an address only when it has exactly one "@", a
// non-empty local part and a domain equal to one of allowed. Subdomains of
// an allowed domain are rejected.
func CheckEmailDomain(email string, allowed []string) error {
	if len(allowed) == 0 {
		allowed = DefaultAllowedDomains
	}

	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return fmt.Errorf("%w: malformed address %q", ErrAuthRejected, email)
	}

	domain = strings.ToLower(domain)
	if !slices.ContainsFunc(allowed, func(d string) bool { return strings.EqualFold(d, domain) }) {
		return fmt.Errorf("%w: %s", ErrAuthRejected, domain)
	}
	return nil
}
