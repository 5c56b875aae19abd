package domain

import "strings"

// ExternalProfile is what an outside identity provider tells us about a
// validated session.
type ExternalProfile struct {
	Subject string
	Email   string
	Name    string
	Roles   []string
}

// NormalizeEmail trims and lowercases an address for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
