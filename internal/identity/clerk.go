package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/clerk/clerk-sdk-go/v2/user"

	"github.com/Skotchmaster/storefront/internal/domain"
)

const (
	ProviderClerk = "clerk"

	ClerkSessionCookie = "__session"
)

// ClerkVerifier checks Clerk session tokens from the __session cookie or
// the Authorization header. clerk.SetKey must be called before use.
type ClerkVerifier struct{}

func NewClerkVerifier(secretKey string) *ClerkVerifier {
	clerk.SetKey(secretKey)
	return &ClerkVerifier{}
}

func clerkSessionToken(r *http.Request) string {
	if c, err := r.Cookie(ClerkSessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return BearerToken(r)
}

func (v *ClerkVerifier) Verify(ctx context.Context, r *http.Request) (*domain.ExternalProfile, error) {
	token := clerkSessionToken(r)
	if token == "" {
		return nil, ErrNoCredentials
	}

	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{Token: token})
	if err != nil {
		return nil, err
	}
	u, err := user.Get(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return profileFromClerkUser(u), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func profileFromClerkUser(u *clerk.User) *domain.ExternalProfile {
	p := &domain.ExternalProfile{Subject: u.ID}

	primary := deref(u.PrimaryEmailAddressID)
	for _, e := range u.EmailAddresses {
		if e != nil && e.ID == primary {
			p.Email = e.EmailAddress
			break
		}
	}
	if p.Email == "" && len(u.EmailAddresses) > 0 && u.EmailAddresses[0] != nil {
		p.Email = u.EmailAddresses[0].EmailAddress
	}

	p.Name = strings.TrimSpace(deref(u.FirstName) + " " + deref(u.LastName))

	var meta struct {
		Roles []string `json:"roles"`
	}
	if len(u.PublicMetadata) > 0 && json.Unmarshal(u.PublicMetadata, &meta) == nil {
		p.Roles = meta.Roles
	}
	return p
}
