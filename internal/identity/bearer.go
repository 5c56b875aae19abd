package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/tokens"
)

// BearerResolver accepts access tokens from the Authorization header and
// then from the access token cookie.
type BearerResolver struct {
	Tokens *tokens.Issuer
}

func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (b *BearerResolver) Resolve(_ context.Context, r *http.Request) (Identity, error) {
	raw := BearerToken(r)
	if raw == "" {
		if c, err := r.Cookie(tokens.AccessCookie); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		return Anonymous(), ErrNoCredentials
	}

	claims, err := b.Tokens.ParseAccess(raw)
	if err != nil {
		return Anonymous(), fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Anonymous(), fmt.Errorf("%w: bad subject", ErrInvalidCredentials)
	}
	return AccountOf(id, claims.Roles, ChannelBearer, ""), nil
}
