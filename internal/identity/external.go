package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
)

// SessionVerifier validates an external identity session carried by the
// request. It returns ErrNoCredentials when the request carries none.
type SessionVerifier interface {
	Verify(ctx context.Context, r *http.Request) (*domain.ExternalProfile, error)
}

// AccountLinker maps a verified external profile to a local account.
type AccountLinker interface {
	LinkExternal(ctx context.Context, provider string, p domain.ExternalProfile) (*models.Account, bool, error)
}

type ExternalResolver struct {
	Provider string
	Verifier SessionVerifier
	Linker   AccountLinker
}

func (e *ExternalResolver) Resolve(ctx context.Context, r *http.Request) (Identity, error) {
	profile, err := e.Verifier.Verify(ctx, r)
	if errors.Is(err, ErrNoCredentials) {
		return Anonymous(), err
	}
	if err != nil {
		return Anonymous(), fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if profile.Subject == "" {
		return Anonymous(), fmt.Errorf("%w: empty subject", ErrInvalidCredentials)
	}

	acc, created, err := e.Linker.LinkExternal(ctx, e.Provider, *profile)
	if err != nil {
		return Anonymous(), fmt.Errorf("link external account: %w", err)
	}
	if created {
		logging.FromContext(ctx).Info("external_account_provisioned",
			"provider", e.Provider, "account_id", acc.ID.String())
	}
	return AccountOf(acc.ID, acc.Roles, ChannelExternal, profile.Subject), nil
}
