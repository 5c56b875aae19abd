package identity

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrNoCredentials means the channel found nothing to check.
	ErrNoCredentials = errors.New("no credentials")
	// ErrInvalidCredentials means a credential was present and rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (Identity, error)
}

// Chain tries resolvers in order and returns the first account found.
// When none succeeds the caller is anonymous; the error is
// ErrInvalidCredentials if some channel rejected a credential and nil
// otherwise.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, r *http.Request) (Identity, error) {
	ctx, span := otel.Tracer("storefront/identity").Start(ctx, "identity.resolve")
	defer span.End()

	rejected := false
	for _, res := range c {
		id, err := res.Resolve(ctx, r)
		switch {
		case err == nil && !id.IsAnonymous():
			span.SetAttributes(attribute.String("identity.channel", string(id.Channel())))
			return id, nil
		case errors.Is(err, ErrInvalidCredentials):
			rejected = true
		case err != nil && !errors.Is(err, ErrNoCredentials):
			span.RecordError(err)
			return Anonymous(), err
		}
	}

	span.SetAttributes(attribute.String("identity.channel", "anonymous"))
	if rejected {
		return Anonymous(), ErrInvalidCredentials
	}
	return Anonymous(), nil
}
