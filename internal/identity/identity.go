// Package identity decides, once per request, whether the caller is an
// anonymous visitor or a known account.
package identity

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelNone     Channel = ""
	ChannelBearer   Channel = "bearer"
	ChannelExternal Channel = "external"
)

// Identity is either anonymous or an account. The zero value is anonymous.
type Identity struct {
	account uuid.UUID
	roles   []string
	channel Channel
	subject string
}

func Anonymous() Identity { return Identity{} }

// AccountOf builds an account identity. subject is the foreign subject
// for the external channel and empty otherwise.
func AccountOf(id uuid.UUID, roles []string, channel Channel, subject string) Identity {
	return Identity{account: id, roles: slices.Clone(roles), channel: channel, subject: subject}
}

func (i Identity) IsAnonymous() bool { return i.account == uuid.Nil }

// Account returns the account id and true, or false for anonymous callers.
func (i Identity) Account() (uuid.UUID, bool) {
	return i.account, i.account != uuid.Nil
}

func (i Identity) Roles() []string { return slices.Clone(i.roles) }

func (i Identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }

func (i Identity) Channel() Channel { return i.channel }

func (i Identity) Subject() string { return i.subject }

type ctxKey struct{}

func IntoContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
