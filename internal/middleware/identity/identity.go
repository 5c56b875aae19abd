// Package identitymw resolves the caller identity once per request and
// guards the routes that need an account.
package identitymw

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/auth"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/merge"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const rejectedKey = "identity_rejected"

// Refresher rotates a refresh token into a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
}

type Middleware struct {
	Resolver identity.Resolver
	Handles  *session.Handles
	Merger   *merge.Merger
	// Refresher is optional; without it expired access cookies are not
	// renewed.
	Refresher Refresher
	// SkipRefresh lists route paths that handle the refresh cookie
	// themselves and must see it unrotated.
	SkipRefresh  []string
	CookieSecure bool
}

// Resolve stores the caller identity in the request context. A failing
// identity backend is an error; a rejected credential only makes the caller
// anonymous and is remembered for RequireAccount.
func (m *Middleware) Resolve(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := req.Context()
		l := logging.FromContext(ctx)

		id, err := m.Resolver.Resolve(ctx, req)
		rejected := errors.Is(err, identity.ErrInvalidCredentials)
		if err != nil && !rejected {
			l.Error("identity_resolve_error", "status", 500, "error", err)
			return err
		}

		if id.IsAnonymous() && m.Refresher != nil && !slices.Contains(m.SkipRefresh, c.Path()) {
			if refreshed, ok := m.autoRefresh(c); ok {
				id, rejected = refreshed, false
			}
		}

		if accountID, ok := id.Account(); ok {
			l = l.With("account_id", accountID.String(), "auth_channel", string(id.Channel()))
			ctx = logging.IntoContext(ctx, l)
			if id.Channel() == identity.ChannelExternal {
				m.mergeExternal(ctx, c, id, accountID)
			}
		}
		if rejected {
			c.Set(rejectedKey, true)
		}

		c.SetRequest(c.Request().WithContext(identity.IntoContext(ctx, id)))
		return next(c)
	}
}

// autoRefresh renews the token pair from the refresh cookie when the
// request carries no usable access token. Bearer header clients refresh
// explicitly.
func (m *Middleware) autoRefresh(c echo.Context) (identity.Identity, bool) {
	req := c.Request()
	if identity.BearerToken(req) != "" {
		return identity.Anonymous(), false
	}
	rc, err := req.Cookie(tokens.RefreshCookie)
	if err != nil || rc.Value == "" {
		return identity.Anonymous(), false
	}

	ctx := req.Context()
	sess, err := m.Refresher.Refresh(ctx, rc.Value)
	if err != nil {
		logging.FromContext(ctx).Warn("auto_refresh_failed", "error", err)
		return identity.Anonymous(), false
	}
	accountID, err := uuid.Parse(sess.Account.ID)
	if err != nil {
		return identity.Anonymous(), false
	}

	SetAuthCookies(c, sess, m.CookieSecure)
	logging.FromContext(ctx).Debug("auto_refresh_ok", "account_id", sess.Account.ID)
	return identity.AccountOf(accountID, sess.Account.Roles, identity.ChannelBearer, ""), true
}

// mergeExternal folds the anonymous session into the account the first time
// a given external subject is seen by this session.
func (m *Middleware) mergeExternal(ctx context.Context, c echo.Context, id identity.Identity, accountID uuid.UUID) {
	if m.Handles == nil || m.Merger == nil {
		return
	}
	w, r := c.Response(), c.Request()
	sid := m.Handles.ID(r)
	if sid == "" || m.Handles.Get(r, session.KeyMergedFor) == id.Subject() {
		return
	}
	m.Merger.Merge(ctx, sid, accountID)
	if err := m.Handles.Set(w, r, session.KeyMergedFor, id.Subject()); err != nil {
		logging.FromContext(ctx).Warn("session_marker_error", "error", err)
	}
}

func SetAuthCookies(c echo.Context, sess *auth.Session, secure bool) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, sess.AccessToken, "/", sess.AccessExp, secure))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, sess.RefreshToken, "/", sess.RefreshExp, secure))
}

func ClearAuthCookies(c echo.Context, secure bool) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", secure))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", secure))
}

func Rejected(c echo.Context) bool {
	v, _ := c.Get(rejectedKey).(bool)
	return v
}

func unauthenticated(c echo.Context) error {
	if Rejected(c) {
		return apperr.Unauthenticated("invalid token")
	}
	return apperr.Unauthenticated("Unauthorized")
}

func RequireAccount(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if identity.FromContext(c.Request().Context()).IsAnonymous() {
			return unauthenticated(c)
		}
		return next(c)
	}
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := identity.FromContext(c.Request().Context())
		if id.IsAnonymous() {
			return unauthenticated(c)
		}
		if !id.HasRole(models.RoleAdmin) {
			return apperr.New(apperr.ErrForbidden, "Forbidden (admin role required)")
		}
		return next(c)
	}
}
