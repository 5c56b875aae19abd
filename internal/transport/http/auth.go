package httpserver

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/auth"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/merge"
	identitymw "github.com/Skotchmaster/storefront/internal/middleware/identity"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const defaultRedirect = "/"

type AuthHTTP struct {
	Svc     *auth.Service
	Google  *auth.Google
	Handles *session.Handles
	Merger  *merge.Merger

	CookieSecure bool
}

type sessionResponse struct {
	User         auth.Profile `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// establish sets the token cookies and folds the anonymous session of the
// request into the account.
func (h *AuthHTTP) establish(c echo.Context, sess *auth.Session) {
	identitymw.SetAuthCookies(c, sess, h.CookieSecure)

	if h.Merger == nil {
		return
	}
	accountID, err := uuid.Parse(sess.Account.ID)
	if err != nil {
		return
	}
	h.Merger.Merge(c.Request().Context(), h.Handles.ID(c.Request()), accountID)
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req auth.SignupInput
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	sess, err := h.Svc.Signup(ctx, req)
	if err != nil {
		return err
	}
	h.establish(c, sess)

	return c.JSON(http.StatusOK, sessionResponse{User: sess.Account, AccessToken: sess.AccessToken, RefreshToken: sess.RefreshToken})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	sess, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	h.establish(c, sess)
	l.Info("login_successful", "account_id", sess.Account.ID)

	return c.JSON(http.StatusOK, sessionResponse{User: sess.Account, AccessToken: sess.AccessToken, RefreshToken: sess.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshToken reads the token from the body and falls back to the cookie.
func refreshToken(c echo.Context) (string, error) {
	var req refreshRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return "", echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
	}
	if req.RefreshToken == "" {
		if ck, err := c.Cookie(tokens.RefreshCookie); err == nil {
			req.RefreshToken = ck.Value
		}
	}
	return req.RefreshToken, nil
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	token, err := refreshToken(c)
	if err != nil {
		return err
	}
	sess, err := h.Svc.Refresh(ctx, token)
	if err != nil {
		return err
	}
	identitymw.SetAuthCookies(c, sess, h.CookieSecure)

	return c.JSON(http.StatusOK, echo.Map{
		"accessToken":  sess.AccessToken,
		"refreshToken": sess.RefreshToken,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	token, err := refreshToken(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Logout(ctx, token); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke refreshToken", "error", err)
	}

	identitymw.ClearAuthCookies(c, h.CookieSecure)
	if err := h.Handles.Delete(c.Response(), c.Request(), session.KeyMergedFor); err != nil {
		l.Warn("session_marker_error", "error", err)
	}
	l.Info("successful_logout")

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (h *AuthHTTP) PromoteAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_promote_admin")

	var req struct {
		Email     string `json:"email"`
		AdminCode string `json:"adminCode"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("promote_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.PromoteAdmin(ctx, req.Email, req.AdminCode)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "message": res.Message, "code": res.Code})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	accountID, ok := identity.FromContext(ctx).Account()
	if !ok {
		return apperr.Unauthenticated("Unauthorized")
	}
	p, err := h.Svc.Profile(ctx, accountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AuthHTTP) googleEnabled() error {
	if h.Google == nil {
		return apperr.New(apperr.ErrUnavailable, "Google OAuth not configured")
	}
	return nil
}

// GoogleStart redirects to Google's consent page. The state and the page to
// return to are kept in the session cookie.
func (h *AuthHTTP) GoogleStart(c echo.Context) error {
	if err := h.googleEnabled(); err != nil {
		return err
	}
	w, r := c.Response(), c.Request()

	state, err := auth.NewState()
	if err != nil {
		return err
	}
	if err := h.Handles.Set(w, r, session.KeyOAuthState, state); err != nil {
		return err
	}
	redirect := auth.SafeRedirect(c.QueryParam("redirect"), defaultRedirect)
	if err := h.Handles.Set(w, r, session.KeyRedirect, redirect); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, h.Google.AuthCodeURL(state))
}

func (h *AuthHTTP) GoogleCallback(c echo.Context) error {
	if err := h.googleEnabled(); err != nil {
		return err
	}
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_google_callback")
	w, r := c.Response(), c.Request()

	if e := c.QueryParam("error"); e != "" {
		l.Warn("oauth_denied", "status", 400, "error", e)
		return apperr.Validation("OAuth error: " + e)
	}
	state, code := c.QueryParam("state"), c.QueryParam("code")
	expected := h.Handles.Get(r, session.KeyOAuthState)
	if code == "" || state == "" || expected == "" || state != expected {
		l.Warn("oauth_state_mismatch", "status", 400)
		return apperr.Validation("Invalid OAuth state")
	}
	redirect := auth.SafeRedirect(h.Handles.Get(r, session.KeyRedirect), defaultRedirect)
	_ = h.Handles.Delete(w, r, session.KeyOAuthState)
	_ = h.Handles.Delete(w, r, session.KeyRedirect)

	profile, err := h.Google.Exchange(ctx, code)
	if err != nil {
		l.Error("oauth_exchange_error", "status", 500, "error", err)
		return apperr.New(apperr.ErrUnavailable, "OAuth callback failed")
	}

	sess, err := h.Svc.SignInExternal(ctx, auth.ProviderGoogle, profile)
	if err != nil {
		return err
	}
	h.establish(c, sess)
	l.Info("oauth_login", "account_id", sess.Account.ID)

	return c.Redirect(http.StatusFound, (&url.URL{Path: redirect}).String())
}
