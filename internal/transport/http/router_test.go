package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/admin"
	"github.com/Skotchmaster/storefront/internal/auth"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/merge"
	"github.com/Skotchmaster/storefront/internal/metrics"
	identitymw "github.com/Skotchmaster/storefront/internal/middleware/identity"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/ratelimit"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/order"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const (
	testPassword    = "s3cretpass"
	externalHeader  = "X-Test-External"
	testAdminSecret = "letmein"
)

// headerVerifier stands in for the external identity provider: the
// subject is read from a request header.
type headerVerifier struct{}

func (headerVerifier) Verify(_ context.Context, r *http.Request) (*domain.ExternalProfile, error) {
	sub := r.Header.Get(externalHeader)
	if sub == "" {
		return nil, identity.ErrNoCredentials
	}
	return &domain.ExternalProfile{Subject: sub, Email: sub + "@external.test", Name: "External"}, nil
}

type testOptions struct {
	csrf      bool
	authLimit int
}

type testServer struct {
	*httptest.Server
	repo    *repo.GormRepo
	product models.Product
	other   models.Product
}

func newTestServer(t *testing.T, opts testOptions) *testServer {
	t.Helper()

	gdb := testutil.OpenDB(t)
	r := repo.New(gdb)
	store := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	issuer := &tokens.Issuer{
		AccessSecret:  []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		Pepper:        "pepper",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}
	m := metrics.New()
	handles := session.NewHandles([]byte("test-session-secret-0123456789ab"), time.Hour, false)
	carts := cart.New(store, r, catalog.New(r), nil)
	merger := &merge.Merger{Sessions: store, Accounts: r, Metrics: m}
	authSvc := &auth.Service{Repo: r, Tokens: issuer, Metrics: m, AdminSignupCode: testAdminSecret}
	adminSvc := &admin.Service{Repo: r}

	d := &Deps{
		Identity: &identitymw.Middleware{
			Resolver: identity.Chain{
				&identity.BearerResolver{Tokens: issuer},
				&identity.ExternalResolver{Provider: "test", Verifier: headerVerifier{}, Linker: r},
			},
			Handles:   handles,
			Merger:    merger,
			Refresher: authSvc,
		},
		Metrics: m,
		Auth:    &AuthHTTP{Svc: authSvc, Handles: handles, Merger: merger},
		Cart:    &CartHTTP{Svc: carts, Handles: handles},
		Order:   &OrderHTTP{Svc: &order.Service{Repo: r, Carts: carts, Metrics: m}, Handles: handles},
		Admin:   &AdminHTTP{Svc: adminSvc},
		Health:  &HealthHTTP{Admin: adminSvc, DB: gdb, Sessions: store},

		CSRFEnabled: opts.csrf,
	}
	if opts.authLimit > 0 {
		d.AuthLimiter = ratelimit.MemoryStore(opts.authLimit, time.Minute)
	}

	e := NewEcho(d, loggingmw.RequestLogger(slog.New(slog.DiscardHandler)))
	Register(e, d)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &testServer{
		Server:  srv,
		repo:    r,
		product: testutil.SeedProduct(t, gdb, 10),
		other:   testutil.SeedProduct(t, gdb, 2.5),
	}
}

// client returns an HTTP client with its own cookie jar, one per visitor.
func (s *testServer) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type call struct {
	method string
	path   string
	body   any
	header map[string]string
}

func (s *testServer) do(t *testing.T, cl *http.Client, c call, out any) int {
	t.Helper()

	var body io.Reader
	if c.body != nil {
		b, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(c.method, s.URL+c.path, body)
	require.NoError(t, err)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}

	resp, err := cl.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *testServer) signup(t *testing.T, cl *http.Client, body map[string]any) map[string]any {
	t.Helper()
	var out map[string]any
	status := s.do(t, cl, call{method: http.MethodPost, path: "/api/auth/signup", body: body}, &out)
	require.Equal(t, http.StatusOK, status, out)
	return out
}

func newSignup() map[string]any {
	return map[string]any{
		"name":     gofakeit.Name(),
		"email":    strings.ToLower(gofakeit.Email()),
		"password": testPassword,
	}
}

func quantities(sum cart.Summary) map[string]int {
	out := map[string]int{}
	for _, it := range sum.Items {
		out[it.ProductID] = it.Quantity
	}
	return out
}

func TestCart_AnonymousFlow(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	cl := s.client(t)
	pid := s.product.ID.String()

	var sum cart.Summary
	status := s.do(t, cl, call{method: http.MethodGet, path: "/api/cart"}, &sum)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, sum.Items)
	assert.Zero(t, sum.Shipping)

	status = s.do(t, cl, call{method: http.MethodPost, path: "/api/cart/add", body: map[string]any{"productId": pid, "quantity": 2}}, &sum)
	require.Equal(t, http.StatusOK, status)
	status = s.do(t, cl, call{method: http.MethodPost, path: "/api/cart/add", body: map[string]any{"productId": pid}}, &sum)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, map[string]int{pid: 3}, quantities(sum))
	assert.InDelta(t, 30.0, sum.Subtotal, 0.001)
	assert.InDelta(t, 10.0, sum.Shipping, 0.001)
	assert.InDelta(t, 40.0, sum.Total, 0.001)

	status = s.do(t, cl, call{method: http.MethodPatch, path: "/api/cart/update", body: map[string]any{"productId": pid, "quantity": 5}}, &sum)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]int{pid: 5}, quantities(sum))

	status = s.do(t, cl, call{method: http.MethodDelete, path: "/api/cart/remove/" + pid}, &sum)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, sum.Items)

	// Another visitor does not see this session's cart.
	other := s.client(t)
	s.do(t, cl, call{method: http.MethodPost, path: "/api/cart/add", body: map[string]any{"productId": pid}}, &sum)
	status = s.do(t, other, call{method: http.MethodGet, path: "/api/cart"}, &sum)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, sum.Items)
}

func TestCart_UnknownProduct(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	cl := s.client(t)

	var body map[string]any
	status := s.do(t, cl, call{method: http.MethodPost, path: "/api/cart/add", body: map[string]any{"productId": "missing"}}, &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["error"])

	var sum cart.Summary
	s.do(t, cl, call{method: http.MethodGet, path: "/api/cart"}, &sum)
	assert.Empty(t, sum.Items)
}

func TestWishlist_AnonymousFlow(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	cl := s.client(t)
	pid := s.product.ID.String()

	var wl cart.WishlistSummary
	for range 2 {
		status := s.do(t, cl, call{method: http.MethodPost, path: "/api/wishlist/add", body: map[string]any{"productId": pid}}, &wl)
		require.Equal(t, http.StatusOK, status)
	}
	require.Len(t, wl.Items, 1)
	assert.Equal(t, pid, wl.Items[0].ProductID)

	status := s.do(t, cl, call{method: http.MethodDelete, path: "/api/wishlist/clear"}, &wl)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, wl.Items)
}

func TestAuth_SignupMergesSessionCart(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	cl := s.client(t)
	pid, oid := s.product.ID.String(), s.other.ID.String()

	var sum cart.Summary
	s.do(t, cl, call{method: http.MethodPost, path: "/api/cart/add", body: map[string]any{"productId": pid, "quantity": 2}}, &sum)
	var wl cart.WishlistSummary
	s.do(t, cl, call{method: http.MethodPost, path: "/api/wishlist/add", body: map[string]any{"productId": oid}}, &wl)

	out := s.signup(t, cl, newSignup())
	assert.NotEmpty(t, out["accessToken"])
	assert.NotEmpty(t, out["refreshToken"])
	user := out["user"].(map[string]any)
	assert.Equal(t, []any{"user"}, user["roles"])

	status := s.do(t, cl, call{method: http.MethodGet, path: "/api/cart"}, &sum)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]int{pid: 2}, quantities(sum))

	s.do(t, cl, call{method: http.MethodGet, path: "/api/wishlist"}, &wl)
	require.Len(t, wl.Items, 1)
	assert.Equal(t, oid, wl.Items[0].ProductID)

	// The anonymous copy is gone once the visitor signs out.
	var ok map[string]any
	status = s.do(t, cl, call{method: http.MethodPost, path: "/api/auth/logout"}, &ok)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, ok["ok"])

	s.do(t, cl, call{method: http.MethodGet, path: "/api/cart"}, &sum)
	assert.Empty(t, sum.Items)
}

func TestAuth_LoginSumsQuantities(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	pid := s.product.ID.String()

	first := s.client(t)
	creds := newSignup()
	s.signup(t, first, creds)
	var sum cart.Summary
	s.do(t, first, call{method: http.MethodPost, path: "/api/cart/add", body: map[string]any{"productId": pid, "quantity": 1}}, &sum)

	second := s.client(t)
	s.do(t, second, call{method: http.MethodPost, path: "/api/cart/add", body: map[string]any{"productId": pid, "quantity": 2}}, &sum)

	var out map[string]any
	status := s.do(t, second, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{"email": creds["email"], "password": testPassword}}, &out)
	require.Equal(t, http.StatusOK, status)

	s.do(t, second, call{method: http.MethodGet, path: "/api/cart"}, &sum)
	assert.Equal(t, map[string]int{pid: 3}, quantities(sum))
}

func TestAuth_Errors(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	cl := s.client(t)
	creds := newSignup()
	s.signup(t, cl, creds)

	tests := []struct {
		name   string
		call   call
		status int
		code   string
		msg    string
	}{
		{
			name:   "weak password",
			call:   call{method: http.MethodPost, path: "/api/auth/signup", body: map[string]any{"email": "weak@example.com", "password": "short"}},
			status: http.StatusBadRequest,
			code:   auth.CodeWeakPassword,
		},
		{
			name:   "duplicate email",
			call:   call{method: http.MethodPost, path: "/api/auth/signup", body: creds},
			status: http.StatusConflict,
			code:   auth.CodeEmailExists,
		},
		{
			name:   "bad admin code",
			call:   call{method: http.MethodPost, path: "/api/auth/signup", body: map[string]any{"email": "a@example.com", "password": testPassword, "role": "admin", "adminCode": "nope"}},
			status: http.StatusForbidden,
			code:   auth.CodeAdminCodeInvalid,
		},
		{
			name:   "wrong password",
			call:   call{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{"email": creds["email"], "password": "wrongpass1"}},
			status: http.StatusUnauthorized,
			msg:    "Invalid credentials",
		},
		{
			name:   "refresh with garbage",
			call:   call{method: http.MethodPost, path: "/api/auth/refresh", body: map[string]any{"refreshToken": "garbage"}},
			status: http.StatusUnauthorized,
			msg:    "Invalid refresh token",
		},
		{
			name:   "me without credentials",
			call:   call{method: http.MethodGet, path: "/api/me"},
			status: http.StatusUnauthorized,
			msg:    "Unauthorized",
		},
		{
			name:   "me with bad bearer",
			call:   call{method: http.MethodGet, path: "/api/me", header: map[string]string{"Authorization": "Bearer nope"}},
			status: http.StatusUnauthorized,
			msg:    "invalid token",
		},
		{
			name:   "google not configured",
			call:   call{method: http.MethodGet, path: "/api/auth/google"},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var body map[string]any
			status := s.do(t, s.client(t), tt.call, &body)
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, body["error"])
			if tt.code != "" {
				assert.Equal(t, tt.code, body["code"])
			}
			if tt.msg != "" {
				assert.Equal(t, tt.msg, body["error"])
			}
		})
	}
}

func TestAuth_MeAndRefresh(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	creds := newSignup()
	out := s.signup(t, s.client(t), creds)
	access := out["accessToken"].(string)
	refresh := out["refreshToken"].(string)

	// Bearer clients need no cookies.
	bare := &http.Client{}
	var me map[string]any
	status := s.do(t, bare, call{method: http.MethodGet, path: "/api/me", header: map[string]string{"Authorization": "Bearer " + access}}, &me)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, creds["email"], me["email"])
	assert.Equal(t, []any{"user"}, me["roles"])

	var pair map[string]any
	status = s.do(t, bare, call{method: http.MethodPost, path: "/api/auth/refresh", body: map[string]any{"refreshToken": refresh}}, &pair)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, pair["accessToken"])
	assert.NotEqual(t, refresh, pair["refreshToken"])

	// A rotated token is spent.
	status = s.do(t, bare, call{method: http.MethodPost, path: "/api/auth/refresh", body: map[string]any{"refreshToken": refresh}}, &pair)
	assert.Equal(t, http.StatusUnauthorized, status)
}

// keepRefreshCookie leaves only the refresh cookie in the client's jar, as
// seen by a browser whose access cookie has expired.
func (s *testServer) keepRefreshCookie(t *testing.T, cl *http.Client) string {
	t.Helper()

	u, err := url.Parse(s.URL)
	require.NoError(t, err)
	var refresh *http.Cookie
	for _, c := range cl.Jar.Cookies(u) {
		if c.Name == tokens.RefreshCookie {
			refresh = c
		}
	}
	require.NotNil(t, refresh)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: tokens.RefreshCookie, Value: refresh.Value, Path: "/"}})
	cl.Jar = jar
	return refresh.Value
}

func (s *testServer) cookieNames(t *testing.T, cl *http.Client) map[string]bool {
	t.Helper()
	u, err := url.Parse(s.URL)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, c := range cl.Jar.Cookies(u) {
		names[c.Name] = true
	}
	return names
}

func TestAuth_AutoRefreshFromCookie(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	cl := s.client(t)
	s.signup(t, cl, newSignup())
	s.keepRefreshCookie(t, cl)

	var me map[string]any
	status := s.do(t, cl, call{method: http.MethodGet, path: "/api/me"}, &me)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, me["id"])
	assert.True(t, s.cookieNames(t, cl)[tokens.AccessCookie])
}

func TestAuth_RefreshWithCookieOnly(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	cl := s.client(t)
	s.signup(t, cl, newSignup())
	old := s.keepRefreshCookie(t, cl)

	var pair map[string]any
	status := s.do(t, cl, call{method: http.MethodPost, path: "/api/auth/refresh"}, &pair)
	require.Equal(t, http.StatusOK, status, pair)
	assert.NotEmpty(t, pair["accessToken"])
	assert.NotEqual(t, old, pair["refreshToken"])
	assert.True(t, s.cookieNames(t, cl)[tokens.AccessCookie])

	var me map[string]any
	status = s.do(t, cl, call{method: http.MethodGet, path: "/api/me"}, &me)
	assert.Equal(t, http.StatusOK, status)
}

func TestAuth_LogoutWithCookieOnlyRevokesEverything(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	cl := s.client(t)
	out := s.signup(t, cl, newSignup())
	accountID := out["user"].(map[string]any)["id"].(string)
	s.keepRefreshCookie(t, cl)

	var ok map[string]any
	status := s.do(t, cl, call{method: http.MethodPost, path: "/api/auth/logout"}, &ok)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, ok["ok"])

	var live int64
	require.NoError(t, s.repo.DB.Model(&models.RefreshToken{}).
		Where("account_id = ? AND revoked_at IS NULL", accountID).
		Count(&live).Error)
	assert.Zero(t, live)

	var me map[string]any
	status = s.do(t, cl, call{method: http.MethodGet, path: "/api/me"}, &me)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuth_PromoteAdmin(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	cl := s.client(t)
	creds := newSignup()
	s.signup(t, cl, creds)

	var body map[string]any
	status := s.do(t, cl, call{method: http.MethodGet, path: "/api/admin/health"}, &body)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Forbidden (admin role required)", body["error"])

	status = s.do(t, cl, call{method: http.MethodPost, path: "/api/auth/promote-admin", body: map[string]any{"email": creds["email"], "adminCode": testAdminSecret}}, &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, auth.CodePromoted, body["code"])

	// Roles travel in the access token, so a fresh login picks them up.
	s.do(t, cl, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{"email": creds["email"], "password": testPassword}}, &body)
	status = s.do(t, cl, call{method: http.MethodGet, path: "/api/admin/health"}, &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])
	assert.EqualValues(t, 1, body["users"])
}

func TestExternalIdentity_ProvisionsAndMerges(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	cl := s.client(t)
	pid := s.product.ID.String()

	var sum cart.Summary
	s.do(t, cl, call{method: http.MethodPost, path: "/api/cart/add", body: map[string]any{"productId": pid, "quantity": 4}}, &sum)

	ext := map[string]string{externalHeader: "ext_123"}
	var me map[string]any
	status := s.do(t, cl, call{method: http.MethodGet, path: "/api/me", header: ext}, &me)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ext_123@external.test", me["email"])
	assert.Equal(t, []any{"user"}, me["roles"])

	status = s.do(t, cl, call{method: http.MethodGet, path: "/api/cart", header: ext}, &sum)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]int{pid: 4}, quantities(sum))

	// Repeated requests neither duplicate the account nor re-merge.
	s.do(t, cl, call{method: http.MethodPost, path: "/api/cart/add", body: map[string]any{"productId": pid, "quantity": 1}}, &sum)
	s.do(t, cl, call{method: http.MethodGet, path: "/api/cart", header: ext}, &sum)
	assert.Equal(t, map[string]int{pid: 4}, quantities(sum))

	total, _, err := s.repo.ListAccounts(context.Background(), "", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestOrders_Checkout(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	cl := s.client(t)
	s.signup(t, cl, newSignup())

	var body map[string]any
	status := s.do(t, cl, call{method: http.MethodPost, path: "/api/orders", body: map[string]any{"firstName": "Ada"}}, &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Cart is empty", body["error"])

	var sum cart.Summary
	s.do(t, cl, call{method: http.MethodPost, path: "/api/cart/add", body: map[string]any{"productId": s.other.ID.String(), "quantity": 2}}, &sum)

	var placed order.Placed
	status = s.do(t, cl, call{method: http.MethodPost, path: "/api/orders", body: map[string]any{"firstName": "Ada", "lastName": "Lovelace", "city": "London"}}, &placed)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.HasPrefix(placed.OrderNumber, "ORD-"))
	assert.InDelta(t, 15.0, placed.Total, 0.001)

	s.do(t, cl, call{method: http.MethodGet, path: "/api/cart"}, &sum)
	assert.Empty(t, sum.Items)

	var list struct {
		Items []models.Order `json:"items"`
	}
	status = s.do(t, cl, call{method: http.MethodGet, path: "/api/orders"}, &list)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, list.Items, 1)
	assert.Equal(t, placed.OrderNumber, list.Items[0].Number)
}

func TestOrders_ListRequiresAccount(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	var body map[string]any
	status := s.do(t, s.client(t), call{method: http.MethodGet, path: "/api/orders"}, &body)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdmin_ProductLifecycle(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	cl := s.client(t)
	s.signup(t, cl, map[string]any{
		"email": "boss@example.com", "password": testPassword, "role": "admin", "adminCode": testAdminSecret,
	})

	var created map[string]any
	status := s.do(t, cl, call{method: http.MethodPost, path: "/api/admin/products", body: map[string]any{"name": "Zq Lamp", "slug": "zq-lamp", "price": 12.5}}, &created)
	require.Equal(t, http.StatusOK, status)
	id := created["id"].(string)

	var body map[string]any
	status = s.do(t, cl, call{method: http.MethodPost, path: "/api/admin/products", body: map[string]any{"name": "Zq Lamp", "slug": "zq-lamp"}}, &body)
	assert.Equal(t, http.StatusConflict, status)

	var list admin.List[models.Product]
	status = s.do(t, cl, call{method: http.MethodGet, path: "/api/admin/products?q=zq-&limit=500"}, &list)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, admin.MaxPageSize, list.Limit)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "zq-lamp", list.Items[0].Slug)

	status = s.do(t, cl, call{method: http.MethodPatch, path: "/api/admin/products/" + id, body: map[string]any{"price": 20}}, &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])

	status = s.do(t, cl, call{method: http.MethodDelete, path: "/api/admin/products/" + id}, &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])

	status = s.do(t, cl, call{method: http.MethodDelete, path: "/api/admin/products/" + id}, &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["ok"])
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{})
	cl := s.client(t)

	var body map[string]any
	status := s.do(t, cl, call{method: http.MethodGet, path: "/api/health"}, &body)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["products"])

	status = s.do(t, cl, call{method: http.MethodGet, path: "/health/ready"}, &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])

	status = s.do(t, cl, call{method: http.MethodGet, path: "/health/live"}, &body)
	assert.Equal(t, http.StatusOK, status)

	resp, err := cl.Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "storefront_http_requests_total")
}

func TestAuth_RateLimited(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{authLimit: 2})
	cl := s.client(t)
	login := call{method: http.MethodPost, path: "/api/auth/login", body: map[string]any{"email": "x@example.com", "password": "nope"}}

	var body map[string]any
	for range 2 {
		status := s.do(t, cl, login, &body)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status := s.do(t, cl, login, &body)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "Too many requests, please try again later", body["error"])

	// Routes outside /auth are not throttled.
	var sum cart.Summary
	status = s.do(t, cl, call{method: http.MethodGet, path: "/api/cart"}, &sum)
	assert.Equal(t, http.StatusOK, status)
}

func TestCSRF_CookieAuthenticatedWrites(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testOptions{csrf: true})
	cl := s.client(t)
	s.signup(t, cl, newSignup())
	add := map[string]any{"productId": s.product.ID.String()}

	var body map[string]any
	status := s.do(t, cl, call{method: http.MethodPost, path: "/api/cart/add", body: add}, &body)
	assert.Equal(t, http.StatusForbidden, status)

	u, err := url.Parse(s.URL)
	require.NoError(t, err)
	var token string
	for _, c := range cl.Jar.Cookies(u) {
		if c.Name == "XSRF-TOKEN" {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	var sum cart.Summary
	status = s.do(t, cl, call{method: http.MethodPost, path: "/api/cart/add", body: add, header: map[string]string{
		"Origin":       s.URL,
		"X-CSRF-Token": token,
	}}, &sum)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, sum.Items, 1)

	// Anonymous visitors carry no auth cookie and are not checked.
	var anon cart.Summary
	status = s.do(t, s.client(t), call{method: http.MethodPost, path: "/api/cart/add", body: add}, &anon)
	assert.Equal(t, http.StatusOK, status)
}
