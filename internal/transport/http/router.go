package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	identitymw "github.com/Skotchmaster/storefront/internal/middleware/identity"
	metricsmw "github.com/Skotchmaster/storefront/internal/middleware/metrics"
	"github.com/Skotchmaster/storefront/internal/middleware/ratelimit"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const APIPrefix = "/api"

type Deps struct {
	Identity *identitymw.Middleware
	Metrics  *metrics.Metrics

	Auth   *AuthHTTP
	Cart   *CartHTTP
	Order  *OrderHTTP
	Admin  *AdminHTTP
	Health *HealthHTTP

	// AuthLimiter throttles the /auth routes. Nil disables throttling.
	AuthLimiter middleware.RateLimiterStore

	CSRFEnabled  bool
	CookieSecure bool
}

func csrfConfig(d *Deps) csrf.Config {
	cfg := csrf.DefaultConfig()
	cfg.Secure = d.CookieSecure
	cfg.AuthCookies = []string{tokens.AccessCookie, tokens.RefreshCookie, identity.ClerkSessionCookie}
	cfg.SkipPaths = []string{
		APIPrefix + "/auth/signup",
		APIPrefix + "/auth/login",
		APIPrefix + "/auth/promote-admin",
	}
	return cfg
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", d.Health.Live)
	e.GET("/health/ready", d.Health.Ready)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	d.Identity.SkipRefresh = []string{
		APIPrefix + "/auth/refresh",
		APIPrefix + "/auth/logout",
	}
	api := e.Group(APIPrefix, d.Identity.Resolve)
	if d.CSRFEnabled {
		api.Use(csrf.Middleware(csrfConfig(d)))
	}

	api.GET("/health", d.Health.Health)

	cart := api.Group("/cart")
	cart.GET("", d.Cart.GetCart)
	cart.POST("/add", d.Cart.AddToCart)
	cart.PATCH("/update", d.Cart.UpdateCart)
	cart.DELETE("/remove/:productId", d.Cart.RemoveFromCart)
	cart.DELETE("/clear", d.Cart.ClearCart)

	wishlist := api.Group("/wishlist")
	wishlist.GET("", d.Cart.GetWishlist)
	wishlist.POST("/add", d.Cart.AddToWishlist)
	wishlist.DELETE("/remove/:productId", d.Cart.RemoveFromWishlist)
	wishlist.DELETE("/clear", d.Cart.ClearWishlist)

	api.POST("/orders", d.Order.Checkout)
	api.GET("/orders", d.Order.List, identitymw.RequireAccount)

	auth := api.Group("/auth")
	if d.AuthLimiter != nil {
		auth.Use(ratelimit.Middleware(d.AuthLimiter))
	}
	auth.POST("/signup", d.Auth.Signup)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.Logout)
	auth.POST("/promote-admin", d.Auth.PromoteAdmin)
	auth.GET("/google", d.Auth.GoogleStart)
	auth.GET("/google/callback", d.Auth.GoogleCallback)

	api.GET("/me", d.Auth.Me, identitymw.RequireAccount)

	admin := api.Group("/admin", identitymw.RequireAdmin)
	admin.GET("/health", d.Admin.Health)

	admin.GET("/products", d.Admin.ListProducts)
	admin.POST("/products", d.Admin.CreateProduct)
	admin.PATCH("/products/:id", d.Admin.PatchProduct)
	admin.DELETE("/products/:id", d.Admin.DeleteProduct)

	admin.GET("/categories", d.Admin.ListCategories)
	admin.POST("/categories", d.Admin.CreateCategory)
	admin.PATCH("/categories/:id", d.Admin.PatchCategory)
	admin.DELETE("/categories/:id", d.Admin.DeleteCategory)

	admin.GET("/users", d.Admin.ListUsers)
	admin.PATCH("/users/:id", d.Admin.PatchUser)
	admin.DELETE("/users/:id", d.Admin.DeleteUser)
}

// NewEcho builds the echo instance with the shared middleware chain. The
// request logger renders handler errors, so it sits inside the metrics
// middleware.
func NewEcho(d *Deps, logMW echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.Secure())
	if d.Metrics != nil {
		e.Use(metricsmw.Middleware(d.Metrics))
	}
	e.Use(logMW)
	return e
}
