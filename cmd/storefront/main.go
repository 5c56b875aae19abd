package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/storefront/internal/admin"
	"github.com/Skotchmaster/storefront/internal/auth"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/merge"
	"github.com/Skotchmaster/storefront/internal/metrics"
	identitymw "github.com/Skotchmaster/storefront/internal/middleware/identity"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/ratelimit"
	"github.com/Skotchmaster/storefront/internal/order"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/tracing"
	httpserver "github.com/Skotchmaster/storefront/internal/transport/http"
)

func fatal(l *slog.Logger, msg string, err error) {
	l.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		fatal(logger, "config_invalid", err)
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tp, err := tracing.Init(initCtx, cfg.ServiceName, cfg.JaegerEndpoint)
	if err != nil {
		fatal(logger, "tracing_init_error", err)
	}

	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "db_init_error", err)
	}
	if err := db.Migrate(initCtx, gdb); err != nil {
		fatal(logger, "db_migrate_error", err)
	}
	r := repo.New(gdb)

	var (
		store       session.Store
		authLimiter middleware.RateLimiterStore
		rdb         *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(initCtx).Err(); err != nil {
			fatal(logger, "redis_init_error", err)
		}
		store = session.NewRedisStore(rdb, cfg.SessionTTL)
		authLimiter = ratelimit.NewRedisStore(rdb, cfg.AuthRateLimit, time.Minute)
	} else {
		logger.Warn("redis_not_configured", "fallback", "in-memory sessions and rate limits")
		ms := session.NewMemoryStore(cfg.SessionTTL)
		defer ms.Close()
		store = ms
		authLimiter = ratelimit.MemoryStore(cfg.AuthRateLimit, time.Minute)
	}

	var index *catalog.Index
	if cfg.ESURL != "" {
		es, err := catalog.NewESClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			logger.Warn("elasticsearch_unavailable", "error", err)
		} else {
			index = &catalog.Index{ES: es, Index: cfg.ESIndex}
		}
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error("kafka_close_error", "error", err)
			}
		}()
		pub = kp
	}

	m := metrics.New()
	issuer := &tokens.Issuer{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Pepper:        cfg.RefreshTokenPepper,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}
	handles := session.NewHandles(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)

	carts := cart.New(store, r, catalog.New(r), pub)
	merger := &merge.Merger{Sessions: store, Accounts: r, Events: pub, Metrics: m}
	authSvc := &auth.Service{Repo: r, Tokens: issuer, Events: pub, Metrics: m, AdminSignupCode: cfg.AdminSignupCode}
	adminSvc := &admin.Service{Repo: r, Search: index, Events: pub}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authSvc.SeedAdmin(initCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Error("seed_admin_error", "error", err)
		}
	}

	resolvers := identity.Chain{&identity.BearerResolver{Tokens: issuer}}
	if cfg.ClerkSecretKey != "" {
		resolvers = append(resolvers, &identity.ExternalResolver{
			Provider: identity.ProviderClerk,
			Verifier: identity.NewClerkVerifier(cfg.ClerkSecretKey),
			Linker:   r,
		})
	}

	d := &httpserver.Deps{
		Identity: &identitymw.Middleware{
			Resolver:     resolvers,
			Handles:      handles,
			Merger:       merger,
			Refresher:    authSvc,
			CookieSecure: cfg.CookieSecure,
		},
		Metrics: m,
		Auth: &httpserver.AuthHTTP{
			Svc:          authSvc,
			Google:       auth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
			Handles:      handles,
			Merger:       merger,
			CookieSecure: cfg.CookieSecure,
		},
		Cart:   &httpserver.CartHTTP{Svc: carts, Handles: handles},
		Order:  &httpserver.OrderHTTP{Svc: &order.Service{Repo: r, Carts: carts, Events: pub, Metrics: m}, Handles: handles},
		Admin:  &httpserver.AdminHTTP{Svc: adminSvc},
		Health: &httpserver.HealthHTTP{Admin: adminSvc, DB: gdb, Sessions: store},

		AuthLimiter:  authLimiter,
		CSRFEnabled:  cfg.CSRFEnabled,
		CookieSecure: cfg.CookieSecure,
	}

	e := httpserver.NewEcho(d, loggingmw.RequestLogger(logger, "/health/live", "/health/ready", "/metrics"))
	e.Use(middleware.CORS())
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.IdleTimeout = 60 * time.Second
	httpserver.Register(e, d)

	addr := ":" + strconv.Itoa(cfg.ServerPort)
	go func() {
		logger.Info("server_starting", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server_error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer_shutdown_error", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis_close_error", "error", err)
		}
	}
	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db_close_error", "error", err)
		}
	}

	logger.Info("server_stopped")
}
