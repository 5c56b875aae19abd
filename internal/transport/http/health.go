package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/admin"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/session"
)

const readyTimeout = 2 * time.Second

type HealthHTTP struct {
	Admin    *admin.Service
	DB       *gorm.DB
	Sessions session.Store
}

func (h *HealthHTTP) Health(c echo.Context) error {
	ctx := c.Request().Context()
	counts, err := h.Admin.Counts(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("health_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": "health failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":         true,
		"products":   counts.Products,
		"categories": counts.Categories,
	})
}

func (h *HealthHTTP) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Ready reports whether the database and the session store answer.
func (h *HealthHTTP) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
	defer cancel()
	l := logging.FromContext(ctx)

	checks := echo.Map{"db": "ok", "sessions": "ok"}
	ok := true

	if sqlDB, err := h.DB.DB(); err != nil {
		checks["db"], ok = err.Error(), false
	} else if err := sqlDB.PingContext(ctx); err != nil {
		checks["db"], ok = err.Error(), false
	}
	if err := h.Sessions.Ping(ctx); err != nil {
		checks["sessions"], ok = err.Error(), false
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
		l.Warn("not_ready", "checks", checks)
	}
	checks["ok"] = ok
	return c.JSON(status, checks)
}
